package rpc

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/remotify/remotify/errors"
)

// Stub is a local function bound to one remote name.
type Stub func(ctx context.Context, args ...any) (any, error)

// Forwarder maps local names onto remote calls through one Caller, so a
// remote capability can be handed around as plain Go functions. The
// forwardable set is fixed at construction; asking for a name outside it
// fails with NOT_FORWARDED.
type Forwarder struct {
	caller *Caller
	prefix string

	mu    sync.RWMutex
	stubs map[string]Stub

	open     bool
	reserved map[string]struct{}
}

// NewForwarder builds a Forwarder for an explicit set of names. Each
// name maps to the remote function prefix + "." + name, or to the bare
// name when prefix is empty.
func NewForwarder(caller *Caller, prefix string, names ...string) *Forwarder {
	f := &Forwarder{
		caller: caller,
		prefix: prefix,
		stubs:  make(map[string]Stub, len(names)),
	}
	for _, name := range names {
		f.stubs[name] = f.bind(name)
	}
	return f
}

// ForwardType builds a Forwarder whose names are the methods declared on
// an interface type:
//
//	f, _ := rpc.ForwardType(caller, reflect.TypeOf((*Calculator)(nil)).Elem(), "calc")
func ForwardType(caller *Caller, typ reflect.Type, prefix string) (*Forwarder, error) {
	if typ == nil || typ.Kind() != reflect.Interface {
		return nil, fmt.Errorf("forward type must be an interface, got %v", typ)
	}
	names := make([]string, 0, typ.NumMethod())
	for i := 0; i < typ.NumMethod(); i++ {
		names = append(names, typ.Method(i).Name)
	}
	return NewForwarder(caller, prefix, names...), nil
}

// NewOpenForwarder builds a Forwarder that lazily binds any requested
// name except the reserved ones. Reserved names default to
// DefaultReservedNames and grow with WithReservedNames.
func NewOpenForwarder(caller *Caller, prefix string, opts ...Option) *Forwarder {
	o := buildOptions(opts)

	f := &Forwarder{
		caller:   caller,
		prefix:   prefix,
		stubs:    make(map[string]Stub),
		open:     true,
		reserved: make(map[string]struct{}),
	}
	for _, name := range DefaultReservedNames() {
		f.reserved[name] = struct{}{}
	}
	for _, name := range o.reserved {
		f.reserved[name] = struct{}{}
	}
	return f
}

// DefaultReservedNames returns the method names Go's value protocols
// invoke implicitly. An open forwarder refuses these, so printing or
// marshaling a proxy-bearing value never turns into a remote call.
func DefaultReservedNames() []string {
	return []string{
		"String", "GoString", "Format", "Error",
		"MarshalJSON", "MarshalText", "MarshalBinary",
		"Equal", "Unwrap", "Is", "As",
	}
}

func (f *Forwarder) bind(name string) Stub {
	remote := name
	if f.prefix != "" {
		remote = f.prefix + "." + name
	}
	return func(ctx context.Context, args ...any) (any, error) {
		return f.caller.Call(ctx, remote, args...)
	}
}

// Stub returns the bound function for name, or NOT_FORWARDED when the
// name is outside the forwardable set.
func (f *Forwarder) Stub(name string) (Stub, error) {
	f.mu.RLock()
	s, ok := f.stubs[name]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	if !f.open || name == "" {
		return nil, errors.NotForwarded(name)
	}
	if _, ok := f.reserved[name]; ok {
		return nil, errors.NotForwarded(name,
			errors.WithMetadata("reason", "reserved name"))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.stubs[name]; ok {
		return s, nil
	}
	s = f.bind(name)
	f.stubs[name] = s
	return s, nil
}

// Call resolves name and invokes its stub.
func (f *Forwarder) Call(ctx context.Context, name string, args ...any) (any, error) {
	s, err := f.Stub(name)
	if err != nil {
		return nil, err
	}
	return s(ctx, args...)
}

// Names returns the currently bound names, sorted. For an open
// forwarder this is the set requested so far.
func (f *Forwarder) Names() []string {
	f.mu.RLock()
	names := make([]string, 0, len(f.stubs))
	for name := range f.stubs {
		names = append(names, name)
	}
	f.mu.RUnlock()
	sort.Strings(names)
	return names
}
