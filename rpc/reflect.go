package rpc

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/remotify/remotify/errors"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// RegisterAll registers every suitable exported method of rcvr as a
// callable function, named after the method, or prefix + "." + method
// when prefix is non-empty. Pass a pointer to cover pointer-receiver
// methods.
//
// A method is suitable when it is not variadic, optionally takes a
// leading context.Context, takes JSON-decodable parameters, and returns
// nothing, a value, an error, or a value and an error. Unsuitable
// methods are skipped. Returns the number registered.
func (l *Listener) RegisterAll(rcvr any, prefix string) int {
	if rcvr == nil {
		return 0
	}

	val := reflect.ValueOf(rcvr)
	typ := reflect.TypeOf(rcvr)

	registered := 0
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		if !method.IsExported() {
			continue
		}

		handler, ok := methodHandler(val, method)
		if !ok {
			l.logger.Debug("method signature not registrable",
				zap.String("method", method.Name))
			continue
		}

		name := method.Name
		if prefix != "" {
			name = prefix + "." + name
		}
		l.Register(name, handler)
		registered++
	}

	return registered
}

// methodHandler builds a Handler that decodes positional arguments into
// the method's parameter types and maps its results onto the reply
// contract.
func methodHandler(rcvr reflect.Value, m reflect.Method) (Handler, bool) {
	mt := m.Func.Type() // receiver is In(0)
	if mt.IsVariadic() {
		return nil, false
	}

	argStart := 1
	wantsCtx := mt.NumIn() > 1 && mt.In(1) == ctxType
	if wantsCtx {
		argStart = 2
	}
	for i := argStart; i < mt.NumIn(); i++ {
		if !decodable(mt.In(i)) {
			return nil, false
		}
	}
	numArgs := mt.NumIn() - argStart

	returnsValue := false
	returnsError := false
	switch mt.NumOut() {
	case 0:
	case 1:
		if mt.Out(0) == errType {
			returnsError = true
		} else {
			returnsValue = true
		}
	case 2:
		if mt.Out(1) != errType {
			return nil, false
		}
		returnsValue = true
		returnsError = true
	default:
		return nil, false
	}

	handler := func(ctx context.Context, args Args) (any, error) {
		if args.Len() != numArgs {
			return nil, errors.BadMessage(
				fmt.Sprintf("%s takes %d arguments, got %d", m.Name, numArgs, args.Len()))
		}

		in := make([]reflect.Value, 0, mt.NumIn())
		in = append(in, rcvr)
		if wantsCtx {
			in = append(in, reflect.ValueOf(ctx))
		}
		for i := 0; i < numArgs; i++ {
			pv := reflect.New(mt.In(argStart + i))
			if err := args.Decode(i, pv.Interface()); err != nil {
				return nil, errors.BadMessage(err.Error())
			}
			in = append(in, pv.Elem())
		}

		out := m.Func.Call(in)

		var result any
		idx := 0
		if returnsValue {
			result = out[idx].Interface()
			idx++
		}
		if returnsError {
			if e, ok := out[idx].Interface().(error); ok && e != nil {
				return result, e
			}
		}
		return result, nil
	}

	return handler, true
}

// decodable filters out parameter kinds json.Unmarshal can never fill.
func decodable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return false
	}
	return true
}
