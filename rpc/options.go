package rpc

import (
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout is the reply window applied when no timeout option or
// context deadline says otherwise.
const DefaultTimeout = 60 * time.Second

// Option configures a Caller, Listener, or Forwarder. Options that do
// not apply to the component being built are ignored.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	callerName string
	timeout    time.Duration
	reserved   []string
}

func buildOptions(opts []Option) options {
	o := options{
		logger:     zap.NewNop(),
		callerName: "caller",
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCallerName sets the logical caller name a random instance suffix
// is appended to. Default "caller".
func WithCallerName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.callerName = name
		}
	}
}

// WithTimeout sets how long a call waits for its reply before failing
// with TIMEOUT. Default DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithReservedNames adds names an open forwarder refuses to forward, on
// top of DefaultReservedNames.
func WithReservedNames(names ...string) Option {
	return func(o *options) {
		o.reserved = append(o.reserved, names...)
	}
}
