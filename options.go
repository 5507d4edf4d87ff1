package gsacache

import (
	"log/slog"

	"github.com/hupe1980/gsacache/codec"
	"github.com/hupe1980/gsacache/model"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	appIDFunc        model.ApplicationIDFunc
	equal            model.EqualityFunc
	sessionID        string
	codec            codec.Codec
	compression      codec.Compression
}

// Option configures a Cache.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := gsacache.NewJSONLogger(slog.LevelInfo)
//	c := gsacache.New(gsacache.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithApplicationIDFunc sets the function deriving a fallback application id
// for native records that carry none. Defaults to model.DefaultApplicationID.
func WithApplicationIDFunc(fn model.ApplicationIDFunc) Option {
	return func(o *options) {
		o.appIDFunc = fn
	}
}

// WithEqualityFunc sets the structural equality used to de-duplicate upserts.
// Defaults to model.DefaultEqual.
func WithEqualityFunc(fn model.EqualityFunc) Option {
	return func(o *options) {
		o.equal = fn
	}
}

// WithSessionID fixes the session id instead of generating a random one.
func WithSessionID(id string) Option {
	return func(o *options) {
		o.sessionID = id
	}
}

// WithCodec configures the codec used by Dump.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithDumpCompression configures the compression used by Dump (zstd by default).
func WithDumpCompression(c codec.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		codec:            codec.Default,
		compression:      codec.CompressionZstd,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
