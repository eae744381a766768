package pubsub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type Option func(*Options)

type Options struct {
	Logger   zerolog.Logger
	Registry prometheus.Registerer
}

func defaultOptions() Options {
	return Options{
		Logger: zerolog.Nop(),
	}
}

// WithLogger attaches a structured logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetrics registers session counters with the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.Registry = reg
	}
}
