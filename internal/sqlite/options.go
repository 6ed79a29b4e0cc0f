package sqlite

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendOption configures a Backend at construction.
type BackendOption func(*Backend)

// WithLogger specifies the logger. Operations log at debug, failures at
// info or warn.
func WithLogger(logger *slog.Logger) BackendOption {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry for backend metrics.
// Without it metrics are collected but not registered anywhere.
func WithPromRegistry(registry prometheus.Registerer) BackendOption {
	return func(b *Backend) {
		b.promRegistry = registry
	}
}
