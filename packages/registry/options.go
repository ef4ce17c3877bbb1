package registry

import (
	"github.com/iotaledger/hive.go/logger"
)

// Option is a function that configures a Registry.
type Option func(*Registry)

// WithPageSize sets how many records the Registry serves per page.
func WithPageSize(pageSize int) Option {
	return func(registry *Registry) {
		if pageSize > 0 {
			registry.pageSize = pageSize
		}
	}
}

// WithLogger attaches a logger to the Registry.
func WithLogger(log *logger.Logger) Option {
	return func(registry *Registry) {
		registry.log = log
	}
}
