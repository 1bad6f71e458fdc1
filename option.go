package blockstore

import (
	"os"

	"github.com/dacapoday/blockstore/arena"
	"github.com/sirupsen/logrus"
)

// Option configures Create, Import and Load.
type Option func(*config)

type config struct {
	log   logrus.FieldLogger
	alloc arena.Allocator
	mode  os.FileMode
}

func newConfig(opts []Option) config {
	cfg := config{
		log:   logrus.StandardLogger(),
		alloc: arena.Heap,
		mode:  0640,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger routes the store's diagnostics to log.
func WithLogger(log logrus.FieldLogger) Option {
	return func(cfg *config) {
		if log != nil {
			cfg.log = log
		}
	}
}

// WithAllocator sets where the maps and data region live. Default arena.Heap.
func WithAllocator(alloc arena.Allocator) Option {
	return func(cfg *config) {
		if alloc != nil {
			cfg.alloc = alloc
		}
	}
}

// WithFileMode sets the permission bits Export creates image files with.
// Default 0640.
func WithFileMode(mode os.FileMode) Option {
	return func(cfg *config) {
		cfg.mode = mode.Perm()
	}
}
