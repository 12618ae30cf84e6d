package taskpipe

import (
	"github.com/juju/errors"

	"github.com/warriorguo/taskpipe/runtime"
	"github.com/warriorguo/taskpipe/store"
	"github.com/warriorguo/taskpipe/store/disk"
	"github.com/warriorguo/taskpipe/store/mem"
	"github.com/warriorguo/taskpipe/store/postgres"
	"github.com/warriorguo/taskpipe/types"
)

// New creates a pipeline with the given options
func New(opts ...types.PipelineOption) (types.Pipeline, error) {
	options := types.NewPipelineOptions()
	for _, opt := range opts {
		opt(options)
	}

	var s store.Store
	var err error

	// PostgresConfig takes precedence over MemStore
	switch {
	case options.PostgresConfig != nil:
		pgConfig := &postgres.Config{
			Host:     options.PostgresConfig.Host,
			Port:     options.PostgresConfig.Port,
			User:     options.PostgresConfig.User,
			Password: options.PostgresConfig.Password,
			Database: options.PostgresConfig.Database,
			SSLMode:  options.PostgresConfig.SSLMode,
		}

		s, err = postgres.NewPostgresStore(pgConfig)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create PostgreSQL store")
		}

	case options.MemStore:
		s = mem.NewMemStore()

	default:
		// Default to an on-disk store rooted in the cache path, run
		// records and step caches then survive the process.
		s, err = disk.NewDiskStore(options.CachePath)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create disk store")
		}
	}

	return runtime.NewPipeline(s, options), nil
}
