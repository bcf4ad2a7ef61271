package main

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/go-neostaff"
	"github.com/saulfrancisco-ruizacevedo/go-neostaff/internal/config"
	"github.com/saulfrancisco-ruizacevedo/go-neostaff/internal/logging"
	"github.com/saulfrancisco-ruizacevedo/go-neostaff/internal/workforce"
)

const closeTimeout = 5 * time.Second

// app bundles what a subcommand needs: the configured executor and the service on top.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	executor *neostaff.Neo4jExecutor
	service  *workforce.Service
}

// loadConfig reads the config file and environment, applies set flags and validates
// the merged result.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.uri != "" {
		cfg.Neo4j.URI = flags.uri
	}
	if flags.user != "" {
		cfg.Neo4j.Username = flags.user
	}
	if flags.password != "" {
		cfg.Neo4j.Password = flags.password
	}
	if flags.database != "" {
		cfg.Neo4j.Database = flags.database
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.noBreaker {
		cfg.Breaker.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp wires config, logger, executor, breaker and service.
func openApp(flags *rootFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	nc := cfg.Neo4j
	executor, err := neostaff.NewNeo4jExecutor(nc.ConnectionURI(), nc.Username, nc.Password, nc.Database,
		neostaff.WithLogger(logger),
		neostaff.WithDriverConfig(func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = nc.MaxConnectionPoolSize
			c.ConnectionAcquisitionTimeout = nc.ConnectionAcquisitionTimeout
			c.MaxTransactionRetryTime = nc.MaxTransactionRetryTime
		}),
	)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	var runner neostaff.DBRunner = executor
	if cfg.Breaker.Enabled {
		runner = neostaff.NewBreakerRunner("neo4j", executor, neostaff.BreakerSettings{
			MaxFailures: cfg.Breaker.MaxFailures,
			OpenTimeout: cfg.Breaker.OpenTimeout,
		}, logger)
	}

	service, err := workforce.NewService(neostaff.NewPersistenceManager(runner), workforce.WithLogger(logger))
	if err != nil {
		_ = executor.Close(context.Background())
		return nil, err
	}

	logger.Debug("connected",
		zap.String("uri", nc.ConnectionURI()),
		zap.String("database", nc.Database),
		zap.Bool("breaker", cfg.Breaker.Enabled),
	)
	return &app{cfg: cfg, logger: logger, executor: executor, service: service}, nil
}

// close releases the driver even when ctx is already cancelled.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.executor.Close(ctx); err != nil {
		a.logger.Warn("closing driver failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// withApp opens the app, runs fn and closes the app again.
func withApp(ctx context.Context, flags *rootFlags, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}
