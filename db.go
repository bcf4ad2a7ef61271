// Package neostaff keeps a small company/worker graph in Neo4j. It wraps the official
// Neo4j Go driver with a tag-driven repository and a persistence manager for relations.
package neostaff

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// DBRunner defines the interface for a generic query executor.
// Run is routed to the cluster leader (writers); RunRead may be served by followers.
type DBRunner interface {
	// Run executes a write query with parameters and returns a fully-buffered result.
	Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error)
	// RunRead executes a read-only query with parameters and returns a fully-buffered result.
	RunRead(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error)
}

//---

// Neo4jExecutor is the DBRunner backed by the official Neo4j Go driver. Every call gets
// its own driver-managed session which is released before the call returns.
type Neo4jExecutor struct {
	Driver neo4j.DriverWithContext
	DBName string

	logger *zap.Logger
}

// ExecutorOption customizes a Neo4jExecutor at construction time.
type ExecutorOption func(*executorOptions)

type executorOptions struct {
	logger      *zap.Logger
	configurers []func(*neo4j.Config)
}

// WithLogger sets the logger used to report connectivity failures.
func WithLogger(logger *zap.Logger) ExecutorOption {
	return func(o *executorOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDriverConfig appends a driver configurer (pool size, timeouts, retry budget).
func WithDriverConfig(configure func(*neo4j.Config)) ExecutorOption {
	return func(o *executorOptions) {
		if configure != nil {
			o.configurers = append(o.configurers, configure)
		}
	}
}

// NewNeo4jExecutor creates and initializes a new Neo4jExecutor.
// The driver connects lazily; call Verify to check the credentials and URI.
//
// Parameters:
//   - uri: The connection URI for the Neo4j instance (e.g., "neo4j://localhost:7687").
//   - username: The username for authentication.
//   - password: The password for authentication.
//   - dbName: The name of the database to use (e.g., "neo4j").
//   - opts: Optional logger and driver settings.
func NewNeo4jExecutor(uri, username, password, dbName string, opts ...ExecutorOption) (*Neo4jExecutor, error) {
	o := executorOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""), o.configurers...)
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Neo4jExecutor{Driver: driver, DBName: dbName, logger: o.logger}, nil
}

// Verify checks the connectivity to the Neo4j server.
func (e *Neo4jExecutor) Verify(ctx context.Context) error {
	if err := e.Driver.VerifyConnectivity(ctx); err != nil {
		e.logFailure("verify connectivity", err)
		return fmt.Errorf("could not reach neo4j: %w", err)
	}
	return nil
}

// Close releases the driver and every pooled connection.
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	return e.Driver.Close(ctx)
}

// Run executes a write query through neo4j.ExecuteQuery, which manages the session
// and the retryable transaction.
func (e *Neo4jExecutor) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	return e.execute(ctx, query, params, neo4j.ExecuteQueryWithWritersRouting())
}

// RunRead executes a read-only query routed to readers.
func (e *Neo4jExecutor) RunRead(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	return e.execute(ctx, query, params, neo4j.ExecuteQueryWithReadersRouting())
}

func (e *Neo4jExecutor) execute(
	ctx context.Context,
	query string,
	params map[string]interface{},
	routing neo4j.ExecuteQueryConfigurationOption,
) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		e.Driver,
		query,
		params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(e.DBName),
		routing,
	)
	if err != nil {
		e.logFailure(query, err)
		return nil, &QueryError{Query: query, Err: err}
	}
	return result, nil
}

// QueryError is returned by Neo4jExecutor when a query fails. When the driver gave up
// retrying, Unwrap also exposes the error of every attempt, so errors.As can reach a
// *neo4j.ConnectivityError held inside a *neo4j.TransactionExecutionLimit.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return "error executing neo4j query: " + e.Err.Error()
}

func (e *QueryError) Unwrap() []error {
	errs := []error{e.Err}
	var limit *neo4j.TransactionExecutionLimit
	if errors.As(e.Err, &limit) {
		errs = append(errs, limit.Errors...)
	}
	return errs
}

// isConnectivityFailure reports whether err, or any retry attempt it aggregates, failed
// because the server could not be reached.
func isConnectivityFailure(err error) bool {
	var connErr *neo4j.ConnectivityError
	if errors.As(err, &connErr) {
		return true
	}
	var limit *neo4j.TransactionExecutionLimit
	if errors.As(err, &limit) {
		for _, attempt := range limit.Errors {
			if isConnectivityFailure(attempt) {
				return true
			}
		}
	}
	return false
}

// logFailure reports the server being unreachable. Other errors are left to the caller.
func (e *Neo4jExecutor) logFailure(query string, err error) {
	if !isConnectivityFailure(err) {
		return
	}
	e.logger.Error("query raised an error",
		zap.String("query", query),
		zap.String("database", e.DBName),
		zap.Error(err),
	)
}
