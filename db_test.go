package neostaff

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewNeo4jExecutorRejectsBadURI(t *testing.T) {
	_, err := NewNeo4jExecutor("gopher://localhost:7687", "neo4j", "secret", "neo4j")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not create Neo4j driver")
}

func TestNeo4jExecutorUnreachableServer(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	executor, err := NewNeo4jExecutor("bolt://127.0.0.1:1", "neo4j", "secret", "neo4j",
		WithLogger(zap.New(core)),
		WithDriverConfig(func(c *neo4j.Config) {
			c.MaxTransactionRetryTime = 100 * time.Millisecond
			c.ConnectionAcquisitionTimeout = time.Second
			c.SocketConnectTimeout = time.Second
		}),
	)
	require.NoError(t, err)
	defer executor.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = executor.Run(ctx, "CREATE (c:Company {name: $name})", map[string]interface{}{"name": "My_company"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error executing neo4j query")

	// The driver retries until MaxTransactionRetryTime and then reports a
	// TransactionExecutionLimit holding each attempt's ConnectivityError.
	var connErr *neo4j.ConnectivityError
	assert.True(t, errors.As(err, &connErr))
	var queryErr *QueryError
	require.True(t, errors.As(err, &queryErr))
	assert.Equal(t, "CREATE (c:Company {name: $name})", queryErr.Query)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "query raised an error", entry.Message)
	assert.Equal(t, "CREATE (c:Company {name: $name})", entry.ContextMap()["query"])
	assert.Equal(t, "neo4j", entry.ContextMap()["database"])
}

func TestLogFailureSkipsServerErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	executor := &Neo4jExecutor{DBName: "neo4j", logger: zap.New(core)}

	syntax := &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "oops"}
	executor.logFailure("RETURN", syntax)
	executor.logFailure("RETURN", errors.New("plain"))
	executor.logFailure("RETURN", &neo4j.TransactionExecutionLimit{
		Cause:  "timeout (exceeded max retry time: 100ms)",
		Errors: []error{syntax, errors.New("plain")},
	})

	assert.Zero(t, logs.Len())
}

func TestLogFailureUnwrapsRetryLimit(t *testing.T) {
	unreachable := &neo4j.ConnectivityError{Inner: errors.New("dial tcp 127.0.0.1:1: connect: connection refused")}
	tests := []struct {
		name string
		err  error
	}{
		{name: "connectivity error", err: unreachable},
		{name: "wrapped connectivity error", err: fmt.Errorf("run: %w", unreachable)},
		{name: "retry limit", err: &neo4j.TransactionExecutionLimit{
			Cause:  "timeout (exceeded max retry time: 100ms)",
			Errors: []error{errors.New("first attempt"), unreachable},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			executor := &Neo4jExecutor{DBName: "neo4j", logger: zap.New(core)}

			executor.logFailure("MATCH (n) RETURN n", tt.err)

			require.Equal(t, 1, logs.Len())
			assert.Equal(t, "MATCH (n) RETURN n", logs.All()[0].ContextMap()["query"])
		})
	}
}

func TestQueryErrorExposesRetryAttempts(t *testing.T) {
	unreachable := &neo4j.ConnectivityError{Inner: errors.New("connection refused")}
	limit := &neo4j.TransactionExecutionLimit{Cause: "timeout", Errors: []error{unreachable}}
	err := &QueryError{Query: "RETURN 1", Err: limit}

	var gotLimit *neo4j.TransactionExecutionLimit
	require.True(t, errors.As(err, &gotLimit))
	assert.Same(t, limit, gotLimit)

	var connErr *neo4j.ConnectivityError
	require.True(t, errors.As(err, &connErr))
	assert.Same(t, unreachable, connErr)
	assert.Contains(t, err.Error(), "error executing neo4j query: ")
}
