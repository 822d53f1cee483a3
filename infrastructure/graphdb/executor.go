// Package graphdb exports use case results and schema summaries straight from
// the graph database behind the analysis service.
package graphdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"csgclient/infrastructure/config"
)

// DBRunner executes one Cypher query and buffers the whole result
type DBRunner interface {
	Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error)
}

// Executor runs queries through the official driver
type Executor struct {
	driver neo4j.DriverWithContext
	dbName string
}

// NewExecutor creates a driver from the Neo4j settings in cfg
func NewExecutor(cfg *config.Config) (*Executor, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Executor{driver: driver, dbName: cfg.Neo4jDatabase}, nil
}

// Verify checks connectivity
func (e *Executor) Verify(ctx context.Context) error {
	return e.driver.VerifyConnectivity(ctx)
}

// Run executes query with ExecuteQuery, which manages sessions and retries
// transient transaction failures itself.
func (e *Executor) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		e.driver,
		query,
		params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(e.dbName),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}
	return result, nil
}

// Close releases the driver
func (e *Executor) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}
