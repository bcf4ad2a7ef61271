package neostaff

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/saulfrancisco-ruizacevedo/go-neostaff/models"
)

// PersistenceManager is the central orchestrator for the persistence layer.
// It hands out repositories and runs the operations spanning several entities,
// such as creating relationships or reading a subgraph.
type PersistenceManager struct {
	runner DBRunner
	// metaCache maps reflect.Type to *entityMetadata.
	metaCache sync.Map
}

// NewPersistenceManager creates a new instance of the PersistenceManager.
func NewPersistenceManager(runner DBRunner) *PersistenceManager {
	return &PersistenceManager{runner: runner}
}

// RepositoryFor returns a repository for T sharing the manager's runner and metadata cache.
func RepositoryFor[T any](pm *PersistenceManager) (*Repository[T], error) {
	meta, err := pm.metadataFor(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return newRepository[T](pm.runner, meta), nil
}

// CreateRelation creates a directed relationship from fromEntity to toEntity. Both
// endpoints are matched on their key properties, so every matching pair gets an edge.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - fromEntity, toEntity: Non-nil pointers to tagged structs.
//   - relType: The relationship type (e.g., "WorksIn").
//   - relProps: Properties set on the new relationship; may be nil.
//
// Returns:
//   - The created edges with their endpoints.
//   - ErrNotFound when either endpoint does not exist and nothing was created.
func (pm *PersistenceManager) CreateRelation(
	ctx context.Context,
	fromEntity, toEntity any,
	relType string,
	relProps map[string]interface{},
) (*models.GraphResult, error) {
	fromMeta, fromKeys, err := pm.entityKeys(fromEntity)
	if err != nil {
		return nil, err
	}
	toMeta, toKeys, err := pm.entityKeys(toEntity)
	if err != nil {
		return nil, err
	}
	if relType == "" {
		return nil, fmt.Errorf("relationship type must not be empty")
	}

	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("a", fromMeta.Label).WithProperties(fromKeys)).
		Match(gocypher.N("b", toMeta.Label).WithProperties(toKeys))
	if len(relProps) == 0 {
		qb = qb.Create(gocypher.NRef("a"), gocypher.R("r", relType).To(), gocypher.NRef("b"))
	} else {
		qb = qb.Create(gocypher.NRef("a"), gocypher.R("r", relType).To().WithProperties(relProps), gocypher.NRef("b"))
	}

	query, params, err := qb.Return("a", "r", "b").Build()
	if err != nil {
		return nil, fmt.Errorf("could not build relation query: %w", err)
	}

	eagerResult, err := pm.runner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(eagerResult.Records) == 0 {
		return nil, fmt.Errorf("%s -[%s]-> %s: %w", fromMeta.Label, relType, toMeta.Label, ErrNotFound)
	}
	return graphFromRecords(eagerResult.Records), nil
}

// FindGraph executes a caller-built graph query and maps the nodes and relationships it
// returns into a models.GraphResult. The query's RETURN clause decides what is included
// (for example `RETURN c, r, w`). Elements returned in several rows appear once.
//
// Returns ErrNotFound if the query succeeds but returns zero records.
func (pm *PersistenceManager) FindGraph(ctx context.Context, qb *gocypher.QueryBuilder) (*models.GraphResult, error) {
	eagerResult, err := pm.Read(ctx, qb)
	if err != nil {
		return nil, err
	}
	if len(eagerResult.Records) == 0 {
		return nil, ErrNotFound
	}
	return graphFromRecords(eagerResult.Records), nil
}

// Read builds qb and runs it as a read-only query.
func (pm *PersistenceManager) Read(ctx context.Context, qb *gocypher.QueryBuilder) (*neo4j.EagerResult, error) {
	query, params, err := qb.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}
	return pm.runner.RunRead(ctx, query, params)
}

// entityKeys returns an entity's metadata and the values of its key properties.
func (pm *PersistenceManager) entityKeys(entity any) (*entityMetadata, map[string]interface{}, error) {
	val := reflect.ValueOf(entity)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return nil, nil, fmt.Errorf("entity must be a non-nil pointer")
	}

	meta, err := pm.metadataFor(val.Elem().Type())
	if err != nil {
		return nil, nil, err
	}
	return meta, meta.keyProps(val.Elem()), nil
}

// metadataFor parses typ's tags once and serves later calls from the cache.
func (pm *PersistenceManager) metadataFor(typ reflect.Type) (*entityMetadata, error) {
	if cached, ok := pm.metaCache.Load(typ); ok {
		return cached.(*entityMetadata), nil
	}

	meta, err := parseTagsFromType(typ)
	if err != nil {
		return nil, err
	}
	actual, _ := pm.metaCache.LoadOrStore(typ, meta)
	return actual.(*entityMetadata), nil
}

// graphFromRecords collects every node and relationship value of records, skipping
// elements already seen.
func graphFromRecords(records []*neo4j.Record) *models.GraphResult {
	graph := &models.GraphResult{
		Nodes: make([]*models.GraphNode, 0),
		Edges: make([]*models.Edge, 0),
	}
	seenNodes := make(map[string]bool)
	seenEdges := make(map[string]bool)

	for _, record := range records {
		for _, value := range record.Values {
			switch v := value.(type) {
			case neo4j.Node:
				if seenNodes[v.ElementId] {
					continue
				}
				seenNodes[v.ElementId] = true
				graph.Nodes = append(graph.Nodes, &models.GraphNode{
					ID:         v.ElementId,
					Labels:     v.Labels,
					Properties: v.Props,
				})
			case neo4j.Relationship:
				if seenEdges[v.ElementId] {
					continue
				}
				seenEdges[v.ElementId] = true
				graph.Edges = append(graph.Edges, &models.Edge{
					ID:         v.ElementId,
					Source:     v.StartElementId,
					Target:     v.EndElementId,
					Type:       v.Type,
					Properties: v.Props,
				})
			}
		}
	}
	return graph
}
