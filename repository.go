package neostaff

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// ErrNotFound is a sentinel error returned by lookups when no record matching the
// criteria is found in the database.
var ErrNotFound = errors.New("record not found")

// Repository provides CRUD operations for a specific entity type T. It relies on
// `graph` struct tags to map struct fields to node properties.
type Repository[T any] struct {
	runner DBRunner
	meta   *entityMetadata
}

// NewRepository creates a new generic repository for the type T.
// It parses the struct tags of T to understand its mapping to a Neo4j node.
//
// Parameters:
//   - runner: An instance of DBRunner, used to execute all Cypher queries.
//
// Returns:
//
//	A new Repository instance or an error if the struct tags are invalid.
func NewRepository[T any](runner DBRunner) (*Repository[T], error) {
	meta, err := parseTags[T]()
	if err != nil {
		return nil, err
	}
	return newRepository[T](runner, meta), nil
}

func newRepository[T any](runner DBRunner, meta *entityMetadata) *Repository[T] {
	return &Repository[T]{runner: runner, meta: meta}
}

// Label returns the node label T is stored under.
func (r *Repository[T]) Label() string {
	return r.meta.Label
}

// Create always creates a new node carrying every tagged property of entity, even
// when a node with the same key already exists.
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	val, err := entityValue(entity)
	if err != nil {
		return err
	}

	query, params, err := gocypher.NewQueryBuilder().
		Create(gocypher.N("n", r.meta.Label).WithProperties(r.meta.allProps(val))).
		Build()
	if err != nil {
		return fmt.Errorf("could not build create query: %w", err)
	}
	_, err = r.runner.Run(ctx, query, params)
	return err
}

// Save creates a new node or updates an existing one. It MERGEs on the key properties
// and SETs every other tagged property.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	val, err := entityValue(entity)
	if err != nil {
		return err
	}

	setProps := make(map[string]interface{})
	for _, fm := range r.meta.Mappings {
		if !fm.Key {
			// The property is prefixed with 'n.' for the SET clause.
			setProps["n."+fm.Prop] = val.FieldByName(fm.Field).Interface()
		}
	}

	qb := gocypher.NewQueryBuilder().
		Merge(gocypher.N("n", r.meta.Label).WithProperties(r.meta.keyProps(val)))
	if len(setProps) > 0 {
		qb = qb.Set(setProps)
	}

	query, params, err := qb.Return("n").Build()
	if err != nil {
		return fmt.Errorf("could not build save query: %w", err)
	}
	_, err = r.runner.Run(ctx, query, params)
	return err
}

// Delete removes every node whose key properties equal those of entity. DETACH DELETE
// also removes the relationships attached to it. Deleting a missing node is not an error.
func (r *Repository[T]) Delete(ctx context.Context, entity *T) error {
	val, err := entityValue(entity)
	if err != nil {
		return err
	}

	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(r.meta.keyProps(val))).
		DetachDelete("n").
		Build()
	if err != nil {
		return fmt.Errorf("could not build delete query: %w", err)
	}
	_, err = r.runner.Run(ctx, query, params)
	return err
}

// FindByKey retrieves the single node whose key properties equal those of probe.
//
// Returns:
//
//	A pointer to the found entity, ErrNotFound if no record is found, or another
//	error if the key matches more than one node or the mapping fails.
func (r *Repository[T]) FindByKey(ctx context.Context, probe *T) (*T, error) {
	val, err := entityValue(probe)
	if err != nil {
		return nil, err
	}
	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(r.meta.keyProps(val))).
		Return("n")
	return r.FindOne(ctx, qb)
}

// FindByProperty returns every node whose property prop equals value.
func (r *Repository[T]) FindByProperty(ctx context.Context, prop string, value interface{}) ([]*T, error) {
	if !r.meta.hasProp(prop) {
		return nil, fmt.Errorf("property %q is not mapped on %s", prop, r.meta.Label)
	}
	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(map[string]interface{}{prop: value})).
		Return("n")
	return r.Find(ctx, qb)
}

// FindAll returns every node carrying the repository's label.
func (r *Repository[T]) FindAll(ctx context.Context) ([]*T, error) {
	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label)).
		Return("n")
	return r.Find(ctx, qb)
}

// Find runs a caller-built read query and maps the first node of every returned record
// into a T. Records without a node value are skipped.
func (r *Repository[T]) Find(ctx context.Context, qb *gocypher.QueryBuilder) ([]*T, error) {
	query, params, err := qb.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	eagerResult, err := r.runner.RunRead(ctx, query, params)
	if err != nil {
		return nil, err
	}

	entities := make([]*T, 0, len(eagerResult.Records))
	for _, record := range eagerResult.Records {
		node, ok := firstNode(record)
		if !ok {
			continue
		}
		entity := new(T)
		if err := mapNodeToStruct(node, entity, r.meta); err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// FindOne is Find for queries that must match exactly one node.
func (r *Repository[T]) FindOne(ctx context.Context, qb *gocypher.QueryBuilder) (*T, error) {
	entities, err := r.Find(ctx, qb)
	if err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return entities[0], nil
	default:
		// A key lookup returning several nodes means duplicated identities in the graph.
		return nil, fmt.Errorf("expected 1 record but found %d", len(entities))
	}
}

// Count returns the number of nodes carrying the repository's label.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, nil)
}

// CountByProperty returns the number of nodes whose property prop equals value.
func (r *Repository[T]) CountByProperty(ctx context.Context, prop string, value interface{}) (int64, error) {
	if !r.meta.hasProp(prop) {
		return 0, fmt.Errorf("property %q is not mapped on %s", prop, r.meta.Label)
	}
	return r.count(ctx, map[string]interface{}{prop: value})
}

func (r *Repository[T]) count(ctx context.Context, props map[string]interface{}) (int64, error) {
	qb := gocypher.NewQueryBuilder()
	if len(props) == 0 {
		qb = qb.Match(gocypher.N("n", r.meta.Label))
	} else {
		qb = qb.Match(gocypher.N("n", r.meta.Label).WithProperties(props))
	}

	query, params, err := qb.Return("count(n) AS total").Build()
	if err != nil {
		return 0, fmt.Errorf("could not build count query: %w", err)
	}

	eagerResult, err := r.runner.RunRead(ctx, query, params)
	if err != nil {
		return 0, err
	}
	if len(eagerResult.Records) == 0 {
		return 0, nil
	}

	total, _, err := neo4j.GetRecordValue[int64](eagerResult.Records[0], "total")
	if err != nil {
		return 0, fmt.Errorf("could not read count: %w", err)
	}
	return total, nil
}

// entityValue dereferences entity, rejecting nil pointers.
func entityValue[T any](entity *T) (reflect.Value, error) {
	if entity == nil {
		return reflect.Value{}, fmt.Errorf("entity must be a non-nil pointer")
	}
	return reflect.ValueOf(entity).Elem(), nil
}

// firstNode returns the first node value of a record.
func firstNode(record *neo4j.Record) (neo4j.Node, bool) {
	for _, value := range record.Values {
		if node, ok := value.(neo4j.Node); ok {
			return node, true
		}
	}
	return neo4j.Node{}, false
}

// mapNodeToStruct populates a struct's fields from a neo4j.Node's properties, based on
// the parsed metadata. Numeric properties come back from the server as int64/float64
// and are converted to the field's type when the conversion is lossless in kind.
func mapNodeToStruct(node neo4j.Node, entity any, meta *entityMetadata) error {
	val := reflect.ValueOf(entity).Elem()

	for _, fm := range meta.Mappings {
		field := val.FieldByName(fm.Field)
		if !field.IsValid() || !field.CanSet() {
			continue
		}

		propValue, ok := node.Props[fm.Prop]
		if !ok || propValue == nil {
			continue
		}

		pv := reflect.ValueOf(propValue)
		switch {
		case pv.Type().AssignableTo(field.Type()):
			field.Set(pv)
		case pv.Type().ConvertibleTo(field.Type()) && sameKindFamily(pv.Kind(), field.Kind()):
			field.Set(pv.Convert(field.Type()))
		default:
			return fmt.Errorf("property %q of %s has type %T, cannot assign to field %s (%s)",
				fm.Prop, meta.Label, propValue, fm.Field, field.Type())
		}
	}
	return nil
}

// sameKindFamily keeps reflect conversions from turning numbers into strings.
func sameKindFamily(a, b reflect.Kind) bool {
	return kindFamily(a) != 0 && kindFamily(a) == kindFamily(b)
}

func kindFamily(k reflect.Kind) int {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return 1
	case reflect.Float32, reflect.Float64:
		return 2
	case reflect.String:
		return 3
	case reflect.Bool:
		return 4
	}
	return 0
}
