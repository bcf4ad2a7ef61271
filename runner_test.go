package neostaff

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type runnerCall struct {
	Query  string
	Params map[string]interface{}
	Read   bool
}

// fakeRunner records every query and replays queued results in order. Once the queue
// is drained it returns empty results.
type fakeRunner struct {
	calls   []runnerCall
	results []*neo4j.EagerResult
	errs    []error
}

func (f *fakeRunner) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	return f.next(query, params, false)
}

func (f *fakeRunner) RunRead(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	return f.next(query, params, true)
}

func (f *fakeRunner) next(query string, params map[string]interface{}, read bool) (*neo4j.EagerResult, error) {
	f.calls = append(f.calls, runnerCall{Query: query, Params: params, Read: read})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.results) > 0 {
		res := f.results[0]
		f.results = f.results[1:]
		return res, nil
	}
	return &neo4j.EagerResult{}, nil
}

func (f *fakeRunner) last() runnerCall {
	return f.calls[len(f.calls)-1]
}

// binds reports whether want reaches the database through the call, either as a bound
// parameter (possibly nested in a map) or inline in the query text.
func (c runnerCall) binds(want interface{}) bool {
	if containsValue(c.Params, want) {
		return true
	}
	if s, ok := want.(string); ok {
		return strings.Contains(c.Query, s)
	}
	return strings.Contains(c.Query, fmt.Sprint(want))
}

func containsValue(v interface{}, want interface{}) bool {
	switch t := v.(type) {
	case map[string]interface{}:
		for _, inner := range t {
			if containsValue(inner, want) {
				return true
			}
		}
		return false
	case []interface{}:
		for _, inner := range t {
			if containsValue(inner, want) {
				return true
			}
		}
		return false
	default:
		return reflect.DeepEqual(v, want)
	}
}

func nodeRecord(key string, node neo4j.Node) *neo4j.Record {
	return &neo4j.Record{Keys: []string{key}, Values: []any{node}}
}

func eager(records ...*neo4j.Record) *neo4j.EagerResult {
	return &neo4j.EagerResult{Records: records}
}
