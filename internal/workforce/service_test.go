package workforce

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-neostaff"
)

type call struct {
	query  string
	params map[string]interface{}
	read   bool
}

type answer struct {
	fragment string
	result   *neo4j.EagerResult
}

// stubRunner answers a query with the first answer whose fragment occurs in the query
// text; an empty fragment matches anything. Unmatched queries get an empty result.
type stubRunner struct {
	calls   []call
	answers []answer
	fail    error
}

func (s *stubRunner) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	return s.reply(query, params, false)
}

func (s *stubRunner) RunRead(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	return s.reply(query, params, true)
}

func (s *stubRunner) reply(query string, params map[string]interface{}, read bool) (*neo4j.EagerResult, error) {
	s.calls = append(s.calls, call{query: query, params: params, read: read})
	if s.fail != nil {
		return nil, s.fail
	}
	for _, a := range s.answers {
		if strings.Contains(query, a.fragment) {
			return a.result, nil
		}
	}
	return &neo4j.EagerResult{}, nil
}

func newTestService(t *testing.T, runner *stubRunner) (*Service, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	svc, err := NewService(neostaff.NewPersistenceManager(runner), WithOutput(&out))
	require.NoError(t, err)
	return svc, &out
}

func employmentResult(worker, company string) *neo4j.EagerResult {
	w := neo4j.Node{ElementId: "w1", Labels: []string{"Worker"}, Props: map[string]any{"name": worker}}
	c := neo4j.Node{ElementId: "c1", Labels: []string{"Company"}, Props: map[string]any{"name": company}}
	r := neo4j.Relationship{ElementId: "r1", StartElementId: "w1", EndElementId: "c1", Type: "WorksIn"}
	return &neo4j.EagerResult{Records: []*neo4j.Record{{Keys: []string{"a", "r", "b"}, Values: []any{w, r, c}}}}
}

func TestCreateCompany(t *testing.T) {
	runner := &stubRunner{}
	svc, out := newTestService(t, runner)

	require.NoError(t, svc.CreateCompany(context.Background(), "My_company"))

	assert.Equal(t, "Created company named My_company\n", out.String())
	require.Len(t, runner.calls, 1)
	assert.Contains(t, runner.calls[0].query, "Company")
	assert.False(t, runner.calls[0].read)
}

func TestCreateWorker(t *testing.T) {
	runner := &stubRunner{}
	svc, out := newTestService(t, runner)

	require.NoError(t, svc.CreateWorker(context.Background(), "James", "Wilson", "jameswilson@gmail.com"))

	assert.Equal(t, "Created worker James Wilson\n", out.String())
	require.Len(t, runner.calls, 1)
	assert.Contains(t, runner.calls[0].query, "Worker")
}

func TestDeleteWorker(t *testing.T) {
	runner := &stubRunner{}
	svc, out := newTestService(t, runner)

	require.NoError(t, svc.DeleteWorker(context.Background(), "James", "Wilson", "jameswilson@gmail.com"))

	assert.Equal(t, "Deleted worker James Wilson\n", out.String())
	assert.Contains(t, runner.calls[0].query, "DETACH DELETE")
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(svc *Service) error
	}{
		{name: "empty company", run: func(svc *Service) error { return svc.CreateCompany(ctx, "") }},
		{name: "bad email", run: func(svc *Service) error { return svc.CreateWorker(ctx, "James", "Wilson", "not-an-email") }},
		{name: "missing surname", run: func(svc *Service) error { return svc.DeleteWorker(ctx, "James", "", "j@x.io") }},
		{name: "empty find", run: func(svc *Service) error { _, err := svc.FindWorker(ctx, ""); return err }},
		{name: "relate to empty company", run: func(svc *Service) error {
			_, err := svc.CreateRelationship(ctx, "Robert", "Chase", "robertchase@gmail.com", "")
			return err
		}},
		{name: "empty roster", run: func(svc *Service) error { _, err := svc.Roster(ctx, ""); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{}
			svc, out := newTestService(t, runner)

			err := tt.run(svc)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, runner.calls, "invalid input must not reach the database")
			assert.Empty(t, out.String())
		})
	}
}

func TestCreateRelationship(t *testing.T) {
	runner := &stubRunner{answers: []answer{
		{fragment: "WorksIn", result: employmentResult("Robert", "My_company")},
	}}
	svc, out := newTestService(t, runner)

	links, err := svc.CreateRelationship(context.Background(), "Robert", "Chase", "robertchase@gmail.com", "My_company")
	require.NoError(t, err)

	assert.Equal(t, []Employment{{Worker: "Robert", Company: "My_company"}}, links)
	assert.Equal(t, "Created WorksIn relationship between: Robert, My_company\n", out.String())
	assert.False(t, runner.calls[0].read)
}

func TestCreateRelationshipMissingEndpoint(t *testing.T) {
	svc, out := newTestService(t, &stubRunner{})

	_, err := svc.CreateRelationship(context.Background(), "Ghost", "Nobody", "ghost@example.com", "My_company")
	assert.ErrorIs(t, err, neostaff.ErrNotFound)
	assert.Empty(t, out.String())
}

func TestFindWorker(t *testing.T) {
	runner := &stubRunner{answers: []answer{
		{fragment: "surname", result: &neo4j.EagerResult{Records: []*neo4j.Record{
			{Keys: []string{"surname"}, Values: []any{"Wilson"}},
			{Keys: []string{"surname"}, Values: []any{nil}},
			{Keys: []string{"surname"}, Values: []any{"Bond"}},
		}}},
	}}
	svc, out := newTestService(t, runner)

	surnames, err := svc.FindWorker(context.Background(), "James")
	require.NoError(t, err)

	assert.Equal(t, []string{"Wilson", "Bond"}, surnames)
	assert.Equal(t, "Found person: Wilson\nFound person: Bond\n", out.String())
	assert.True(t, runner.calls[0].read)
	assert.Contains(t, runner.calls[0].query, "MATCH (p:Worker {name: $")
}

func TestFindWorkerPropagatesDatabaseErrors(t *testing.T) {
	down := errors.New("service unavailable")
	svc, _ := newTestService(t, &stubRunner{fail: down})

	_, err := svc.FindWorker(context.Background(), "James")
	assert.ErrorIs(t, err, down)
}

func TestRoster(t *testing.T) {
	runner := &stubRunner{answers: []answer{
		{fragment: "WorksIn", result: employmentResult("Robert", "My_company")},
	}}
	svc, _ := newTestService(t, runner)

	graph, err := svc.Roster(context.Background(), "My_company")
	require.NoError(t, err)
	assert.Len(t, graph.Nodes, 2)
	assert.Len(t, graph.Edges, 1)
	assert.True(t, runner.calls[0].read)
	assert.Contains(t, runner.calls[0].query, "MATCH (c:Company")
	assert.Contains(t, runner.calls[0].query, "OPTIONAL MATCH (w:Worker)-[r:WorksIn]->(c)")
}

func TestRosterCompanyWithoutWorkers(t *testing.T) {
	company := neo4j.Node{ElementId: "c1", Labels: []string{"Company"}, Props: map[string]any{"name": "Empty_company"}}
	runner := &stubRunner{answers: []answer{
		{fragment: "WorksIn", result: &neo4j.EagerResult{Records: []*neo4j.Record{
			{Keys: []string{"c", "r", "w"}, Values: []any{company, nil, nil}},
		}}},
	}}
	svc, _ := newTestService(t, runner)

	graph, err := svc.Roster(context.Background(), "Empty_company")
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, "Empty_company", graph.Nodes[0].Name())
	assert.Empty(t, graph.Edges)
}

func TestRosterMissingCompany(t *testing.T) {
	svc, _ := newTestService(t, &stubRunner{})

	_, err := svc.Roster(context.Background(), "Ghost_company")
	assert.ErrorIs(t, err, neostaff.ErrNotFound)
}

func TestListWorkers(t *testing.T) {
	robert := neo4j.Node{ElementId: "w1", Labels: []string{"Worker"},
		Props: map[string]any{"name": "Robert", "surname": "Chase", "email": "robertchase@gmail.com"}}
	runner := &stubRunner{answers: []answer{
		{fragment: "", result: &neo4j.EagerResult{Records: []*neo4j.Record{{Keys: []string{"n"}, Values: []any{robert}}}}},
	}}
	svc, out := newTestService(t, runner)

	workers, err := svc.ListWorkers(context.Background())
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "robertchase@gmail.com", workers[0].Email)
	assert.Equal(t, "Worker: Robert Chase robertchase@gmail.com\nTotal workers: 1\n", out.String())
	require.Len(t, runner.calls, 1, "the total comes from the listed workers")
	assert.NotContains(t, runner.calls[0].query, "count(")
}
