// Package workforce implements the staff directory operations on top of the neostaff
// persistence layer. Each operation reports what it did on the Service's output writer.
package workforce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/go-neostaff"
	"github.com/saulfrancisco-ruizacevedo/go-neostaff/models"
)

// ErrInvalidInput wraps every validation failure.
var ErrInvalidInput = errors.New("invalid input")

// Employment is one WorksIn edge created by CreateRelationship.
type Employment struct {
	Worker  string
	Company string
}

// Service runs the company/worker operations.
type Service struct {
	manager   *neostaff.PersistenceManager
	companies *neostaff.Repository[models.Company]
	workers   *neostaff.Repository[models.Worker]
	validate  *validator.Validate
	out       io.Writer
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithOutput redirects the operation reports (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(s *Service) { s.out = w }
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service that sends its queries through manager.
func NewService(manager *neostaff.PersistenceManager, opts ...Option) (*Service, error) {
	companies, err := neostaff.RepositoryFor[models.Company](manager)
	if err != nil {
		return nil, fmt.Errorf("company repository: %w", err)
	}
	workers, err := neostaff.RepositoryFor[models.Worker](manager)
	if err != nil {
		return nil, fmt.Errorf("worker repository: %w", err)
	}

	s := &Service{
		manager:   manager,
		companies: companies,
		workers:   workers,
		validate:  validator.New(),
		out:       os.Stdout,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateCompany creates a Company node named name.
func (s *Service) CreateCompany(ctx context.Context, name string) error {
	company := &models.Company{Name: name}
	if err := s.check(company); err != nil {
		return err
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return fmt.Errorf("create company %q: %w", name, err)
	}
	s.logger.Debug("company created", zap.String("company", name))
	s.printf("Created company named %s\n", name)
	return nil
}

// CreateWorker creates a Worker node.
func (s *Service) CreateWorker(ctx context.Context, name, surname, email string) error {
	worker := &models.Worker{Name: name, Surname: surname, Email: email}
	if err := s.check(worker); err != nil {
		return err
	}
	if err := s.workers.Create(ctx, worker); err != nil {
		return fmt.Errorf("create worker %s: %w", worker.FullName(), err)
	}
	s.logger.Debug("worker created", zap.String("worker", worker.FullName()), zap.String("email", email))
	s.printf("Created worker %s %s\n", name, surname)
	return nil
}

// DeleteWorker removes every worker matching name, surname and email together with
// its relationships. Deleting a worker that does not exist succeeds.
func (s *Service) DeleteWorker(ctx context.Context, name, surname, email string) error {
	worker := &models.Worker{Name: name, Surname: surname, Email: email}
	if err := s.check(worker); err != nil {
		return err
	}
	if err := s.workers.Delete(ctx, worker); err != nil {
		return fmt.Errorf("delete worker %s: %w", worker.FullName(), err)
	}
	s.logger.Debug("worker deleted", zap.String("worker", worker.FullName()))
	s.printf("Deleted worker %s %s\n", name, surname)
	return nil
}

// CreateRelationship links the matching worker to the company with a WorksIn edge.
// It returns neostaff.ErrNotFound when the worker or the company does not exist.
func (s *Service) CreateRelationship(ctx context.Context, workerName, surname, email, companyName string) ([]Employment, error) {
	worker := &models.Worker{Name: workerName, Surname: surname, Email: email}
	company := &models.Company{Name: companyName}
	if err := s.check(worker); err != nil {
		return nil, err
	}
	if err := s.check(company); err != nil {
		return nil, err
	}

	graph, err := s.manager.CreateRelation(ctx, worker, company, models.RelWorksIn, nil)
	if err != nil {
		return nil, fmt.Errorf("link %s to %s: %w", worker.FullName(), companyName, err)
	}

	links := make([]Employment, 0, len(graph.Edges))
	for _, edge := range graph.Edges {
		from, _ := graph.Node(edge.Source)
		to, _ := graph.Node(edge.Target)
		link := Employment{Worker: workerName, Company: companyName}
		if from != nil {
			link.Worker = from.Name()
		}
		if to != nil {
			link.Company = to.Name()
		}
		links = append(links, link)
		s.printf("Created %s relationship between: %s, %s\n", edge.Type, link.Worker, link.Company)
	}
	return links, nil
}

// FindWorker returns the surnames of every worker called name.
func (s *Service) FindWorker(ctx context.Context, name string) ([]string, error) {
	if name == "" {
		return nil, fmt.Errorf("worker name is required: %w", ErrInvalidInput)
	}

	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("p", s.workers.Label()).WithProperties(map[string]interface{}{"name": name})).
		Return("p.surname AS surname")
	result, err := s.manager.Read(ctx, qb)
	if err != nil {
		return nil, fmt.Errorf("find worker %q: %w", name, err)
	}

	surnames := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		surname, isNil, err := neo4j.GetRecordValue[string](record, "surname")
		if err != nil {
			return nil, fmt.Errorf("find worker %q: %w", name, err)
		}
		if isNil {
			continue
		}
		surnames = append(surnames, surname)
		s.printf("Found person: %s\n", surname)
	}
	return surnames, nil
}

// Roster returns the company node together with every worker employed there. A company
// without workers yields just its own node; ErrNotFound means the company is missing.
func (s *Service) Roster(ctx context.Context, companyName string) (*models.GraphResult, error) {
	company := &models.Company{Name: companyName}
	if err := s.check(company); err != nil {
		return nil, err
	}

	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("c", s.companies.Label()).WithProperties(map[string]interface{}{"name": companyName})).
		OptionalMatch(
			gocypher.N("w", s.workers.Label()),
			gocypher.R("r", models.RelWorksIn).To(),
			gocypher.NRef("c"),
		).
		Return("c", "r", "w")

	graph, err := s.manager.FindGraph(ctx, qb)
	if err != nil {
		return nil, fmt.Errorf("roster of %q: %w", companyName, err)
	}
	return graph, nil
}

// ListWorkers prints and returns every worker.
func (s *Service) ListWorkers(ctx context.Context) ([]*models.Worker, error) {
	workers, err := s.workers.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	for _, w := range workers {
		s.printf("Worker: %s %s %s\n", w.Name, w.Surname, w.Email)
	}
	s.printf("Total workers: %d\n", len(workers))
	return workers, nil
}

func (s *Service) check(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	return nil
}

func (s *Service) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}
