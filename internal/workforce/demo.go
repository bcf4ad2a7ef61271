package workforce

import (
	"context"

	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/go-neostaff/models"
)

// Script is the sequence of operations RunDemo performs.
type Script struct {
	Company models.Company
	Workers []models.Worker
	// FindName is looked up after the workers are created.
	FindName string
	// Remove is deleted after the lookup.
	Remove models.Worker
	// Employ is linked to Company last.
	Employ models.Worker
}

// DefaultScript returns the stock demo: two workers at My_company, one of whom is
// deleted again before the other is employed.
func DefaultScript() Script {
	james := models.Worker{Name: "James", Surname: "Wilson", Email: "jameswilson@gmail.com"}
	robert := models.Worker{Name: "Robert", Surname: "Chase", Email: "robertchase@gmail.com"}
	return Script{
		Company:  models.Company{Name: "My_company"},
		Workers:  []models.Worker{james, robert},
		FindName: james.Name,
		Remove:   james,
		Employ:   robert,
	}
}

// RunDemo executes script step by step against svc and stops at the first error.
func RunDemo(ctx context.Context, svc *Service, script Script) error {
	svc.logger.Info("demo started", zap.String("company", script.Company.Name), zap.Int("workers", len(script.Workers)))

	if err := svc.CreateCompany(ctx, script.Company.Name); err != nil {
		return err
	}
	for _, w := range script.Workers {
		if err := svc.CreateWorker(ctx, w.Name, w.Surname, w.Email); err != nil {
			return err
		}
	}
	if _, err := svc.FindWorker(ctx, script.FindName); err != nil {
		return err
	}
	if err := svc.DeleteWorker(ctx, script.Remove.Name, script.Remove.Surname, script.Remove.Email); err != nil {
		return err
	}
	if _, err := svc.CreateRelationship(ctx, script.Employ.Name, script.Employ.Surname, script.Employ.Email, script.Company.Name); err != nil {
		return err
	}

	svc.logger.Info("demo finished")
	return nil
}
