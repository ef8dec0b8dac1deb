package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/employee-directory/internal/data/repos/employee"
	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/observability"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
)

// EmployeeService is single-record CRUD addressed by name. Update and delete
// fail with CodeNotFoundOrConflict unless exactly one record was affected.
type EmployeeService interface {
	List(ctx context.Context) ([]types.Employee, error)
	Add(ctx context.Context, candidate types.Employee) (types.Employee, error)
	Update(ctx context.Context, key types.EmployeeKey, replacement types.Employee) error
	Delete(ctx context.Context, key types.EmployeeKey) error
}

type employeeService struct {
	log      *logger.Logger
	repo     employee.EmployeeRepo
	notifier ChangeNotifier
	metrics  *observability.Metrics
}

func NewEmployeeService(log *logger.Logger, repo employee.EmployeeRepo, notifier ChangeNotifier, metrics *observability.Metrics) EmployeeService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &employeeService{
		log:      log.With("service", "EmployeeService"),
		repo:     repo,
		notifier: notifier,
		metrics:  metrics,
	}
}

func (s *employeeService) List(ctx context.Context) (out []types.Employee, err error) {
	ctx, finish := traced(ctx, s.metrics, "employee.list")
	defer func() { finish(err) }()

	out, err = s.repo.List(ctx)
	if err != nil {
		s.log.Error("list employees failed", "error", err)
		return nil, err
	}
	return out, nil
}

func (s *employeeService) Add(ctx context.Context, candidate types.Employee) (out types.Employee, err error) {
	ctx, finish := traced(ctx, s.metrics, "employee.add")
	defer func() { finish(err) }()

	rec, err := types.ValidateEmployee(candidate)
	if err != nil {
		return types.Employee{}, err
	}
	out, err = s.repo.Insert(ctx, rec)
	if err != nil {
		s.log.Warn("add employee failed", "name", rec.Name, "error", err)
		return types.Employee{}, err
	}
	s.notifier.EmployeesChanged(ctx, OpAdd, out.Name)
	return out, nil
}

func (s *employeeService) Update(ctx context.Context, key types.EmployeeKey, replacement types.Employee) (err error) {
	ctx, finish := traced(ctx, s.metrics, "employee.update", attribute.String("employee.key", key.String()))
	defer func() { finish(err) }()

	rec, err := types.ValidateEmployee(replacement)
	if err != nil {
		return err
	}
	affected, err := s.repo.UpdateByKey(ctx, key, rec)
	if err != nil {
		s.log.Warn("update employee failed", "key", key.String(), "error", err)
		return err
	}
	if err := types.RequireSingleRow("employee.update", affected); err != nil {
		s.log.Debug("update affected unexpected row count", "key", key.String(), "affected", affected)
		return err
	}
	s.notifier.EmployeesChanged(ctx, OpUpdate, rec.Name)
	return nil
}

func (s *employeeService) Delete(ctx context.Context, key types.EmployeeKey) (err error) {
	ctx, finish := traced(ctx, s.metrics, "employee.delete", attribute.String("employee.key", key.String()))
	defer func() { finish(err) }()

	affected, err := s.repo.DeleteByKey(ctx, key)
	if err != nil {
		s.log.Warn("delete employee failed", "key", key.String(), "error", err)
		return err
	}
	if err := types.RequireSingleRow("employee.delete", affected); err != nil {
		return err
	}
	s.notifier.EmployeesChanged(ctx, OpDelete, key.String())
	return nil
}
