package services

import (
	"context"

	"github.com/yungbote/employee-directory/internal/data/repos/employee"
	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/observability"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
)

// BulkService applies the tiered increment to every record as one unit.
type BulkService interface {
	// IncrementAll returns the number of records changed. An empty store is
	// a successful no-op.
	IncrementAll(ctx context.Context) (int64, error)
}

type bulkService struct {
	log       *logger.Logger
	repo      employee.EmployeeRepo
	increment types.TieredIncrement
	notifier  ChangeNotifier
	metrics   *observability.Metrics
}

func NewBulkService(log *logger.Logger, repo employee.EmployeeRepo, increment types.TieredIncrement, notifier ChangeNotifier, metrics *observability.Metrics) BulkService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &bulkService{
		log:       log.With("service", "BulkService"),
		repo:      repo,
		increment: increment,
		notifier:  notifier,
		metrics:   metrics,
	}
}

func (s *bulkService) IncrementAll(ctx context.Context) (affected int64, err error) {
	ctx, finish := traced(ctx, s.metrics, "employee.increment")
	defer func() { finish(err) }()

	affected, err = s.repo.ApplyIncrement(ctx, s.increment)
	if err != nil {
		s.log.Warn("tiered increment failed", "error", err)
		return 0, err
	}
	s.log.Info("tiered increment applied", "affected", affected)
	if affected > 0 {
		s.notifier.EmployeesChanged(ctx, OpIncrement, "")
	}
	return affected, nil
}
