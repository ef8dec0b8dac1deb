package services

import (
	"context"

	"github.com/yungbote/employee-directory/internal/data/repos/employee"
	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/observability"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
)

// AggregateService computes the initial-filtered sum from the store's current
// contents on every call.
type AggregateService interface {
	Sum(ctx context.Context) (int64, error)
}

type aggregateService struct {
	log      *logger.Logger
	repo     employee.EmployeeRepo
	initials types.Initials
	metrics  *observability.Metrics
}

// NewAggregateService sums over records starting with one of initials; an
// empty set means the production set {A, B, C}.
func NewAggregateService(log *logger.Logger, repo employee.EmployeeRepo, initials types.Initials, metrics *observability.Metrics) AggregateService {
	if len(initials) == 0 {
		initials = types.DefaultAggregateInitials()
	}
	return &aggregateService{
		log:      log.With("service", "AggregateService"),
		repo:     repo,
		initials: initials,
		metrics:  metrics,
	}
}

func (s *aggregateService) Sum(ctx context.Context) (total int64, err error) {
	ctx, finish := traced(ctx, s.metrics, "employee.sum")
	defer func() { finish(err) }()

	records, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error("sum employees failed", "error", err)
		return 0, err
	}
	return types.SumByInitial(records, s.initials), nil
}
