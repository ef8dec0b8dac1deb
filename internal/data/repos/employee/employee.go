package employee

import (
	"context"
	"strings"

	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
	"gorm.io/gorm"
)

// EmployeeRepo is the record store. Update and delete report the number of
// rows they affected and leave the interpretation of that count to callers.
type EmployeeRepo interface {
	List(ctx context.Context) ([]types.Employee, error)
	Insert(ctx context.Context, rec types.Employee) (types.Employee, error)
	UpdateByKey(ctx context.Context, key types.EmployeeKey, rec types.Employee) (int64, error)
	DeleteByKey(ctx context.Context, key types.EmployeeKey) (int64, error)
	// ApplyIncrement applies the tiered deltas to every record as one unit.
	ApplyIncrement(ctx context.Context, inc types.TieredIncrement) (int64, error)
}

type employeeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmployeeRepo(db *gorm.DB, baseLog *logger.Logger) EmployeeRepo {
	repoLog := baseLog.With("repo", "EmployeeRepo")
	return &employeeRepo{db: db, log: repoLog}
}

func (r *employeeRepo) List(ctx context.Context) ([]types.Employee, error) {
	var results []types.Employee
	if err := r.db.WithContext(ctx).
		Order("name").
		Find(&results).Error; err != nil {
		return nil, types.MapStoreError("employee.list", err)
	}
	return results, nil
}

func (r *employeeRepo) Insert(ctx context.Context, rec types.Employee) (types.Employee, error) {
	if err := checkRange("employee.insert", rec.Value); err != nil {
		return types.Employee{}, err
	}
	res := r.db.WithContext(ctx).Create(&rec)
	if res.Error != nil {
		return types.Employee{}, types.MapStoreError("employee.insert", res.Error)
	}
	if err := types.RequireSingleRow("employee.insert", res.RowsAffected); err != nil {
		return types.Employee{}, err
	}
	return rec, nil
}

func (r *employeeRepo) UpdateByKey(ctx context.Context, key types.EmployeeKey, rec types.Employee) (int64, error) {
	if err := checkRange("employee.update", rec.Value); err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).
		Model(&types.Employee{}).
		Where("name = ?", key.String()).
		Updates(map[string]any{
			"name":  rec.Name,
			"value": rec.Value,
		})
	if res.Error != nil {
		return 0, types.MapStoreError("employee.update", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *employeeRepo) DeleteByKey(ctx context.Context, key types.EmployeeKey) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("name = ?", key.String()).
		Delete(&types.Employee{})
	if res.Error != nil {
		return 0, types.MapStoreError("employee.delete", res.Error)
	}
	return res.RowsAffected, nil
}

// ApplyIncrement issues a single CASE update, so the statement either applies
// every delta or none of them.
func (r *employeeRepo) ApplyIncrement(ctx context.Context, inc types.TieredIncrement) (int64, error) {
	expr, args := incrementExpr(inc)
	res := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&types.Employee{}).
		Update("value", gorm.Expr(expr, args...))
	if res.Error != nil {
		return 0, types.MapStoreError("employee.increment", res.Error)
	}
	r.log.Debug("Applied tiered increment", "rows", res.RowsAffected)
	return res.RowsAffected, nil
}

func incrementExpr(inc types.TieredIncrement) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, 2*len(inc.Tiers)+1)
	b.WriteString("CASE")
	for _, tier := range inc.SortedTiers() {
		b.WriteString(" WHEN substr(name, 1, 1) = ? THEN value + ?")
		args = append(args, string(tier.Initial), tier.Delta)
	}
	b.WriteString(" ELSE value + ? END")
	args = append(args, inc.Default)
	return b.String(), args
}
