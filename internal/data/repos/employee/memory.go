package employee

import (
	"context"
	"sort"
	"sync"

	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
)

type memoryRepo struct {
	mu   sync.RWMutex
	rows map[string]int64
	log  *logger.Logger
}

// NewMemoryRepo returns a process-local store. Name uniqueness and the value
// range are enforced under the store's lock.
func NewMemoryRepo(baseLog *logger.Logger, seed ...types.Employee) EmployeeRepo {
	r := &memoryRepo{
		rows: make(map[string]int64, len(seed)),
		log:  baseLog.With("repo", "MemoryEmployeeRepo"),
	}
	for _, rec := range seed {
		r.rows[rec.Name] = rec.Value
	}
	return r
}

func (r *memoryRepo) List(ctx context.Context) ([]types.Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.MapStoreError("employee.list", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(), nil
}

func (r *memoryRepo) Insert(ctx context.Context, rec types.Employee) (types.Employee, error) {
	if err := ctx.Err(); err != nil {
		return types.Employee{}, types.MapStoreError("employee.insert", err)
	}
	if err := checkRange("employee.insert", rec.Value); err != nil {
		return types.Employee{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[rec.Name]; exists {
		return types.Employee{}, types.NewError(types.CodeNotFoundOrConflict, "employee.insert", "name already exists", nil)
	}
	r.rows[rec.Name] = rec.Value
	return rec, nil
}

func (r *memoryRepo) UpdateByKey(ctx context.Context, key types.EmployeeKey, rec types.Employee) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, types.MapStoreError("employee.update", err)
	}
	if err := checkRange("employee.update", rec.Value); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	old := key.String()
	if _, ok := r.rows[old]; !ok {
		return 0, nil
	}
	if rec.Name != old {
		if _, taken := r.rows[rec.Name]; taken {
			return 0, types.NewError(types.CodeNotFoundOrConflict, "employee.update", "name already exists", nil)
		}
		delete(r.rows, old)
	}
	r.rows[rec.Name] = rec.Value
	return 1, nil
}

func (r *memoryRepo) DeleteByKey(ctx context.Context, key types.EmployeeKey) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, types.MapStoreError("employee.delete", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[key.String()]; !ok {
		return 0, nil
	}
	delete(r.rows, key.String())
	return 1, nil
}

func (r *memoryRepo) ApplyIncrement(ctx context.Context, inc types.TieredIncrement) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, types.MapStoreError("employee.increment", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next, err := inc.Apply(r.snapshot())
	if err != nil {
		return 0, err
	}
	for _, rec := range next {
		r.rows[rec.Name] = rec.Value
	}
	return int64(len(next)), nil
}

// snapshot must be called with the lock held.
func (r *memoryRepo) snapshot() []types.Employee {
	out := make([]types.Employee, 0, len(r.rows))
	for name, value := range r.rows {
		out = append(out, types.Employee{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func checkRange(op string, v int64) error {
	if v < types.MinValue || v > types.MaxValue {
		return types.NewError(types.CodeInvariantViolation, op, "value out of range", nil)
	}
	return nil
}
