package syncstate

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/employee-directory/internal/domain"
)

type fakeBackend struct {
	mu      sync.Mutex
	records map[string]int64
	calls   []string
	failSum bool
}

func newFakeBackend(recs ...types.Employee) *fakeBackend {
	b := &fakeBackend{records: map[string]int64{}}
	for _, r := range recs {
		b.records[r.Name] = r.Value
	}
	return b
}

func (b *fakeBackend) record(call string) {
	b.calls = append(b.calls, call)
}

func (b *fakeBackend) List(ctx context.Context) ([]types.Employee, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("list")
	out := make([]types.Employee, 0, len(b.records))
	for n, v := range b.records {
		out = append(out, types.Employee{Name: n, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *fakeBackend) Sum(ctx context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("sum")
	if b.failSum {
		return 0, errors.New("sum unavailable")
	}
	var recs []types.Employee
	for n, v := range b.records {
		recs = append(recs, types.Employee{Name: n, Value: v})
	}
	return types.SumByInitial(recs, types.DefaultAggregateInitials()), nil
}

func (b *fakeBackend) Add(ctx context.Context, rec types.Employee) (types.Employee, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("add")
	if _, ok := b.records[rec.Name]; ok {
		return types.Employee{}, types.NotFoundOrConflict("employee.add", 0)
	}
	b.records[rec.Name] = rec.Value
	return rec, nil
}

func (b *fakeBackend) Update(ctx context.Context, key types.EmployeeKey, rec types.Employee) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("update")
	if _, ok := b.records[key.String()]; !ok {
		return types.NotFoundOrConflict("employee.update", 0)
	}
	delete(b.records, key.String())
	b.records[rec.Name] = rec.Value
	return nil
}

func (b *fakeBackend) Delete(ctx context.Context, key types.EmployeeKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("delete")
	if _, ok := b.records[key.String()]; !ok {
		return types.NotFoundOrConflict("employee.delete", 0)
	}
	delete(b.records, key.String())
	return nil
}

func (b *fakeBackend) IncrementAll(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("increment")
	var recs []types.Employee
	for n, v := range b.records {
		recs = append(recs, types.Employee{Name: n, Value: v})
	}
	next, err := types.DefaultTieredIncrement().Apply(recs)
	if err != nil {
		return err
	}
	for _, r := range next {
		b.records[r.Name] = r.Value
	}
	return nil
}

func TestRunnerAliceScenario(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(types.Employee{Name: "Alice", Value: 100})
	var seen []State
	r := NewRunner(backend, func(s State) { seen = append(seen, s) })

	s := r.Start(ctx)
	require.True(t, s.Ready())
	assert.Equal(t, int64(100), s.Aggregate)

	s = r.Dispatch(ctx, IncrementAll{})
	assert.Equal(t, int64(200), s.Aggregate)
	assert.Equal(t, []types.Employee{{Name: "Alice", Value: 200}}, s.Records)
	assert.False(t, s.Stale)
	assert.Equal(t, []string{"list", "sum", "increment", "list", "sum"}, backend.calls)

	require.NotEmpty(t, seen)
	sawLoading := false
	for _, st := range seen {
		sawLoading = sawLoading || st.Loading
	}
	assert.True(t, sawLoading)
}

func TestRunnerServerRejectionSurfacesError(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	r := NewRunner(backend, nil)
	r.Start(ctx)

	s := r.Dispatch(ctx, Delete{Key: "Ghost"})
	assert.True(t, types.IsCode(s.Err, types.CodeNotFoundOrConflict))
	assert.False(t, s.Loading)
	assert.Equal(t, []string{"list", "sum", "delete"}, backend.calls)
}

func TestRunnerRefreshFailureKeepsLastValues(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(types.Employee{Name: "Bea", Value: 5})
	r := NewRunner(backend, nil)
	r.Start(ctx)

	backend.failSum = true
	s := r.Dispatch(ctx, Add{Record: types.Employee{Name: "Cal", Value: 1}})
	assert.Error(t, s.RefreshErr)
	assert.Equal(t, int64(5), s.Aggregate)
	assert.Len(t, s.Records, 1)

	backend.failSum = false
	s = r.Dispatch(ctx, RefreshRequested{})
	assert.NoError(t, s.RefreshErr)
	assert.Equal(t, int64(6), s.Aggregate)
}

func TestRunnerSerializesConcurrentIntents(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	r := NewRunner(backend, nil)
	r.Start(ctx)

	var wg sync.WaitGroup
	for _, name := range []string{"Ann", "Ben", "Cat", "Dan"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			r.Dispatch(ctx, Add{Record: types.Employee{Name: name, Value: 1}})
		}(name)
	}
	wg.Wait()

	s := r.State()
	assert.False(t, s.Loading)
	assert.Equal(t, 0, s.Pending())
	assert.Len(t, s.Records, 4)
	assert.Equal(t, int64(3), s.Aggregate)
}
