package syncstate

import (
	"context"
	"fmt"
	"sync"

	types "github.com/yungbote/employee-directory/internal/domain"
)

// Backend is the server surface the runner drives. *client.Client
// satisfies it.
type Backend interface {
	List(ctx context.Context) ([]types.Employee, error)
	Sum(ctx context.Context) (int64, error)
	Add(ctx context.Context, rec types.Employee) (types.Employee, error)
	Update(ctx context.Context, key types.EmployeeKey, replacement types.Employee) error
	Delete(ctx context.Context, key types.EmployeeKey) error
	IncrementAll(ctx context.Context) error
}

// Exec runs one command and returns the message reporting its outcome.
func Exec(ctx context.Context, b Backend, cmd Cmd) Msg {
	switch c := cmd.(type) {
	case Refresh:
		records, err := b.List(ctx)
		if err != nil {
			return RefreshDone{Err: err}
		}
		sum, err := b.Sum(ctx)
		if err != nil {
			return RefreshDone{Err: err}
		}
		return RefreshDone{Records: records, Aggregate: sum}

	case Mutate:
		var err error
		switch in := c.Intent.(type) {
		case Add:
			_, err = b.Add(ctx, in.Record)
		case Update:
			err = b.Update(ctx, in.Key, in.Record)
		case Delete:
			err = b.Delete(ctx, in.Key)
		case IncrementAll:
			err = b.IncrementAll(ctx)
		default:
			err = fmt.Errorf("unsupported intent %T", c.Intent)
		}
		return MutationDone{Intent: c.Intent, Err: err}
	}
	return nil
}

// Runner owns a State and executes its commands. Dispatch may be called
// from several goroutines; intents arriving while a command is in flight
// queue behind it.
type Runner struct {
	mu       sync.Mutex
	state    State
	backend  Backend
	onChange func(State)
}

// NewRunner starts from New(). onChange, when set, sees every state.
func NewRunner(b Backend, onChange func(State)) *Runner {
	return &Runner{state: New(), backend: b, onChange: onChange}
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// Start runs the initial refresh.
func (r *Runner) Start(ctx context.Context) State {
	return r.Dispatch(ctx, RefreshRequested{})
}

// Dispatch applies msg and, if that hands this caller a command, keeps
// executing until the state settles. Commands run without the lock held.
func (r *Runner) Dispatch(ctx context.Context, msg Msg) State {
	r.mu.Lock()
	next, cmd := Step(r.state, msg)
	r.state = next
	r.notify(next)
	r.mu.Unlock()

	for cmd != nil {
		result := Exec(ctx, r.backend, cmd)
		r.mu.Lock()
		next, cmd = Step(r.state, result)
		r.state = next
		r.notify(next)
		r.mu.Unlock()
	}
	return r.State()
}

func (r *Runner) notify(s State) {
	if r.onChange != nil {
		r.onChange(s.clone())
	}
}
