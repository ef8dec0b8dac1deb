// Package syncstate keeps a client's view of the directory consistent with
// the server. Step is a pure transition function; Runner executes the
// commands it returns against a Backend.
package syncstate

import (
	"fmt"
	"strings"

	types "github.com/yungbote/employee-directory/internal/domain"
)

// State is the client's cached view plus the flags that drive refreshes.
// Loading is true while exactly one command is in flight.
type State struct {
	Loading    bool
	Stale      bool
	Loaded     bool
	Records    []types.Employee
	Aggregate  int64
	EditingKey *types.EmployeeKey

	// Err is the last failed or rejected intent. RefreshErr is set when a
	// refresh fails; automatic refreshes stop until RefreshRequested.
	Err        error
	RefreshErr error

	pending     []Msg
	invalidated bool
}

// New returns the initial state: nothing loaded and a refresh owed.
func New() State {
	return State{Stale: true}
}

// Ready reports whether records are loaded and nothing is in flight.
func (s State) Ready() bool { return s.Loaded && !s.Loading }

// Editing reports whether key is the record in edit mode.
func (s State) Editing(key types.EmployeeKey) bool {
	return s.EditingKey != nil && *s.EditingKey == key
}

// Pending is the number of intents queued behind the in-flight command.
func (s State) Pending() int { return len(s.pending) }

func (s State) find(name string) (types.Employee, bool) {
	for _, rec := range s.Records {
		if rec.Name == name {
			return rec, true
		}
	}
	return types.Employee{}, false
}

// Msg is anything fed to Step: user intents, external events and command
// results.
type Msg interface{ isMsg() }

type (
	// Add creates a record.
	Add struct{ Record types.Employee }
	// Update replaces the record addressed by Key.
	Update struct {
		Key    types.EmployeeKey
		Record types.Employee
	}
	Delete       struct{ Key types.EmployeeKey }
	IncrementAll struct{}

	// BeginEdit puts the record addressed by Key in edit mode, replacing any
	// previous one. A key missing from Records is ignored and the current
	// edit, if any, stays in place.
	BeginEdit  struct{ Key types.EmployeeKey }
	CancelEdit struct{}

	// RefreshRequested is an explicit user refresh. It is the only way to
	// retry after a failed refresh.
	RefreshRequested struct{}
	// Invalidated reports that the server state changed elsewhere.
	Invalidated struct{}

	MutationDone struct {
		Intent Msg
		Err    error
	}
	RefreshDone struct {
		Records   []types.Employee
		Aggregate int64
		Err       error
	}
)

func (Add) isMsg()              {}
func (Update) isMsg()           {}
func (Delete) isMsg()           {}
func (IncrementAll) isMsg()     {}
func (BeginEdit) isMsg()        {}
func (CancelEdit) isMsg()       {}
func (RefreshRequested) isMsg() {}
func (Invalidated) isMsg()      {}
func (MutationDone) isMsg()     {}
func (RefreshDone) isMsg()      {}

// Cmd is work for the Runner. A nil Cmd means nothing to do.
type Cmd interface{ isCmd() }

type (
	// Refresh lists records, then reads the aggregate.
	Refresh struct{}
	// Mutate sends one of Add, Update, Delete or IncrementAll.
	Mutate struct{ Intent Msg }
)

func (Refresh) isCmd() {}
func (Mutate) isCmd()  {}

// Step applies msg to s. It never mutates s in place.
func Step(s State, msg Msg) (State, Cmd) {
	s = s.clone()
	switch m := msg.(type) {
	case BeginEdit:
		if _, ok := s.find(m.Key.String()); ok {
			key := m.Key
			s.EditingKey = &key
		}
		return s, nil

	case CancelEdit:
		s.EditingKey = nil
		return s, nil

	case RefreshRequested:
		s.Stale = true
		s.RefreshErr = nil
		if s.Loading {
			s.invalidated = true
			return s, nil
		}
		return s.settle()

	case Invalidated:
		s.Stale = true
		if s.Loading {
			s.invalidated = true
			return s, nil
		}
		return s.settle()

	case Add, Update, Delete, IncrementAll:
		if s.Loading {
			s.pending = append(s.pending, msg)
			return s, nil
		}
		return s.start(msg)

	case MutationDone:
		s.Loading = false
		if m.Err != nil {
			// A failed mutation leaves the cached view alone.
			s.Err = m.Err
			return s.settle()
		}
		s.Err = nil
		s.Stale = true
		s.RefreshErr = nil
		if _, ok := m.Intent.(Update); ok {
			s.EditingKey = nil
		}
		return s.settle()

	case RefreshDone:
		s.Loading = false
		if m.Err != nil {
			s.RefreshErr = m.Err
			return s.settle()
		}
		s.Records = m.Records
		s.Aggregate = m.Aggregate
		s.Loaded = true
		s.RefreshErr = nil
		s.Stale = s.invalidated
		s.invalidated = false
		if s.EditingKey != nil {
			if _, ok := s.find(s.EditingKey.String()); !ok {
				s.EditingKey = nil
			}
		}
		return s.settle()
	}
	return s, nil
}

// settle picks the next command once nothing is in flight: an owed refresh
// first, then the oldest queued intent.
func (s State) settle() (State, Cmd) {
	if s.Loading {
		return s, nil
	}
	if s.Stale && s.RefreshErr == nil {
		s.Loading = true
		s.invalidated = false
		return s, Refresh{}
	}
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		var cmd Cmd
		s, cmd = s.start(next)
		if cmd != nil {
			return s, cmd
		}
	}
	return s, nil
}

// start checks an intent and, when it needs the server, marks the state
// loading and returns the mutation.
func (s State) start(intent Msg) (State, Cmd) {
	switch m := intent.(type) {
	case Add:
		rec, err := types.ValidateEmployee(m.Record)
		if err != nil {
			s.Err = err
			return s, nil
		}
		// Advisory only; the store enforces uniqueness.
		if _, taken := s.find(rec.Name); taken {
			s.Err = types.NewError(types.CodeNotFoundOrConflict, "employee.add",
				fmt.Sprintf("an employee named %q already exists", rec.Name), nil)
			return s, nil
		}
		intent = Add{Record: rec}

	case Update:
		rec, err := types.ValidateEmployee(m.Record)
		if err != nil {
			s.Err = err
			return s, nil
		}
		if cur, ok := s.find(m.Key.String()); ok && cur == rec {
			s.Err = nil
			s.EditingKey = nil
			return s, nil
		}
		if rec.Name != m.Key.String() {
			if _, taken := s.find(rec.Name); taken {
				s.Err = types.NewError(types.CodeNotFoundOrConflict, "employee.update",
					fmt.Sprintf("an employee named %q already exists", rec.Name), nil)
				return s, nil
			}
		}
		intent = Update{Key: m.Key, Record: rec}

	case Delete:
		if strings.TrimSpace(m.Key.String()) == "" {
			s.Err = types.ValidationError("employee.delete", "key must not be blank")
			return s, nil
		}
	}
	s.Err = nil
	s.Loading = true
	return s, Mutate{Intent: intent}
}

func (s State) clone() State {
	if s.pending != nil {
		s.pending = append([]Msg(nil), s.pending...)
	}
	if s.EditingKey != nil {
		key := *s.EditingKey
		s.EditingKey = &key
	}
	return s
}
