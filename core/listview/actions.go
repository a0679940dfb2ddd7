package listview

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrNotAllowed    = errors.New("action not allowed")
	ErrNotOnPage     = errors.New("row is not on the current page")
)

// Args are the raw user inputs of an action (eg. from a command line).
type Args map[string]string

type action[T any] struct {
	needsSubject bool
	allowed      func(subject *T) bool
	run          func(ctx context.Context, subject *T, args Args) error
	cancel       func()
}

// Actions dispatches named modal actions on the rows of the current page by id.
type Actions[T any] struct {
	ctrl *Controller[T]
	id   func(T) int64

	mu      sync.RWMutex
	actions map[string]action[T]
}

func NewActions[T any](ctrl *Controller[T], id func(T) int64) *Actions[T] {
	return &Actions[T]{ctrl: ctrl, id: id, actions: make(map[string]action[T])}
}

// Register exposes m as action `name`. input builds the modal input from args (and the subject,
// nil for create actions); allowed filters the rows the action is offered on and may be nil.
func Register[T, I any](a *Actions[T], m *Modal[T, I], needsSubject bool, input func(subject *T, args Args) (I, error), allowed func(subject *T) bool) {
	if allowed == nil {
		allowed = func(*T) bool { return true }
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions[m.Name()] = action[T]{
		needsSubject: needsSubject,
		allowed:      allowed,
		run: func(ctx context.Context, subject *T, args Args) error {
			in, err := input(subject, args)
			if err != nil {
				return err
			}
			if err = m.Open(subject, in); err != nil {
				return err
			}
			return m.Confirm(ctx)
		},
		cancel: m.Cancel,
	}
}

// Names returns the registered actions, sorted.
func (a *Actions[T]) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.actions))
	for n := range a.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Offered returns the actions available on the row id of the current page.
func (a *Actions[T]) Offered(id int64) []string {
	subject, ok := a.ctrl.Find(func(t T) bool { return a.id(t) == id })
	if !ok {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	var names []string
	for n, act := range a.actions {
		if act.needsSubject && act.allowed(&subject) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Act opens the modal of action `name` on the row id of the current page (id is ignored for create
// actions), fills it from args and confirms it. A failed confirmation leaves the modal discarded.
// While the action is being submitted, other calls fail with ErrSubmitInFlight.
func (a *Actions[T]) Act(ctx context.Context, name string, id int64, args Args) error {
	a.mu.RLock()
	act, ok := a.actions[name]
	a.mu.RUnlock()
	if !ok {
		return errors.Wrapf(ErrUnknownAction, "%q", name)
	}

	var subject *T
	if act.needsSubject {
		row, found := a.ctrl.Find(func(t T) bool { return a.id(t) == id })
		if !found {
			return errors.Wrapf(ErrNotOnPage, "%s #%d", a.ctrl.Name(), id)
		}
		subject = &row
	}
	if !act.allowed(subject) {
		return errors.Wrapf(ErrNotAllowed, "%s", name)
	}

	err := act.run(ctx, subject, args)
	switch {
	case err == nil:
	case errors.Is(err, ErrSubmitInFlight):
		// the modal belongs to the submission in flight
	default:
		act.cancel()
	}
	return err
}
