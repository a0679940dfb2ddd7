package listview

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/klabu/core"
)

var (
	ErrModalClosed    = errors.New("modal is not open")
	ErrSubmitInFlight = errors.New("submission already in progress")
)

// Mutation performs the server-side action a modal confirms.
// subject is nil for create modals.
type Mutation[T, I any] func(ctx context.Context, subject *T, input I) error

type modalOptions struct {
	notice     string
	removesRow bool
	validator  *core.Validator
}

type ModalOption func(*modalOptions)

// WithNotice sets the success message shown on the list after the mutation.
func WithNotice(msg string) ModalOption {
	return func(o *modalOptions) { o.notice = msg }
}

// RemovesRow marks mutations that make the subject disappear from the list (delete, reject, ...).
func RemovesRow() ModalOption {
	return func(o *modalOptions) { o.removesRow = true }
}

// WithValidator validates the input before the mutation runs.
func WithValidator(v *core.Validator) ModalOption {
	return func(o *modalOptions) { o.validator = v }
}

// ModalState is what the presentation renders for a modal.
type ModalState[T, I any] struct {
	Show       bool
	Subject    *T
	Input      I
	Submitting bool
	Err        string
	Fields     []core.FieldError
}

// Modal drives one confirm/edit dialog bound to a list Controller.
type Modal[T, I any] struct {
	name string
	ctrl *Controller[T]
	run  Mutation[T, I]
	opts modalOptions

	mu    sync.Mutex
	state ModalState[T, I]
}

func NewModal[T, I any](ctrl *Controller[T], name string, run Mutation[T, I], opts ...ModalOption) *Modal[T, I] {
	m := &Modal[T, I]{name: name, ctrl: ctrl, run: run}
	for _, opt := range opts {
		opt(&m.opts)
	}
	return m
}

func (m *Modal[T, I]) Name() string { return m.name }

// Open shows the modal for subject (nil to create) with a pre-filled input.
// It is refused while a submission is in flight.
func (m *Modal[T, I]) Open(subject *T, input I) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Submitting {
		return ErrSubmitInFlight
	}
	m.state = ModalState[T, I]{Show: true, Subject: subject, Input: input}
	return nil
}

func (m *Modal[T, I]) SetInput(input I) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Submitting {
		return ErrSubmitInFlight
	}
	m.state.Input = input
	return nil
}

// Cancel hides the modal. A submission already sent still completes.
func (m *Modal[T, I]) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Submitting {
		m.state = ModalState[T, I]{}
		return
	}
	m.state.Show = false
}

func (m *Modal[T, I]) State() ModalState[T, I] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Confirm submits the modal. Only one submission runs at a time; on failure the
// modal stays open with the error, on success it closes and the list is refreshed.
func (m *Modal[T, I]) Confirm(ctx context.Context) error {
	m.mu.Lock()
	if !m.state.Show {
		m.mu.Unlock()
		return ErrModalClosed
	}
	if m.state.Submitting {
		m.mu.Unlock()
		return ErrSubmitInFlight
	}
	subject, input := m.state.Subject, m.state.Input

	if m.opts.validator != nil {
		if err := m.opts.validator.Struct(input); err != nil {
			m.state.Err = core.DisplayMessage(err)
			var vErr *core.ValidationError
			if errors.As(err, &vErr) {
				m.state.Fields = vErr.Fields
			}
			m.mu.Unlock()
			return err
		}
	}
	m.state.Submitting = true
	m.state.Err = ""
	m.state.Fields = nil
	m.mu.Unlock()

	err := m.run(ctx, subject, input)

	m.mu.Lock()
	if err != nil {
		m.state.Submitting = false
		m.state.Err = core.DisplayMessage(err)
		m.mu.Unlock()
		return errors.Wrap(err, m.name)
	}
	m.state = ModalState[T, I]{}
	m.mu.Unlock()

	return m.ctrl.AfterMutation(ctx, m.opts.removesRow, m.opts.notice)
}
