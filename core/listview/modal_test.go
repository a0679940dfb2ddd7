package listview_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/klabu/core"
	. "github.com/trezcool/klabu/core/listview"
)

type rejectInput struct {
	Reason string `json:"reason" validate:"required,notblank"`
}

func TestModal_Confirm(t *testing.T) {
	src := newSource(21)
	ctrl, _, _ := setup(t, src)
	ctx := context.Background()
	require.NoError(t, ctrl.Refresh(ctx))

	var got []string
	reject := NewModal(ctrl, "reject", func(_ context.Context, subject *row, in rejectInput) error {
		got = append(got, in.Reason)
		src.remove(subject.ID)
		return nil
	}, RemovesRow(), WithNotice("Rejected."), WithValidator(core.NewValidator()))

	// closed modal
	assert.Equal(t, ErrModalClosed, reject.Confirm(ctx))

	subject, ok := ctrl.Find(func(r row) bool { return r.ID == 3 })
	require.True(t, ok)

	// invalid input keeps the modal open
	require.NoError(t, reject.Open(&subject, rejectInput{Reason: "   "}))
	err := reject.Confirm(ctx)
	require.Error(t, err)
	state := reject.State()
	assert.True(t, state.Show)
	assert.False(t, state.Submitting)
	assert.Equal(t, "reason: this field cannot be blank", state.Err)
	require.Len(t, state.Fields, 1)
	assert.Equal(t, "reason", state.Fields[0].Field)
	assert.Empty(t, got)

	require.NoError(t, reject.SetInput(rejectInput{Reason: "duplicate"}))
	require.NoError(t, reject.Confirm(ctx))
	assert.Equal(t, []string{"duplicate"}, got)
	assert.False(t, reject.State().Show)

	snap := ctrl.Snapshot()
	assert.Equal(t, "Rejected.", snap.Notice)
	assert.Equal(t, 20, snap.Result.TotalCount)
	_, ok = ctrl.Find(func(r row) bool { return r.ID == 3 })
	assert.False(t, ok)

	ctrl.DismissNotice()
	assert.Empty(t, ctrl.Snapshot().Notice)
}

func TestModal_Confirm_doubleSubmit(t *testing.T) {
	src := newSource(5)
	ctrl, _, _ := setup(t, src)
	ctx := context.Background()
	require.NoError(t, ctrl.Refresh(ctx))

	started := make(chan struct{})
	release := make(chan struct{})
	var runs int
	approve := NewModal(ctrl, "approve", func(_ context.Context, _ *row, _ struct{}) error {
		runs++
		close(started)
		<-release
		return nil
	}, WithNotice("Approved."))

	subject := ctrl.Snapshot().Result.Items[0]
	require.NoError(t, approve.Open(&subject, struct{}{}))

	done := make(chan error, 1)
	go func() { done <- approve.Confirm(ctx) }()
	<-started

	assert.True(t, approve.State().Submitting)
	assert.Equal(t, ErrSubmitInFlight, approve.Confirm(ctx))

	// reopening cannot reset the submission
	assert.Equal(t, ErrSubmitInFlight, approve.Open(&subject, struct{}{}))
	assert.Equal(t, ErrSubmitInFlight, approve.SetInput(struct{}{}))
	assert.True(t, approve.State().Submitting)
	assert.Equal(t, ErrSubmitInFlight, approve.Confirm(ctx))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, runs)
	assert.False(t, approve.State().Show)
	assert.Equal(t, "Approved.", ctrl.Snapshot().Notice)
}

func TestModal_Confirm_failure(t *testing.T) {
	src := newSource(5)
	ctrl, _, _ := setup(t, src)
	ctx := context.Background()
	require.NoError(t, ctrl.Refresh(ctx))
	callsBefore := len(src.Calls())

	del := NewModal(ctrl, "delete", func(context.Context, *row, struct{}) error {
		return core.NewApplicationError(409, "row is referenced by 3 invoices")
	}, RemovesRow())

	subject := ctrl.Snapshot().Result.Items[0]
	require.NoError(t, del.Open(&subject, struct{}{}))
	err := del.Confirm(ctx)
	require.Error(t, err)
	assert.IsType(t, &core.ApplicationError{}, errors.Cause(err))

	state := del.State()
	assert.True(t, state.Show)
	assert.False(t, state.Submitting)
	assert.Equal(t, "row is referenced by 3 invoices", state.Err)
	assert.Len(t, src.Calls(), callsBefore, "a failed mutation does not refresh the list")

	del.Cancel()
	assert.Equal(t, ModalState[row, struct{}]{}, del.State())
}

func TestModal_removesLastRowOfPage(t *testing.T) {
	src := newSource(21)
	ctrl, _, _ := setup(t, src)
	ctx := context.Background()
	require.NoError(t, ctrl.Refresh(ctx))
	_, err := ctrl.GoToPage(ctx, 2)
	require.NoError(t, err)

	del := NewModal(ctrl, "delete", func(_ context.Context, subject *row, _ struct{}) error {
		src.remove(subject.ID)
		return nil
	}, RemovesRow(), WithNotice("Deleted."))

	subject := ctrl.Snapshot().Result.Items[0]
	require.Equal(t, 21, subject.ID)
	require.NoError(t, del.Open(&subject, struct{}{}))
	require.NoError(t, del.Confirm(ctx))

	snap := ctrl.Snapshot()
	assert.Equal(t, 1, snap.Query.Page)
	assert.Equal(t, 1, snap.Result.CurrentPage)
	assert.Equal(t, 2, snap.Result.TotalPages)
	assert.Len(t, snap.Result.Items, 10)
	assert.Equal(t, []int{0, 1}, snap.Window)
}
