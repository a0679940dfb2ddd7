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

type renameInput struct {
	Name string `json:"name" validate:"required,notblank"`
}

func newActions(t *testing.T, src *source) (*Controller[row], *Actions[row], *[]string) {
	ctrl, _, _ := setup(t, src)
	require.NoError(t, ctrl.Refresh(context.Background()))

	var log []string
	acts := NewActions(ctrl, func(r row) int64 { return int64(r.ID) })

	create := NewModal(ctrl, "create", func(_ context.Context, _ *row, in renameInput) error {
		log = append(log, "create "+in.Name)
		return nil
	}, WithValidator(core.NewValidator()))
	Register(acts, create, false, func(_ *row, args Args) (renameInput, error) {
		return renameInput{Name: args["name"]}, nil
	}, nil)

	rename := NewModal(ctrl, "rename", func(_ context.Context, subject *row, in renameInput) error {
		log = append(log, subject.Name+" -> "+in.Name)
		return nil
	}, WithValidator(core.NewValidator()))
	Register(acts, rename, true, func(subject *row, args Args) (renameInput, error) {
		in := renameInput{Name: subject.Name}
		if v, ok := args["name"]; ok {
			in.Name = v
		}
		return in, nil
	}, nil)

	archive := NewModal(ctrl, "archive", func(_ context.Context, subject *row, _ struct{}) error {
		src.remove(subject.ID)
		log = append(log, "archive "+subject.Name)
		return nil
	}, RemovesRow(), WithNotice("Archived."))
	Register(acts, archive, true, func(*row, Args) (struct{}, error) {
		return struct{}{}, nil
	}, func(r *row) bool { return r.ID%2 == 0 })

	return ctrl, acts, &log
}

func TestActions_Names(t *testing.T) {
	_, acts, _ := newActions(t, newSource(5))
	assert.Equal(t, []string{"archive", "create", "rename"}, acts.Names())
}

func TestActions_Offered(t *testing.T) {
	_, acts, _ := newActions(t, newSource(15))

	assert.Equal(t, []string{"archive", "rename"}, acts.Offered(2))
	assert.Equal(t, []string{"rename"}, acts.Offered(3))
	assert.Nil(t, acts.Offered(12), "not on the first page")
}

func TestActions_Act(t *testing.T) {
	ctx := context.Background()

	t.Run("create ignores the id", func(t *testing.T) {
		_, acts, log := newActions(t, newSource(5))
		require.NoError(t, acts.Act(ctx, "create", 99, Args{"name": "row 006"}))
		assert.Equal(t, []string{"create row 006"}, *log)
	})

	t.Run("rename keeps unset fields", func(t *testing.T) {
		_, acts, log := newActions(t, newSource(5))
		require.NoError(t, acts.Act(ctx, "rename", 4, Args{"name": "four"}))
		require.NoError(t, acts.Act(ctx, "rename", 5, nil))
		assert.Equal(t, []string{"row 004 -> four", "row 005 -> row 005"}, *log)
	})

	t.Run("archive refreshes with a notice", func(t *testing.T) {
		ctrl, acts, log := newActions(t, newSource(5))
		require.NoError(t, acts.Act(ctx, "archive", 2, nil))
		assert.Equal(t, []string{"archive row 002"}, *log)
		snap := ctrl.Snapshot()
		assert.Equal(t, "Archived.", snap.Notice)
		assert.Equal(t, 4, snap.Result.TotalCount)
	})

	tests := []struct {
		name    string
		action  string
		id      int64
		args    Args
		wantErr error
	}{
		{name: "unknown action", action: "publish", id: 1, wantErr: ErrUnknownAction},
		{name: "row not on page", action: "rename", id: 42, wantErr: ErrNotOnPage},
		{name: "not allowed", action: "archive", id: 3, wantErr: ErrNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, acts, log := newActions(t, newSource(5))
			err := acts.Act(ctx, tc.action, tc.id, tc.args)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
			assert.Empty(t, *log)
		})
	}

	t.Run("invalid input", func(t *testing.T) {
		_, acts, log := newActions(t, newSource(5))
		err := acts.Act(ctx, "rename", 1, Args{"name": "  "})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "got %v", err)
		assert.Equal(t, "name", vErr.Fields[0].Field)
		assert.Empty(t, *log)
	})
}

func TestActions_Act_doubleSubmit(t *testing.T) {
	src := newSource(5)
	ctrl, _, _ := setup(t, src)
	ctx := context.Background()
	require.NoError(t, ctrl.Refresh(ctx))

	started := make(chan int64, 1)
	release := make(chan struct{})
	var runs int
	acts := NewActions(ctrl, func(r row) int64 { return int64(r.ID) })
	del := NewModal(ctrl, "delete", func(_ context.Context, subject *row, _ struct{}) error {
		runs++
		started <- int64(subject.ID)
		<-release
		src.remove(subject.ID)
		return nil
	}, RemovesRow(), WithNotice("Deleted."))
	Register(acts, del, true, func(*row, Args) (struct{}, error) { return struct{}{}, nil }, nil)

	done := make(chan error, 1)
	go func() { done <- acts.Act(ctx, "delete", 1, nil) }()
	assert.EqualValues(t, 1, <-started)

	// on the same row or on another one, the pending submission wins
	assert.Equal(t, ErrSubmitInFlight, acts.Act(ctx, "delete", 1, nil))
	assert.Equal(t, ErrSubmitInFlight, acts.Act(ctx, "delete", 2, nil))
	state := del.State()
	assert.True(t, state.Show)
	assert.True(t, state.Submitting)
	assert.Equal(t, 1, state.Subject.ID)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 4, ctrl.Snapshot().Result.TotalCount)

	// the modal is free again
	require.NoError(t, acts.Act(ctx, "delete", 2, nil))
	assert.EqualValues(t, 2, <-started)
	assert.Equal(t, 2, runs)
}
