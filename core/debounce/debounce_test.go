package debounce_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/klabu/core/debounce"
	"github.com/trezcool/klabu/tests"
)

func TestDebouncer_Trigger(t *testing.T) {
	tests := []struct {
		name     string
		triggers []string
		cancel   bool
		wantRuns []string
	}{
		{name: "single call", triggers: []string{"a"}, wantRuns: []string{"a"}},
		{name: "burst keeps last", triggers: []string{"m", "ma", "mat", "math"}, wantRuns: []string{"math"}},
		{name: "cancelled", triggers: []string{"a", "b"}, cancel: true, wantRuns: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timers := new(testutil.ManualTimers)
			d := debounce.New(300*time.Millisecond, debounce.WithAfterFunc(timers.AfterFunc))

			var runs []string
			for _, v := range tt.triggers {
				v := v
				d.Trigger(context.Background(), func(context.Context) { runs = append(runs, v) })
			}
			if tt.cancel {
				d.Cancel()
				assert.False(t, d.Pending())
			}
			timers.Fire()
			assert.Equal(t, tt.wantRuns, runs)
			assert.False(t, d.Pending())
		})
	}
}

func TestDebouncer_staleTimerIsIgnored(t *testing.T) {
	timers := new(testutil.ManualTimers)
	d := debounce.New(time.Second, debounce.WithAfterFunc(timers.AfterFunc))

	var runs []string
	d.Trigger(context.Background(), func(context.Context) { runs = append(runs, "first") })
	d.Trigger(context.Background(), func(context.Context) { runs = append(runs, "second") })

	// the first timer fires although it was stopped: its generation is outdated
	timers.FireStopped(0)
	assert.Empty(t, runs)

	timers.Fire()
	assert.Equal(t, []string{"second"}, runs)
}

func TestDebouncer_cancelledToken(t *testing.T) {
	timers := new(testutil.ManualTimers)
	d := debounce.New(time.Second, debounce.WithAfterFunc(timers.AfterFunc))

	ctx, cancel := context.WithCancel(context.Background())
	var ran bool
	d.Trigger(ctx, func(context.Context) { ran = true })
	cancel()
	timers.Fire()
	assert.False(t, ran)
}

func TestDebouncer_realTimer(t *testing.T) {
	d := debounce.New(20 * time.Millisecond)

	var calls int32
	for i := 0; i < 5; i++ {
		d.Trigger(context.Background(), func(context.Context) { atomic.AddInt32(&calls, 1) })
	}
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
