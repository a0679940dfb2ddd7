package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/debounce"
	"github.com/trezcool/klabu/core/listview"
	"github.com/trezcool/klabu/core/session"
	"github.com/trezcool/klabu/services/logger"
	"github.com/trezcool/klabu/services/restapi"
	"github.com/trezcool/klabu/tests/fakeapi"
)

const Token = "test-session-token"

// Members, one per role.
var (
	SuperAdmin  = session.Member{ID: 1, Name: "Root", Email: "root@klabu.test", Role: session.RoleSuperAdmin}
	SchoolAdmin = session.Member{ID: 2, Name: "Mado", Email: "mado@klabu.test", Role: session.RoleSchoolAdmin, SchoolID: 1}
	ClubLeader  = session.Member{ID: 3, Name: "Kabila", Email: "kabila@klabu.test", Role: session.RoleClubLeader, SchoolID: 1, ClubIDs: []int64{10}}
	MultiLeader = session.Member{ID: 4, Name: "Tshala", Email: "tshala@klabu.test", Role: session.RoleClubLeader, SchoolID: 1, ClubIDs: []int64{10, 11}}
	Member      = session.Member{ID: 5, Name: "Awé", Email: "awe@klabu.test", Role: session.RoleMember, SchoolID: 1, ClubIDs: []int64{10}}
)

// Client returns a REST client for srv authenticated as member.
func Client(srv *fakeapi.Server, member session.Member) *restapi.Client {
	return restapi.NewClient(srv.URL(), session.New(member, Token), logsvc.NewConsoleLoggerMock())
}

// ListOptions returns list settings driven by timers.
func ListOptions(timers *ManualTimers) listview.Options {
	return listview.Options{
		PageSize:  10,
		AfterFunc: timers.AfterFunc,
		Logger:    logsvc.NewConsoleLoggerMock(),
	}
}

func Validator() *core.Validator {
	return core.NewValidator()
}

// ManualTimers is a debounce.AfterFunc whose timers only fire when Fire is called.
type ManualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	owner   *ManualTimers
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (m *ManualTimers) AfterFunc(d time.Duration, f func()) debounce.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{owner: m, delay: d, fn: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Active returns the number of scheduled timers that neither fired nor were stopped.
func (m *ManualTimers) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Scheduled returns the total number of timers ever scheduled.
func (m *ManualTimers) Scheduled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Fire runs every active timer synchronously and returns how many ran.
func (m *ManualTimers) Fire() int {
	m.mu.Lock()
	due := make([]*manualTimer, 0, len(m.timers))
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	m.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// FireStopped runs a timer even though it was stopped, like a time.Timer that fired
// right before Stop was called.
func (m *ManualTimers) FireStopped(i int) {
	m.mu.Lock()
	t := m.timers[i]
	t.fired = true
	m.mu.Unlock()
	t.fn()
}

func MarshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("MarshalObj(): %v", err)
	}
	return data
}
