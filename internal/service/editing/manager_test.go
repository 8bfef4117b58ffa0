package editing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/editwindow"
	"github.com/mamadbah2/knittrack/pkg/clients/production/productiontest"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type manualScheduler struct {
	mu        sync.Mutex
	jobs      map[int]func()
	next      int
	cancelled int
}

func (s *manualScheduler) Every(_ time.Duration, fn func()) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobs == nil {
		s.jobs = make(map[int]func())
	}
	id := s.next
	s.next++
	s.jobs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.jobs, id)
		s.cancelled++
	}, nil
}

func (s *manualScheduler) fireAll() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.jobs))
	for _, fn := range s.jobs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *manualScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var createdAt = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	backend *productiontest.ClientMock
	sched   *manualScheduler
	clock   *clock
	manager *Manager
}

func newFixture(t *testing.T, elapsed time.Duration, check *models.EditabilityCheck, checkErr error) *fixture {
	t.Helper()

	f := &fixture{
		sched: &manualScheduler{},
		clock: &clock{t: createdAt.Add(elapsed)},
	}
	f.backend = &productiontest.ClientMock{
		GetEntryFunc: func(_ context.Context, id int) (*models.ProductionEntry, error) {
			return &models.ProductionEntry{ID: id, MachineNo: "M-07", SizeNo: "36-40", CreatedAt: models.NewTimestamp(createdAt)}, nil
		},
		CheckEditabilityFunc: func(context.Context, int) (*models.EditabilityCheck, error) {
			return check, checkErr
		},
	}
	f.manager = NewManager(f.backend, f.sched, Options{Now: f.clock.Now, UpdateBuffer: 64}, nil)
	t.Cleanup(f.manager.CloseAll)
	return f
}

func validUpdate() models.EntryUpdate {
	return models.EntryUpdate{EntryInput: models.EntryInput{MachineNo: "M-07", SizeNo: "36-40"}}
}

func drain(ch <-chan Snapshot) []Snapshot {
	var out []Snapshot
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, s)
		default:
			return out
		}
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestOpen_BackendAllows(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 47*time.Minute+26*time.Second, &models.EditabilityCheck{CanEdit: true, EditStatus: models.EditStatusEditable}, nil)

	s, err := f.manager.Open(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, f.manager.Len())
	assert.Equal(t, 1, f.sched.active())

	snap := s.Snapshot()
	assert.Equal(t, 5, snap.EntryID)
	assert.Equal(t, models.EditStatusEditable, snap.Status)
	assert.Equal(t, "12 minutes 34 seconds", snap.TimeRemaining)
	assert.True(t, snap.SubmitEnabled)
	require.NotNil(t, snap.Backend)
	assert.True(t, snap.Backend.CanEdit)
}

func TestOpen_UnknownEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0, nil, nil)
	f.backend.GetEntryFunc = func(context.Context, int) (*models.ProductionEntry, error) {
		return nil, &models.BackendError{Status: 404, Kind: models.ErrNotFound}
	}

	_, err := f.manager.Open(context.Background(), 404)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Zero(t, f.manager.Len())
	assert.Zero(t, f.sched.active())
}

func TestSession_BackendDenialOverridesEstimate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10*time.Minute, &models.EditabilityCheck{CanEdit: false, EditStatus: models.EditStatusExpired}, nil)
	s, err := f.manager.Open(context.Background(), 5)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.EditStatusEditable, snap.Status, "estimate still shows time left")
	assert.False(t, snap.SubmitEnabled)

	_, err = s.Submit(context.Background(), validUpdate(), nil)
	var expired *models.ExpiredError
	require.ErrorAs(t, err, &expired)
	assert.True(t, expired.Local)
	assert.Zero(t, f.backend.Calls("UpdateEntry"))
}

func TestSession_BackendUnavailableFallsBackToEstimate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10*time.Minute, nil, models.ErrBackendUnavailable)
	s, err := f.manager.Open(context.Background(), 5)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.True(t, snap.SubmitEnabled)
	assert.Nil(t, snap.Backend)
	assert.NotEmpty(t, snap.BackendError)
}

func TestSession_ExpiresWhileOpen(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 59*time.Minute+30*time.Second, &models.EditabilityCheck{CanEdit: true}, nil)
	s, err := f.manager.Open(context.Background(), 5)
	require.NoError(t, err)
	stream, cancel := s.Subscribe()
	defer cancel()

	snap := s.Snapshot()
	assert.Equal(t, "0 minutes 30 seconds", snap.TimeRemaining)
	assert.True(t, snap.SubmitEnabled)
	assert.Empty(t, snap.Message)

	f.clock.Advance(31 * time.Second)
	f.sched.fireAll()

	updates := drain(stream)
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, models.EditStatusExpired, last.Status)
	assert.Equal(t, editwindow.ExpiredLabel, last.TimeRemaining)
	assert.Equal(t, editwindow.ExpiredMessage, last.Message)
	assert.False(t, last.SubmitEnabled)
	assert.Zero(t, f.sched.active(), "countdown deregisters after expiry")

	_, err = s.Submit(context.Background(), validUpdate(), nil)
	assert.ErrorIs(t, err, models.ErrEditWindowExpired)
	assert.Zero(t, f.backend.Calls("UpdateEntry"))
}

func TestOpen_AlreadyExpiredWithBackendDown(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3*time.Hour, nil, models.ErrBackendUnavailable)
	s, err := f.manager.Open(context.Background(), 5)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.EditStatusExpired, snap.Status)
	assert.False(t, snap.SubmitEnabled)
	assert.NotEmpty(t, snap.BackendError)
	assert.Equal(t, editwindow.ExpiredMessage, snap.Message)
}

func TestSession_EverySubscriberGetsEveryTick(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Minute, &models.EditabilityCheck{CanEdit: true}, nil)
	s, err := f.manager.Open(context.Background(), 5)
	require.NoError(t, err)

	first, cancelFirst := s.Subscribe()
	second, cancelSecond := s.Subscribe()
	defer cancelSecond()
	assert.Equal(t, 2, s.Subscribers())

	f.clock.Advance(time.Second)
	f.sched.fireAll()

	a, b := drain(first), drain(second)
	require.Len(t, a, 1)
	assert.Equal(t, a, b)
	assert.Equal(t, "58 minutes 59 seconds", a[0].TimeRemaining)

	cancelFirst()
	cancelFirst()
	_, open := <-first
	assert.False(t, open)
	assert.Equal(t, 1, s.Subscribers())

	f.clock.Advance(time.Second)
	f.sched.fireAll()
	assert.Len(t, drain(second), 1, "remaining subscriber keeps streaming")
}

func TestSession_SubmitExpiredByClockWithoutTick(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 59*time.Minute, nil, models.ErrBackendUnavailable)
	s, err := f.manager.Open(context.Background(), 5)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	_, err = s.Submit(context.Background(), validUpdate(), nil)
	assert.ErrorIs(t, err, models.ErrEditWindowExpired)
	assert.Zero(t, f.backend.Calls("UpdateEntry"))
}

func TestSession_Submit(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, time.Minute, &models.EditabilityCheck{CanEdit: true}, nil)
		f.backend.UpdateEntryFunc = func(_ context.Context, id int, upd models.EntryUpdate, _ *models.Photo) (*models.ProductionEntry, error) {
			return &models.ProductionEntry{ID: id, MachineNo: upd.MachineNo, SizeNo: "38-42", CreatedAt: models.NewTimestamp(createdAt)}, nil
		}
		s, err := f.manager.Open(context.Background(), 5)
		require.NoError(t, err)

		entry, err := s.Submit(context.Background(), validUpdate(), nil)
		require.NoError(t, err)
		assert.Equal(t, "38-42", entry.SizeNo)
		assert.Equal(t, "38-42", s.Entry().SizeNo)
		assert.Equal(t, UpdatedMessage, s.Snapshot().Message)
	})

	t.Run("missing required fields", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, time.Minute, &models.EditabilityCheck{CanEdit: true}, nil)
		s, err := f.manager.Open(context.Background(), 5)
		require.NoError(t, err)

		_, err = s.Submit(context.Background(), models.EntryUpdate{}, nil)
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Zero(t, f.backend.Calls("UpdateEntry"))
	})

	t.Run("backend rejection surfaced verbatim", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, time.Minute, &models.EditabilityCheck{CanEdit: true}, nil)
		f.backend.UpdateEntryFunc = func(context.Context, int, models.EntryUpdate, *models.Photo) (*models.ProductionEntry, error) {
			return nil, &models.ExpiredError{Message: "Bu kayıt artık düzenlenemez"}
		}
		s, err := f.manager.Open(context.Background(), 5)
		require.NoError(t, err)

		_, err = s.Submit(context.Background(), validUpdate(), nil)
		var expired *models.ExpiredError
		require.ErrorAs(t, err, &expired)
		assert.Equal(t, "Bu kayıt artık düzenlenemez", expired.Message)

		snap := s.Snapshot()
		assert.False(t, snap.SubmitEnabled)
		assert.Equal(t, "Bu kayıt artık düzenlenemez", snap.Message)
	})

	t.Run("transport failure keeps session editable", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, time.Minute, &models.EditabilityCheck{CanEdit: true}, nil)
		f.backend.UpdateEntryFunc = func(context.Context, int, models.EntryUpdate, *models.Photo) (*models.ProductionEntry, error) {
			return nil, errors.Join(errors.New("dial tcp: refused"), models.ErrBackendUnavailable)
		}
		s, err := f.manager.Open(context.Background(), 5)
		require.NoError(t, err)

		_, err = s.Submit(context.Background(), validUpdate(), nil)
		assert.ErrorIs(t, err, models.ErrBackendUnavailable)
		assert.True(t, s.Snapshot().SubmitEnabled)
	})
}

func TestManager_CloseStopsCountdownAndStream(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Minute, &models.EditabilityCheck{CanEdit: true}, nil)
	s, err := f.manager.Open(context.Background(), 5)
	require.NoError(t, err)
	stream, _ := s.Subscribe()

	f.manager.Close(s.ID)
	f.manager.Close(s.ID)

	assert.Zero(t, f.sched.active())
	assert.Equal(t, 1, f.sched.cancelled)
	_, err = f.manager.Get(s.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	drain(stream)
	_, open := <-stream
	assert.False(t, open)

	late, _ := s.Subscribe()
	_, open = <-late
	assert.False(t, open, "subscribing to a closed session yields a closed stream")

	_, err = s.Submit(context.Background(), validUpdate(), nil)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestManager_CloseIdleAndCloseAll(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Minute, &models.EditabilityCheck{CanEdit: true}, nil)
	stale, err := f.manager.Open(context.Background(), 1)
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	fresh, err := f.manager.Open(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 1, f.manager.CloseIdle(15*time.Minute))
	_, err = f.manager.Get(stale.ID)
	assert.Error(t, err)
	_, err = f.manager.Get(fresh.ID)
	assert.NoError(t, err)

	f.manager.CloseAll()
	assert.Zero(t, f.manager.Len())
	assert.Zero(t, f.sched.active())
}
