package editwindow

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	mu        sync.Mutex
	fn        func()
	interval  time.Duration
	cancelled int
	err       error
}

func (s *fakeScheduler) Every(interval time.Duration, fn func()) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	s.interval = interval
	return func() {
		s.mu.Lock()
		s.cancelled++
		s.mu.Unlock()
	}, nil
}

func (s *fakeScheduler) fire() {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	fn()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func TestCountdown_TicksUntilExpiry(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	clock := &fakeClock{t: created.Add(59*time.Minute + 58*time.Second)}
	var ticks []Tick

	cd, err := StartCountdown(sched, created, clock.Now, func(tk Tick) { ticks = append(ticks, tk) })
	require.NoError(t, err)
	assert.Equal(t, TickInterval, sched.interval)
	require.Len(t, ticks, 1)
	assert.Equal(t, "0 minutes 2 seconds", ticks[0].Verdict.Label())

	clock.Set(created.Add(59*time.Minute + 59*time.Second))
	sched.fire()
	require.Len(t, ticks, 2)
	assert.False(t, ticks[1].Expired)
	assert.Equal(t, "0 minutes 1 seconds", ticks[1].Verdict.Label())

	clock.Set(created.Add(Window))
	sched.fire()
	require.Len(t, ticks, 3)
	assert.True(t, ticks[2].Expired)
	assert.Equal(t, StateExpired, ticks[2].Verdict.State)
	assert.True(t, cd.Stopped())
	assert.Equal(t, 1, sched.cancelled)

	// late firing after cancellation is ignored
	sched.fire()
	assert.Len(t, ticks, 3)
	assert.Equal(t, StateExpired, cd.Current().State)
}

func TestCountdown_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	clock := &fakeClock{t: created.Add(time.Minute)}
	count := 0

	cd, err := StartCountdown(sched, created, clock.Now, func(Tick) { count++ })
	require.NoError(t, err)

	cd.Stop()
	cd.Stop()
	assert.Equal(t, 1, sched.cancelled)

	sched.fire()
	assert.Equal(t, 1, count)
}

func TestCountdown_AlreadyExpiredDoesNotSchedule(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	clock := &fakeClock{t: created.Add(3 * time.Hour)}
	var got []Tick

	cd, err := StartCountdown(sched, created, clock.Now, func(tk Tick) { got = append(got, tk) })
	require.NoError(t, err)
	assert.Nil(t, sched.fn)
	require.Len(t, got, 1)
	assert.Equal(t, StateExpired, got[0].Verdict.State)
	assert.True(t, cd.Stopped())
}

func TestCountdown_SchedulerFailure(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{err: errors.New("cron stopped")}
	_, err := StartCountdown(sched, created, func() time.Time { return created }, nil)
	require.Error(t, err)

	_, err = StartCountdown(nil, created, nil, nil)
	require.Error(t, err)
}
