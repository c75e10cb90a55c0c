package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
)

func TestAfter_FiresOnce(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	var runs atomic.Int32
	task := s.After(5*time.Second, func() { runs.Add(1) })

	mock.Add(4999 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())

	mock.Add(time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.True(t, task.Stopped())

	mock.Add(time.Minute)
	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, task.Stop(), "stopping a fired task reports nothing was cancelled")
}

func TestAfter_StopPreventsRun(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	var runs atomic.Int32
	task := s.After(time.Second, func() { runs.Add(1) })

	assert.True(t, task.Stop())
	assert.False(t, task.Stop())

	mock.Add(2 * time.Second)
	assert.Equal(t, int32(0), runs.Load())
}

func TestEvery_RepeatsUntilStopped(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	var runs atomic.Int32
	task := s.Every(10*time.Second, func() { runs.Add(1) })

	mock.Add(9 * time.Second)
	assert.Equal(t, int32(0), runs.Load())

	mock.Add(time.Second)
	assert.Equal(t, int32(1), runs.Load())

	mock.Add(30 * time.Second)
	assert.Equal(t, int32(4), runs.Load())

	assert.True(t, task.Stop())
	mock.Add(time.Minute)
	assert.Equal(t, int32(4), runs.Load())
}

func TestEvery_StopFromInsideCallback(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	var runs atomic.Int32
	var task *Task
	task = s.Every(time.Second, func() {
		if runs.Add(1) == 2 {
			task.Stop()
		}
	})

	mock.Add(10 * time.Second)
	assert.Equal(t, int32(2), runs.Load())
}

func TestNow_FollowsClock(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)
	start := s.Now()
	mock.Add(time.Hour)
	assert.Equal(t, time.Hour, s.Now().Sub(start))
}

func TestNew_DefaultsToWallClock(t *testing.T) {
	s := New(nil)
	assert.WithinDuration(t, time.Now(), s.Now(), time.Second)

	fired := make(chan struct{})
	s.After(time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("task on wall clock did not fire")
	}
}
