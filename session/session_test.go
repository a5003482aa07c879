package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleHappyPath(t *testing.T) {
	s := New(60)
	assert.Equal(t, Idle, s.State())

	assert.NoError(t, s.StartCapture())
	assert.Equal(t, Sampling, s.State())
	assert.Greater(t, s.GetSampleTime(), -1.0)

	assert.NoError(t, s.StopCapture())
	assert.Equal(t, PendingStop, s.State())
	assert.Equal(t, 0.0, s.GetSampleTime())

	assert.NoError(t, s.BeginProcessing())
	assert.Equal(t, Processing, s.State())

	fired := false
	s.OnDoneProcessing(func() { fired = true })
	assert.NoError(t, s.FinishProcessing())
	assert.Equal(t, DoneProcessing, s.State())
	assert.True(t, fired)
}

func TestInvalidTransitionsAreRejected(t *testing.T) {
	s := New(60)
	assert.Error(t, s.StopCapture())
	assert.Error(t, s.BeginProcessing())
	assert.Error(t, s.FinishProcessing())
}

func TestResetFromAnyState(t *testing.T) {
	s := New(60)
	_ = s.StartCapture()
	s.Reset()
	assert.Equal(t, Idle, s.State())
}

func TestShouldStopAfterSampleTimeExceeded(t *testing.T) {
	s := New(0)
	_ = s.StartCapture()
	time.Sleep(time.Millisecond)
	assert.True(t, s.ShouldStop())
}

func TestBeginProcessingIsIdempotentWhileProcessing(t *testing.T) {
	s := New(60)
	_ = s.StartCapture()
	_ = s.StopCapture()
	assert.NoError(t, s.BeginProcessing())
	assert.NoError(t, s.BeginProcessing())
}
