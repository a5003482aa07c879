// Package session implements the capture lifecycle state machine:
// Idle -> Sampling -> PendingStop -> Processing -> DoneProcessing.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// State is one of the five capture lifecycle states.
type State int

const (
	Idle State = iota
	Sampling
	PendingStop
	Processing
	DoneProcessing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Sampling:
		return "Sampling"
	case PendingStop:
		return "PendingStop"
	case Processing:
		return "Processing"
	case DoneProcessing:
		return "DoneProcessing"
	default:
		return "Unknown"
	}
}

// ErrInvalidTransition is returned when an operation is attempted from a
// state that does not allow it.
var ErrInvalidTransition = errors.New("session: invalid state transition")

// Session is the capture lifecycle state machine. All transitions are
// strictly forward except the explicit Reset, which returns to Idle from
// any state.
type Session struct {
	ID uuid.UUID

	// SampleTimeSeconds bounds automatic stop: ShouldStop reports true once
	// the sampling timer exceeds this duration.
	SampleTimeSeconds float64

	mu               sync.Mutex
	state            State
	samplingStart    time.Time
	threadUsageStart time.Time
	doneCallbacks    []func()
}

// New returns a Session in the Idle state.
func New(sampleTimeSeconds float64) *Session {
	return &Session{
		ID:                uuid.New(),
		SampleTimeSeconds: sampleTimeSeconds,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartCapture transitions Idle -> Sampling and starts the sampling and
// thread-usage timers.
func (s *Session) StartCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return errors.Wrapf(ErrInvalidTransition, "StartCapture from %s", s.state)
	}
	now := time.Now()
	s.samplingStart = now
	s.threadUsageStart = now
	s.state = Sampling
	return nil
}

// StopCapture transitions Sampling -> PendingStop. It is the only
// user-initiated cancellation point.
func (s *Session) StopCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Sampling {
		return errors.Wrapf(ErrInvalidTransition, "StopCapture from %s", s.state)
	}
	s.state = PendingStop
	return nil
}

// ShouldStop reports whether the sampling timer has exceeded
// SampleTimeSeconds while Sampling. It never transitions state itself;
// the caller is expected to call StopCapture in response.
func (s *Session) ShouldStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Sampling {
		return false
	}
	return time.Since(s.samplingStart).Seconds() > s.SampleTimeSeconds
}

// GetSampleTime returns the sampling timer's elapsed seconds while
// Sampling, else 0.
func (s *Session) GetSampleTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Sampling {
		return 0
	}
	return time.Since(s.samplingStart).Seconds()
}

// BeginProcessing transitions PendingStop -> Processing. Only the first
// call after a PendingStop succeeds; subsequent calls while already
// Processing are no-ops that return nil, so callers don't need to
// special-case "process_samples called twice".
func (s *Session) BeginProcessing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case PendingStop:
		s.state = Processing
		return nil
	case Processing:
		return nil
	default:
		return errors.Wrapf(ErrInvalidTransition, "BeginProcessing from %s", s.state)
	}
}

// FinishProcessing transitions Processing -> DoneProcessing and fires all
// registered done-processing callbacks.
func (s *Session) FinishProcessing() error {
	s.mu.Lock()
	if s.state != Processing {
		s.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "FinishProcessing from %s", s.state)
	}
	s.state = DoneProcessing
	callbacks := append([]func(){}, s.doneCallbacks...)
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
	return nil
}

// OnDoneProcessing registers a callback fired at the end of
// FinishProcessing.
func (s *Session) OnDoneProcessing(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doneCallbacks = append(s.doneCallbacks, cb)
}

// Reset returns to Idle from any state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Idle
}
