// Package instrumentation lets an instrumented Go program emit
// FunctionCall capture events for its own functions, standing in for a
// real remote tracing agent in tests and demos that have none.
package instrumentation

import (
	"sync"
	"time"

	"github.com/orbitcore/profiler/capture"
)

// Stream is where emitted events go. A program typically runs one Stream
// per thread it instruments and feeds its Events channel straight into a
// capture.Consumer.
type Stream struct {
	TID    uint32
	Events chan capture.Event

	mu    sync.Mutex
	depth uint8
}

// NewStream returns a Stream with a reasonably buffered channel so a
// burst of nested Scopes doesn't block the instrumented code on a slow
// consumer.
func NewStream(tid uint32) *Stream {
	return &Stream{TID: tid, Events: make(chan capture.Event, 1024)}
}

// Scope marks one function call's duration. Call End when the function
// returns; depth tracks nesting the way a real unwinder would report it.
type Scope struct {
	stream          *Stream
	absoluteAddress uint64
	depth           uint8
	beginTimestamp  int64
}

// Begin starts a Scope for absoluteAddress on s, incrementing that
// stream's call depth for the duration of the scope.
func (s *Stream) Begin(absoluteAddress uint64) *Scope {
	s.mu.Lock()
	depth := s.depth
	s.depth++
	s.mu.Unlock()
	return &Scope{
		stream:          s,
		absoluteAddress: absoluteAddress,
		depth:           depth,
		beginTimestamp:  time.Now().UnixNano(),
	}
}

// End closes the scope, emitting its FunctionCall event onto the stream.
// returnValue is carried through as the event's user data, matching what
// the original SDK's manual markers allowed callers to attach.
func (sc *Scope) End(returnValue uint64) {
	sc.stream.mu.Lock()
	sc.stream.depth--
	sc.stream.mu.Unlock()
	sc.stream.Events <- capture.Event{
		Kind: capture.EventFunctionCall,
		FunctionCall: &capture.FunctionCall{
			TID:              sc.stream.TID,
			BeginTimestampNs: sc.beginTimestamp,
			EndTimestampNs:   time.Now().UnixNano(),
			Depth:            sc.depth,
			AbsoluteAddress:  sc.absoluteAddress,
			ReturnValue:      returnValue,
		},
	}
}
