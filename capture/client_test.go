package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/orbitcore/profiler/intern"
	"github.com/orbitcore/profiler/session"
)

func TestClientLifecycleDrainsEventsThenProcesses(t *testing.T) {
	l := newFakeListener()
	pools := intern.New()
	sess := session.New(60)
	c := NewClient(sess, l, pools)

	events := make(chan Event, 2)
	events <- Event{Kind: EventThreadName, ThreadName: &ThreadName{TID: 1, Name: "main"}}
	close(events)

	assert.NoError(t, c.StartCapture(events))

	assert.Eventually(t, func() bool {
		select {
		case <-c.done:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	assert.NoError(t, c.StopCapture())
	assert.Equal(t, session.DoneProcessing, sess.State())
	assert.True(t, l.doneProcessing)
	assert.Equal(t, "main", l.threadNames[1])
}
