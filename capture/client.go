package capture

import (
	"log"

	"github.com/pkg/errors"

	"github.com/orbitcore/profiler/intern"
	"github.com/orbitcore/profiler/session"
)

// Client is the thin state machine a UI drives a capture through: it ties
// a Session's lifecycle to a Consumer reading off some event source,
// logging (but not aborting on) a non-OK finish the way the original
// CaptureClient does when the underlying stream closes uncleanly.
type Client struct {
	Session  *session.Session
	Consumer *Consumer
	Pools    *intern.Pools

	events chan Event
	done   chan struct{}
}

// NewClient returns a Client wiring session, listener, and pools
// together. listener typically is a sampling.Aggregator.
func NewClient(sess *session.Session, listener Listener, pools *intern.Pools) *Client {
	return &Client{
		Session:  sess,
		Consumer: NewConsumer(listener, pools),
		Pools:    pools,
	}
}

// StartCapture transitions the session into Sampling and launches a
// goroutine draining events into the Consumer until the channel closes or
// the session is stopped.
func (c *Client) StartCapture(events <-chan Event) error {
	if err := c.Session.StartCapture(); err != nil {
		return err
	}
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		for ev := range events {
			c.Consumer.Consume(ev)
			if c.Session.State() != session.Sampling {
				return
			}
		}
	}()
	return nil
}

// StopCapture transitions Sampling -> PendingStop and begins processing
// once the drain goroutine (if any) has finished.
func (c *Client) StopCapture() error {
	if err := c.Session.StopCapture(); err != nil {
		return err
	}
	return c.FinishCapture()
}

// FinishCapture waits for the event drain to end, then runs the
// Processing -> DoneProcessing transition. A closed channel just ends the
// drain: ProcessSamples still runs over whatever was received.
func (c *Client) FinishCapture() error {
	if c.done != nil {
		<-c.done
	}
	if err := c.Session.BeginProcessing(); err != nil {
		return errors.Wrap(err, "capture: beginning processing")
	}
	c.Consumer.Listener.OnDoneProcessing()
	if err := c.Session.FinishProcessing(); err != nil {
		log.Printf("ERROR: capture: finishing processing: %v", err)
		return err
	}
	return nil
}
