package wire

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xfxdev/xtcp"
)

const (
	DefaultMaxRetries = 10
	MinWaitTime       = 10 * time.Millisecond
	DefaultPingInterval = 5 * time.Second
)

// ErrInvalidAddress is returned when Client.Addr doesn't have a
// recognized scheme.
var ErrInvalidAddress = errors.New("wire: invalid address, expected tcp://host:port")

// ClientHandler receives the events a capture streaming connection
// produces. Unneeded fields may be left nil.
type ClientHandler struct {
	Connected    func()
	Disconnected func()

	OnCaptureResponse func(*CaptureResponsePacket)
}

// Client streams a capture session from a remote tracing agent over
// xtcp, framing packets with Proto. Serve retries DialAndServe up to
// MaxRetries times when it returns an error, doubling the wait between
// attempts starting from MinWaitTime.
type Client struct {
	Addr    string
	Handler ClientHandler

	PingInterval time.Duration
	MaxRetries   int

	initOnce  sync.Once
	closeOnce sync.Once
	workerCtx chan struct{}
	workerWg  sync.WaitGroup

	xtcpconn *xtcp.Conn
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		if c.MaxRetries == 0 {
			c.MaxRetries = DefaultMaxRetries
		}
		if c.PingInterval == 0 {
			c.PingInterval = DefaultPingInterval
		}
		c.workerCtx = make(chan struct{})
	})
}

// Serve connects to Addr and serves until the connection closes. It
// blocks.
func (c *Client) Serve() error {
	c.init()

	if !strings.HasPrefix(c.Addr, "tcp://") {
		return ErrInvalidAddress
	}
	addr := strings.TrimPrefix(c.Addr, "tcp://")

	opt := xtcp.NewOpts(c, Proto{})
	c.xtcpconn = xtcp.NewConn(opt)

	retries := 0
	waitTime := MinWaitTime
	for {
		if err := c.xtcpconn.DialAndServe(addr); err != nil {
			if retries >= c.MaxRetries {
				return err
			}
			retries++
			time.Sleep(waitTime)
			waitTime *= 2
			continue
		}
		return nil
	}
}

// Send writes a packet out on the connection.
func (c *Client) Send(p xtcp.Packet) error {
	return c.xtcpconn.Send(p)
}

// Close requests a graceful shutdown and waits for the worker loop to
// drain.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if sendErr := c.Send(&ShutdownPacket{}); sendErr != nil {
			err = errors.Wrap(sendErr, "wire: sending ShutdownPacket")
		}
		close(c.workerCtx)
		c.workerWg.Wait()
		c.xtcpconn.Stop(xtcp.StopGracefullyAndWait)
	})
	return err
}

func (c *Client) pingWorker() {
	defer c.workerWg.Done()
	ticker := time.NewTicker(c.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Send(&PingPacket{}); err != nil {
				return
			}
		case <-c.workerCtx:
			return
		}
	}
}

// OnEvent implements xtcp.EventHandler. p is nil for
// EventConnected/EventClosed.
func (c *Client) OnEvent(et xtcp.EventType, conn *xtcp.Conn, p xtcp.Packet) {
	switch et {
	case xtcp.EventConnected:
		c.workerWg.Add(1)
		go c.pingWorker()
		if c.Handler.Connected != nil {
			c.Handler.Connected()
		}
	case xtcp.EventRecv:
		switch pkt := p.(type) {
		case *PingPacket:
			// keepalive, nothing to do
		case *ShutdownPacket:
			conn.Stop(xtcp.StopImmediately)
		case *CaptureResponsePacket:
			if c.Handler.OnCaptureResponse != nil {
				c.Handler.OnCaptureResponse(pkt)
			}
		}
	case xtcp.EventClosed:
		if c.Handler.Disconnected != nil {
			c.Handler.Disconnected()
		}
	}
}
