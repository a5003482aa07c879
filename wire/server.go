package wire

import (
	"log"
	"net"
	"strings"
	"sync"

	"github.com/xfxdev/xtcp"
)

// ServerHandler receives events from the remote tracing agent side of the
// connection: a CaptureRequestPacket asking to start a session, plus
// connect/disconnect notifications.
type ServerHandler struct {
	Connected    func()
	Disconnected func()

	OnCaptureRequest func(*CaptureRequestPacket)
}

// Server accepts capture streaming connections and dispatches their
// packets to Handler. Unlike Client, it can serve more than one
// connection at a time; OnEvent is called once per connection's events.
type Server struct {
	Addr    string
	Handler ServerHandler

	listener net.Listener
	xtcpsrv  *xtcp.Server

	mu    sync.Mutex
	conns map[*xtcp.Conn]struct{}
}

// Listen binds Addr ("tcp://host:port") and serves connections on it
// through the xtcp server's Serve, returning when that call returns.
func (s *Server) Listen() error {
	if !strings.HasPrefix(s.Addr, "tcp://") {
		return ErrInvalidAddress
	}
	addr := strings.TrimPrefix(s.Addr, "tcp://")

	var err error
	s.listener, err = net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.conns = make(map[*xtcp.Conn]struct{})

	opt := xtcp.NewOpts(s, Proto{})
	s.xtcpsrv = xtcp.NewServer(opt)
	s.xtcpsrv.Serve(s.listener)
	return nil
}

// ActualAddr returns the address the server ended up listening on, useful
// when Addr's port was 0.
func (s *Server) ActualAddr() string {
	addr := s.listener.Addr()
	return "tcp://" + addr.String()
}

// Stop closes the listener and every open connection.
func (s *Server) Stop() {
	s.xtcpsrv.Stop(xtcp.StopGracefullyAndWait)
}

// Broadcast sends a CaptureResponsePacket to every connected client.
func (s *Server) Broadcast(resp *CaptureResponsePacket) {
	s.mu.Lock()
	conns := make([]*xtcp.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := c.Send(resp); err != nil {
			log.Printf("ERROR: wire: sending CaptureResponsePacket: %v", err)
		}
	}
}

// OnEvent implements xtcp.EventHandler. p is nil for
// EventAccept/EventConnected/EventClosed.
func (s *Server) OnEvent(et xtcp.EventType, conn *xtcp.Conn, p xtcp.Packet) {
	switch et {
	case xtcp.EventAccept:
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		if s.Handler.Connected != nil {
			s.Handler.Connected()
		}
	case xtcp.EventRecv:
		switch pkt := p.(type) {
		case *PingPacket:
			// keepalive, nothing to do
		case *ShutdownPacket:
			conn.Stop(xtcp.StopImmediately)
		case *CaptureRequestPacket:
			if s.Handler.OnCaptureRequest != nil {
				s.Handler.OnCaptureRequest(pkt)
			}
		default:
			log.Printf("ERROR: wire: server received unexpected packet %T", pkt)
		}
	case xtcp.EventClosed:
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		if s.Handler.Disconnected != nil {
			s.Handler.Disconnected()
		}
	}
}
