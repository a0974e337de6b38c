package smtpagent

import (
	"context"
	"net"
	"net/netip"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type sessionState int

const (
	sessionStateAccepted sessionState = iota
	sessionStateRejected
	sessionStateRelayStart
	sessionStateRelayComplete
	sessionStateClosed
)

// session wraps one accepted connection for easier handling. It owns the
// socket from accept to close and shares nothing with other sessions.
type session struct {
	conn  net.Conn       // connection
	id    string         // connection id
	peer  netip.AddrPort // remote address and port
	fd    int            // underlying descriptor, -1 if unavailable
	state sessionState   // session state
	start time.Time      // start time of the session

	events *zap.Logger // connection event log
	log    *zap.Logger // diagnostic logger
	srv    *Server     // server handling this connection
}

// event appends one line to the connection event log. Logging failures
// degrade observability only; they never affect connection handling.
func (s *session) event(name string) {
	s.events.Info(name,
		zap.String("client", s.peer.Addr().String()),
		zap.Uint16("port", s.peer.Port()),
		zap.Int("fd", s.fd),
		zap.String("conn", s.id),
	)
}

// Serve - serve given session
// The trust decision is made exactly once, before any payload byte is read;
// a rejected peer sees its connection closed with nothing exchanged. Every
// state transition emits exactly one event, and the socket is closed exactly
// once on every path.
func (s *session) Serve() {
	defer func() {
		s.state = sessionStateClosed
		s.conn.Close()
	}()

	s.state = sessionStateAccepted
	s.event(EventAccepted)

	if !s.srv.trust.IsTrusted(s.peer.Addr()) {
		s.state = sessionStateRejected
		s.event(EventRejected)
		return
	}

	s.state = sessionStateRelayStart
	s.event(EventRelayStart)
	s.relay()
	s.state = sessionStateRelayComplete
	s.event(EventRelayComplete)
}

// relay performs the single bounded read from the client, forwards it to the
// SMTP service and writes the response back verbatim. Every degradation -
// empty payload, relay failure, empty response - ends the same way: nothing
// is sent and the connection closes cleanly.
func (s *session) relay() {
	if d := s.srv.limits.ClientRead; d > 0 {
		s.conn.SetReadDeadline(time.Now().Add(d))
	}
	buf := make([]byte, s.srv.limits.MaxPayload)
	n, _ := s.conn.Read(buf)
	if n <= 0 {
		// peer closed or errored before sending anything worth relaying
		return
	}

	ctx := context.Background()
	if d := s.srv.limits.RelayWait; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	resp, err := s.srv.relay.Relay(ctx, buf[:n])
	if err != nil {
		s.log.Warn("relay degraded", zap.String("conn", s.id), zap.Error(err))
		return
	}
	if len(resp) > 0 {
		s.conn.Write(resp)
	}
}

// peerAddrPort extracts the remote address of a connection, unmapping the
// 4-in-6 form net.TCPAddr produces so IPv4 peers log as IPv4. Non-TCP
// connections (test doubles) fall back to parsing the string form.
func peerAddrPort(conn net.Conn) netip.AddrPort {
	ap, ok := netip.AddrPort{}, false
	if tcp, isTCP := conn.RemoteAddr().(*net.TCPAddr); isTCP {
		ap, ok = tcp.AddrPort(), true
	} else if parsed, err := netip.ParseAddrPort(conn.RemoteAddr().String()); err == nil {
		ap, ok = parsed, true
	}
	if !ok {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

// connFd reports the connection's file descriptor for log correlation with
// the kernel's view, -1 when the connection does not expose one.
func connFd(conn net.Conn) int {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return -1
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1
	}
	fd := -1
	raw.Control(func(f uintptr) { fd = int(f) })
	return fd
}
