package smtpagent

import (
	"context"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-errors/errors"
	gonanoid "github.com/matoous/go-nanoid"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"smtpagent/config"
)

/*
Server - trusted TCP acceptor fronting the SMTP service

It binds a loopback endpoint, admits connections from exactly one trusted
origin and relays admitted payloads to the SMTP service HTTP endpoint.
Everything else is closed without reading a byte.
*/
type Server struct {
	sync.Mutex
	Addr string // TCP address to listen on, "127.0.0.1:8025" if empty

	cfg    *config.ServerConfig
	trust  *TrustFilter // origin gate, read-only after construction
	relay  Relay        // relay to the SMTP service
	limits Limits

	events *zap.Logger // connection event log, one JSON line per transition
	log    *zap.Logger // diagnostic logger

	shuttingDown bool // is the server shutting down?
}

/*
NewServer creates new server
*/
func NewServer(cfg *config.ServerConfig, relay Relay, events *zap.Logger, limits ...Limits) (*Server, error) {
	// setup diagnostic logger for server
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	trust, err := NewTrustFilter(cfg.TrustedOrigin)
	if err != nil {
		return nil, errors.WrapPrefix(err, "trust filter", 0)
	}
	s := &Server{
		cfg:          cfg,
		Addr:         net.JoinHostPort(cfg.BindAddr, strconv.Itoa(int(cfg.Port))),
		trust:        trust,
		relay:        relay,
		events:       events,
		log:          logger,
		shuttingDown: false,
	}
	// limits are optional, if no limits were provided, use the default ones
	if len(limits) == 1 {
		s.limits = limits[0]
	} else {
		s.limits = DefaultLimits
	}
	return s, nil
}

// ListenAndServe listens on the TCP network address and then calls Serve to
// handle requests on incoming connections. The listener is created with
// SO_REUSEADDR so restarts do not trip over sockets in TIME_WAIT. Any
// failure here is fatal startup, reported to the caller, never retried.
func (srv *Server) ListenAndServe() error {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var soErr error
			err := c.Control(func(fd uintptr) {
				soErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return soErr
		},
	}
	ln, err := lc.Listen(context.Background(), "tcp", srv.Addr)
	if err != nil {
		return errors.WrapPrefix(err, "listen "+srv.Addr, 0)
	}
	srv.log.Info("listening",
		zap.String("bind", srv.cfg.BindAddr),
		zap.Uint16("port", srv.cfg.Port),
		zap.String("trusted_origin", srv.trust.Trusted().String()),
	)
	return srv.Serve(ln)
}

// Generate new session upon connection
func (srv *Server) newSession(conn net.Conn) *session {
	id, err := gonanoid.Nanoid()
	if err != nil {
		// generating nanoid shouldn't really fail, and if, panicing is OK
		panic(err)
	}
	return &session{
		id:     id,
		conn:   conn,
		peer:   peerAddrPort(conn),
		fd:     connFd(conn),
		start:  time.Now(),
		srv:    srv,
		events: srv.events,
		log:    srv.log,
	}
}

// Serve incoming connections
// Creates new session for each connection and starts go routine to handle it.
// Sessions share nothing mutable: each owns its socket, its buffers and its
// relay invocation, so a hung or misbehaving peer stalls only its own
// goroutine.
func (srv *Server) Serve(ln net.Listener) error {
	defer ln.Close()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if netError, ok := err.(net.Error); ok && netError.Temporary() {
				srv.log.Error("temporary accept error", zap.Error(err))
				continue
			}
			return err
		}
		s := srv.newSession(conn)
		go s.Serve()
	}
}
