// Package server runs the masterserver's TCP accept loop, handing each
// accepted connection to a session.
package server

import (
	"context"
	"fmt"
	"net"

	"github.com/jacobpatterson1549/rts-masterserver/server/log"
	"github.com/jacobpatterson1549/rts-masterserver/server/runner"
	"github.com/jacobpatterson1549/rts-masterserver/session"
)

// Server listens on a TCP port and runs session.Config against every
// accepted connection.
type Server struct {
	Port       int
	Log        log.Logger
	SessionCfg session.Config

	// Ready, if non-nil, receives the listener's bound address once
	// listening begins. Tests use it to discover an ephemeral port.
	Ready chan<- net.Addr

	runner runner.Runner
}

// Run listens on s.Port and serves connections until ctx is cancelled or an
// unrecoverable accept error occurs. It can only be called once.
func (s *Server) Run(ctx context.Context) error {
	if err := s.runner.Run(); err != nil {
		return fmt.Errorf("running server: %w", err)
	}
	defer s.runner.Finish()

	l, err := listen(s.Port)
	if err != nil {
		return fmt.Errorf("starting listener: %w", err)
	}
	defer l.Close()
	s.Log.Printf("Listening on port %d", s.Port)
	if s.Ready != nil {
		s.Ready <- l.Addr()
	}

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accepting connection: %w", err)
			}
		}
		s.Log.Printf("Accepted connection from %s", connIP(conn))
		go s.SessionCfg.Run(ctx, conn)
	}
}

func connIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
