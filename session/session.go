// Package session drives one accepted connection through the version
// handshake, login/registration, and the lobby/game state machine.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/jacobpatterson1549/rts-masterserver/db/user"
	"github.com/jacobpatterson1549/rts-masterserver/lobby"
	"github.com/jacobpatterson1549/rts-masterserver/protocol"
	"github.com/jacobpatterson1549/rts-masterserver/server/log"
	"golang.org/x/sync/errgroup"
)

type (
	// Config holds the dependencies shared by every session run against
	// the same server.
	Config struct {
		// Log is used to log errors and other information.
		Log log.Logger
		// Debug causes sessions to log the tags of messages read/processed.
		Debug bool
		// AcceptedVersion is the protocol version clients must present.
		AcceptedVersion []int
		// Registry is the shared client/game registry.
		Registry *lobby.Registry
		// UserDao authenticates and registers players.
		UserDao *user.Dao
	}

	// Session is one accepted connection's handshake and state machine run.
	Session struct {
		cfg    Config
		name   string
		host   string
		conn   net.Conn
		codec  *protocol.Codec
		client *lobby.Client
	}
)

func (cfg Config) validate() error {
	switch {
	case cfg.Log == nil:
		return fmt.Errorf("log required")
	case len(cfg.AcceptedVersion) == 0:
		return fmt.Errorf("accepted version required")
	case cfg.Registry == nil:
		return fmt.Errorf("registry required")
	case cfg.UserDao == nil:
		return fmt.Errorf("user dao required")
	}
	return nil
}

// Run drives conn through the handshake and, on success, the state
// machine, until the session ends. It always closes conn before returning.
func (cfg Config) Run(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	if err := cfg.validate(); err != nil {
		cfg.Log.Printf("session: %v", err)
		return
	}
	s := &Session{
		cfg:   cfg,
		host:  conn.RemoteAddr().String(),
		conn:  conn,
		codec: protocol.NewCodec(conn, conn),
	}
	if err := s.handshakeVersion(); err != nil {
		return
	}
	if err := s.authenticate(ctx); err != nil {
		return
	}
	s.runStateMachine(ctx)
}

func (s *Session) write(m protocol.Message) {
	if err := s.codec.WriteMessage(m); err != nil && s.cfg.Debug {
		s.cfg.Log.Printf("session %s: write failed: %v", s.name, err)
	}
}

func (s *Session) writeInfo(content string) {
	s.write(protocol.Message{Tag: protocol.TagMessage, Content: content})
}

func (s *Session) writeError(content string) {
	s.write(protocol.Message{Tag: protocol.TagError, Content: content})
}

// handshakeVersion runs phase 1: the first line must be a VersionMessage
// whose peerProtocolVersion matches the server's accepted version exactly.
func (s *Session) handshakeVersion() error {
	m, err := s.codec.ReadMessage()
	if err != nil {
		return err
	}
	if m.Tag != protocol.TagVersionMessage || !versionsEqual(m.PeerProtocolVersion, s.cfg.AcceptedVersion) {
		s.writeError("Incompatible Version.")
		return errIncompatibleVersion
	}
	s.writeInfo("Version accepted.")
	return nil
}

var errIncompatibleVersion = errors.New("session: incompatible protocol version")

func versionsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// authenticate runs phase 2: Login or AddPlayer messages loop until a
// successful Login creates this session's Client.
func (s *Session) authenticate(ctx context.Context) error {
	for {
		m, err := s.codec.ReadMessage()
		if err != nil {
			return err
		}
		if s.cfg.Debug {
			s.cfg.Log.Printf("session %s: authenticating with tag %v", s.host, m.Tag)
		}
		switch m.Tag {
		case protocol.TagLogin:
			ok, err := s.handleLogin(ctx, m)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		case protocol.TagAddPlayer:
			if err := s.handleAddPlayer(ctx, m); err != nil {
				return err
			}
		default:
			s.writeError("Unknown Format.")
			return errUnknownFormat
		}
	}
}

var errUnknownFormat = errors.New("session: unknown handshake message")

func (s *Session) handleLogin(ctx context.Context, m protocol.Message) (bool, error) {
	if err := s.cfg.UserDao.Authenticate(ctx, m.LoginName, m.LoginPassword); err != nil {
		s.writeError("Login failed.")
		return false, errLoginFailed
	}
	s.name = m.LoginName
	s.client = lobby.NewClient(m.LoginName, s.host, sessionHandle{s: s})
	s.cfg.Registry.AddClient(s.client)
	s.writeInfo("Login success.")
	return true, nil
}

var errLoginFailed = errors.New("session: login failed")

func (s *Session) handleAddPlayer(ctx context.Context, m protocol.Message) error {
	err := s.cfg.UserDao.Register(ctx, m.Name, m.Pw)
	switch {
	case err == nil:
		s.writeInfo("Player successfully added.")
		return nil
	case errors.Is(err, user.ErrNameTaken):
		s.writeError("Name taken.")
		return nil
	default:
		return fmt.Errorf("registering player: %w", err)
	}
}

// runStateMachine runs phase 3: a reader task decoding socket messages onto
// the client's inbox and a processor task draining it through the state
// machine. Either task's exit cancels the other; cleanup runs exactly once.
func (s *Session) runStateMachine(ctx context.Context) {
	defer s.cfg.Registry.RemoveClient(s.name)

	ctx, cancel := context.WithCancel(ctx)
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return s.readLoop()
	})
	g.Go(func() error {
		defer cancel()
		s.processLoop()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.conn.Close()
		s.client.Inbox.Close()
		return nil
	})

	g.Wait()
}

// readLoop only ever decodes and enqueues; it never writes to the codec
// itself, since the processor is the sole writer (spec's "writes to a
// given client's socket handle are always performed by exactly one task at
// a time" discipline). A malformed line is pushed onto the inbox as a
// DecodeError for the processor to reply to.
func (s *Session) readLoop() error {
	for {
		m, err := s.codec.ReadMessage()
		if err != nil {
			if isDecodeError(err) {
				s.client.Inbox.Push(protocol.Message{Tag: protocol.TagDecodeError})
				continue
			}
			return err
		}
		s.client.Inbox.Push(m)
	}
}

func (s *Session) processLoop() {
	st := State{Phase: PhaseLobby}
	for {
		m, ok := s.client.Inbox.Pop()
		if !ok {
			return
		}
		if m.Tag == protocol.TagDecodeError {
			s.writeError("Could not read message.")
			continue
		}
		if s.cfg.Debug {
			s.cfg.Log.Printf("session %s: processing tag %v in phase %v", s.name, m.Tag, st.Phase)
		}
		next, err := dispatch(s, st, m)
		if err != nil {
			return
		}
		st = next
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

type sessionHandle struct {
	s *Session
}

func (h sessionHandle) Write(m protocol.Message) error {
	return h.s.codec.WriteMessage(m)
}

func (h sessionHandle) Close() error {
	return h.s.conn.Close()
}
