// Package lobby holds the shared registry of logged-in clients and open
// games, and the atomic operations the state machine uses to mutate them.
package lobby

import (
	"context"
	"errors"

	"github.com/jacobpatterson1549/rts-masterserver/protocol"
	"github.com/jacobpatterson1549/rts-masterserver/server/log"
)

var (
	ErrGameNameTaken = errors.New("a game with that name already exists")
	ErrGameNotFound  = errors.New("no game with that name")
	ErrGameFull      = errors.New("game is full")
	ErrAlreadyJoined = errors.New("already joined that game")
	ErrTooFewSlots   = errors.New("can't choose less players")
	ErrNotHost       = errors.New("only the host can do that")
	ErrNotAllReady   = errors.New("not every player is ready")
)

type state struct {
	clients map[string]*Client
	games   map[string]*Game
}

// Registry is a single actor owning the clients and games maps. Every
// exported method submits a closure to its command loop and blocks until
// that closure has run, so every operation (and every operation spanning
// both maps) executes as one indivisible transaction.
type Registry struct {
	cmds  chan func(*state)
	log   log.Logger
	debug bool
}

// NewRegistry creates an empty Registry. Run must be started before any
// other method is called.
func NewRegistry(l log.Logger, debug bool) *Registry {
	return &Registry{
		cmds:  make(chan func(*state)),
		log:   l,
		debug: debug,
	}
}

// Run executes queued commands serially until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	s := &state{
		clients: make(map[string]*Client),
		games:   make(map[string]*Game),
	}
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-r.cmds:
			cmd(s)
		}
	}
}

func (r *Registry) do(f func(*state)) {
	done := make(chan struct{})
	r.cmds <- func(s *state) {
		f(s)
		close(done)
	}
	<-done
}

// AddClient registers c, displacing any existing client with the same
// name. The incumbent (if any) receives a Logout on its inbox in the same
// transaction that makes c visible under clients[c.Name].
func (r *Registry) AddClient(c *Client) {
	r.do(func(s *state) {
		if r.debug {
			r.log.Printf("registry adding client %s", c.Name)
		}
		if incumbent, ok := s.clients[c.Name]; ok {
			incumbent.Inbox.Push(protocol.Message{Tag: protocol.TagLogout})
		}
		s.clients[c.Name] = c
	})
}

// RemoveClient deregisters name and applies leaveGame for every game it was
// a member of.
func (r *Registry) RemoveClient(name string) {
	r.do(func(s *state) {
		delete(s.clients, name)
		for gameName, g := range s.games {
			if _, ok := g.Players[name]; ok {
				leaveGame(s, name, gameName)
			}
		}
	})
}

// GetGameList returns a snapshot of every open game.
func (r *Registry) GetGameList() []GameSummary {
	var list []GameSummary
	r.do(func(s *state) {
		list = make([]GameSummary, 0, len(s.games))
		for _, g := range s.games {
			list = append(list, g.summary())
		}
	})
	return list
}

// GetGame returns a deep-copied snapshot of gameName's current state.
func (r *Registry) GetGame(gameName string) (Game, bool) {
	var g Game
	var ok bool
	r.do(func(s *state) {
		orig, found := s.games[gameName]
		ok = found
		if !found {
			return
		}
		g = *orig
		g.Players = make(map[string]PlayerSlot, len(orig.Players))
		for name, slot := range orig.Players {
			g.Players[name] = slot
		}
	})
	return g, ok
}

// CheckAddGame creates a new game named gameName hosted by hostName, with
// hostName already seated in its own player slot, unless that name is
// already taken or maxPlayers can't even fit the host.
func (r *Registry) CheckAddGame(hostName, gameName, mapID, mode string, maxPlayers int) error {
	var err error
	r.do(func(s *state) {
		if maxPlayers < 1 {
			err = ErrTooFewSlots
			return
		}
		if _, exists := s.games[gameName]; exists {
			err = ErrGameNameTaken
			return
		}
		s.games[gameName] = &Game{
			Name:       gameName,
			Host:       hostName,
			Map:        mapID,
			Mode:       mode,
			MaxPlayers: maxPlayers,
			Players:    map[string]PlayerSlot{hostName: {}},
		}
	})
	return err
}

// JoinGame seats name in gameName's default PlayerSlot.
func (r *Registry) JoinGame(name, gameName string) error {
	var err error
	r.do(func(s *state) {
		g, ok := s.games[gameName]
		if !ok {
			err = ErrGameNotFound
			return
		}
		if _, already := g.Players[name]; already {
			err = ErrAlreadyJoined
			return
		}
		if len(g.Players) >= g.MaxPlayers {
			err = ErrGameFull
			return
		}
		g.Players[name] = PlayerSlot{}
	})
	return err
}

// LeaveGame removes name from gameName. If name was the host, the lobby is
// closed: every remaining member receives GameClosedByHost and the Game
// entry is deleted.
func (r *Registry) LeaveGame(name, gameName string) {
	r.do(func(s *state) {
		leaveGame(s, name, gameName)
	})
}

func leaveGame(s *state, name, gameName string) {
	g, ok := s.games[gameName]
	if !ok {
		return
	}
	wasHost := g.Host == name
	delete(g.Players, name)
	if wasHost {
		closeGame(s, g)
	}
}

func closeGame(s *state, g *Game) {
	for name := range g.Players {
		if c, ok := s.clients[name]; ok {
			c.Inbox.Push(protocol.Message{Tag: protocol.TagGameClosedByHost})
		}
	}
	delete(s.games, g.Name)
}

// UpdateGame changes gameName's map, mode, and capacity. maxPlayers may
// only be lowered to a value at least the current player count.
func (r *Registry) UpdateGame(gameName, mapID, mode string, maxPlayers int) error {
	var err error
	r.do(func(s *state) {
		g, ok := s.games[gameName]
		if !ok {
			err = ErrGameNotFound
			return
		}
		if maxPlayers < len(g.Players) {
			err = ErrTooFewSlots
			return
		}
		g.Map, g.Mode, g.MaxPlayers = mapID, mode, maxPlayers
	})
	return err
}

// UpdatePlayer replaces name's PlayerSlot within gameName.
func (r *Registry) UpdatePlayer(gameName, name, civ string, team int, ready bool) error {
	var err error
	r.do(func(s *state) {
		g, ok := s.games[gameName]
		if !ok {
			err = ErrGameNotFound
			return
		}
		if _, ok := g.Players[name]; !ok {
			err = ErrGameNotFound
			return
		}
		g.Players[name] = PlayerSlot{Civ: civ, Team: team, Ready: ready}
	})
	return err
}

// StartGame validates that requester is gameName's host and every slot is
// ready, then broadcasts GameStartedByHost to every member and returns a
// mapping from username to that client's reported host address.
func (r *Registry) StartGame(gameName, requester string) (map[string]string, error) {
	var hostMap map[string]string
	var err error
	r.do(func(s *state) {
		g, ok := s.games[gameName]
		if !ok {
			err = ErrGameNotFound
			return
		}
		if g.Host != requester {
			err = ErrNotHost
			return
		}
		for _, slot := range g.Players {
			if !slot.Ready {
				err = ErrNotAllReady
				return
			}
		}
		hostMap = make(map[string]string, len(g.Players))
		for name := range g.Players {
			c, ok := s.clients[name]
			if !ok {
				continue
			}
			hostMap[name] = c.Host
			c.Inbox.Push(protocol.Message{Tag: protocol.TagGameStartedByHost})
		}
	})
	return hostMap, err
}

// Broadcast pushes m onto the inbox of every client currently seated in
// gameName. Missing recipients are silently skipped; messages from one
// Broadcast call land contiguously in each recipient's inbox because the
// whole call runs as a single registry transaction.
func (r *Registry) Broadcast(gameName string, m protocol.Message) {
	r.broadcast(gameName, "", m)
}

// BroadcastExcept behaves like Broadcast but skips exclude, for senders
// that shouldn't receive their own broadcast back.
func (r *Registry) BroadcastExcept(gameName, exclude string, m protocol.Message) {
	r.broadcast(gameName, exclude, m)
}

func (r *Registry) broadcast(gameName, exclude string, m protocol.Message) {
	r.do(func(s *state) {
		g, ok := s.games[gameName]
		if !ok {
			return
		}
		for name := range g.Players {
			if name == exclude {
				continue
			}
			if c, ok := s.clients[name]; ok {
				c.Inbox.Push(m)
			}
		}
	})
}
