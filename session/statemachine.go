package session

import (
	"errors"

	"github.com/jacobpatterson1549/rts-masterserver/lobby"
	"github.com/jacobpatterson1549/rts-masterserver/protocol"
)

// handlerFunc applies one inbox message to a Session in state st and
// returns the resulting State. A protocolWarning return sends its text to
// the client as an Error and otherwise behaves like a nil error; any other
// error (only errLogout today) ends the processor loop.
type handlerFunc func(s *Session, st State, m protocol.Message) (State, error)

var lobbyHandlers = map[protocol.Tag]handlerFunc{
	protocol.TagGameQuery: handleGameQuery,
	protocol.TagGameInit:  handleGameInit,
	protocol.TagGameJoin:  handleGameJoin,
	protocol.TagLogout:    handleLogout,
}

var inLobbyGameHandlers = map[protocol.Tag]handlerFunc{
	protocol.TagChatFromClient:    handleChatFromClient,
	protocol.TagChatFromThread:    handleChatFromThread,
	protocol.TagGameStart:         handleGameStart,
	protocol.TagGameInfo:          handleGameInfo,
	protocol.TagGameConfig:        handleGameConfig,
	protocol.TagPlayerConfig:      handlePlayerConfig,
	protocol.TagGameClosedByHost:  handleGameClosedByHost,
	protocol.TagGameLeave:         handleGameLeaveToLobbyPhase,
	protocol.TagGameStartedByHost: handleGameStartedByHost,
	protocol.TagLogout:            handleLogout,
}

var inRunningGameHandlers = map[protocol.Tag]handlerFunc{
	protocol.TagBroadcast:        handleBroadcast,
	protocol.TagChatFromClient:   handleChatFromClient,
	protocol.TagChatFromThread:   handleChatFromThread,
	protocol.TagGameClosedByHost: handleGameClosedByHost,
	protocol.TagGameLeave:        handleGameLeaveBackToLobbyGamePhase,
	protocol.TagGameOver:         handleGameOver,
	protocol.TagLogout:           handleLogout,
}

func tableFor(p Phase) map[protocol.Tag]handlerFunc {
	switch p {
	case PhaseInLobbyGame:
		return inLobbyGameHandlers
	case PhaseInRunningGame:
		return inRunningGameHandlers
	default:
		return lobbyHandlers
	}
}

// dispatch applies m to the processor's current state, writing an Error
// for both unrecognized (state, tag) pairs and protocolWarnings.
func dispatch(s *Session, st State, m protocol.Message) (State, error) {
	h, ok := tableFor(st.Phase)[m.Tag]
	if !ok {
		s.writeError("Unknown Message.")
		return st, nil
	}
	next, err := h(s, st, m)
	if err == nil {
		return next, nil
	}
	var warn protocolWarning
	if errors.As(err, &warn) {
		s.writeError(string(warn))
		return next, nil
	}
	return next, err
}

// gameLeaveHandler is the shared "Leave handler" from the state machine:
// remove self from the game (closing it for everyone if self is host) and
// return to the lobby.
func gameLeaveHandler(s *Session, st State) State {
	s.cfg.Registry.LeaveGame(s.name, st.Game)
	return State{Phase: PhaseLobby}
}

func handleGameQuery(s *Session, st State, m protocol.Message) (State, error) {
	games := s.cfg.Registry.GetGameList()
	summaries := make([]protocol.GameSummary, len(games))
	for i, g := range games {
		summaries[i] = protocol.GameSummary{
			GameID:     g.Name,
			Name:       g.Name,
			Map:        g.Map,
			Mode:       g.Mode,
			NumPlayers: g.MaxPlayers,
			NumJoined:  g.NumPlayers,
		}
	}
	s.write(protocol.Message{Tag: protocol.TagGameQueryAnswer, Games: summaries})
	return st, nil
}

func handleGameInit(s *Session, st State, m protocol.Message) (State, error) {
	if err := s.cfg.Registry.CheckAddGame(s.name, m.GameInitName, m.GameMap, m.GameMode, m.NumPlayers); err != nil {
		return st, protocolWarning("Failed adding game.")
	}
	s.writeInfo("Added game.")
	return State{Phase: PhaseInLobbyGame, Game: m.GameInitName}, nil
}

func handleGameJoin(s *Session, st State, m protocol.Message) (State, error) {
	switch err := s.cfg.Registry.JoinGame(s.name, m.GameID); err {
	case nil:
		s.writeInfo("Joined Game.")
		return State{Phase: PhaseInLobbyGame, Game: m.GameID}, nil
	case lobby.ErrGameFull:
		return st, protocolWarning("Game is full.")
	case lobby.ErrGameNotFound:
		return st, protocolWarning("Game does not exist.")
	default:
		return st, protocolWarning(err.Error())
	}
}

func handleLogout(s *Session, st State, m protocol.Message) (State, error) {
	s.writeInfo("You have been logged out.")
	return st, errLogout
}

func handleChatFromClient(s *Session, st State, m protocol.Message) (State, error) {
	s.cfg.Registry.Broadcast(st.Game, protocol.Message{
		Tag:              protocol.TagChatFromThread,
		ChatFromTOrign:   s.name,
		ChatFromTContent: m.ChatFromCContent,
	})
	return st, nil
}

func handleChatFromThread(s *Session, st State, m protocol.Message) (State, error) {
	s.write(protocol.Message{
		Tag:     protocol.TagChatOut,
		Origin:  m.ChatFromTOrign,
		Content: m.ChatFromTContent,
	})
	return st, nil
}

func handleGameStart(s *Session, st State, m protocol.Message) (State, error) {
	hostMap, err := s.cfg.Registry.StartGame(st.Game, s.name)
	switch err {
	case nil:
		s.write(protocol.Message{Tag: protocol.TagGameStartAnswer, HostMap: hostMap})
		return st, nil
	case lobby.ErrNotAllReady:
		return st, protocolWarning("Players not ready.")
	case lobby.ErrNotHost:
		return st, protocolWarning("Only the host can start the game.")
	default:
		return st, protocolWarning(err.Error())
	}
}

func handleGameInfo(s *Session, st State, m protocol.Message) (State, error) {
	g, ok := s.cfg.Registry.GetGame(st.Game)
	if !ok {
		return st, protocolWarning("Game does not exist.")
	}
	info := &protocol.GameInfo{
		GameID:  g.Name,
		Name:    g.Name,
		Map:     g.Map,
		Mode:    g.Mode,
		Host:    g.Host,
		Players: make([]protocol.PlayerConfig, 0, len(g.Players)),
	}
	for name, slot := range g.Players {
		info.Players = append(info.Players, protocol.PlayerConfig{
			Name:  name,
			Civ:   slot.Civ,
			Team:  slot.Team,
			Ready: slot.Ready,
		})
	}
	s.write(protocol.Message{Tag: protocol.TagGameInfoAnswer, Game: info})
	return st, nil
}

func handleGameConfig(s *Session, st State, m protocol.Message) (State, error) {
	g, ok := s.cfg.Registry.GetGame(st.Game)
	if !ok {
		return st, protocolWarning("Game does not exist.")
	}
	if g.Host != s.name {
		// Non-host GameConfig stays in IN_LOBBY_GAME: the original's
		// transition to IN_RUNNING_GAME here looks like an unintentional
		// bug and nothing downstream depends on it.
		return st, protocolWarning("Unknown Message.")
	}
	if m.GameConfPlayerNum < len(g.Players) {
		return st, protocolWarning("Can't choose less Players.")
	}
	if err := s.cfg.Registry.UpdateGame(st.Game, m.GameConfMap, m.GameConfMode, m.GameConfPlayerNum); err != nil {
		return st, protocolWarning(err.Error())
	}
	return st, nil
}

func handlePlayerConfig(s *Session, st State, m protocol.Message) (State, error) {
	if err := s.cfg.Registry.UpdatePlayer(st.Game, s.name, m.PlayerCiv, m.PlayerTeam, m.PlayerReady); err != nil {
		return st, protocolWarning(err.Error())
	}
	return st, nil
}

func handleGameClosedByHost(s *Session, st State, m protocol.Message) (State, error) {
	s.cfg.Registry.LeaveGame(s.name, st.Game)
	s.writeInfo("Game was closed by Host.")
	return State{Phase: PhaseLobby}, nil
}

func handleGameLeaveToLobbyPhase(s *Session, st State, m protocol.Message) (State, error) {
	return gameLeaveHandler(s, st), nil
}

func handleGameStartedByHost(s *Session, st State, m protocol.Message) (State, error) {
	s.writeInfo("Game started...")
	return State{Phase: PhaseInRunningGame, Game: st.Game}, nil
}

func handleBroadcast(s *Session, st State, m protocol.Message) (State, error) {
	s.write(protocol.Message{Tag: protocol.TagMessage, Content: m.Content})
	return st, nil
}

// handleGameLeaveBackToLobbyGamePhase preserves the original's behavior of
// landing back in IN_LOBBY_GAME(g) for the same game name after a running
// game's GameLeave, even though the shared leave handler's own terminal
// state is the lobby.
func handleGameLeaveBackToLobbyGamePhase(s *Session, st State, m protocol.Message) (State, error) {
	gameLeaveHandler(s, st)
	return State{Phase: PhaseInLobbyGame, Game: st.Game}, nil
}

func handleGameOver(s *Session, st State, m protocol.Message) (State, error) {
	g, ok := s.cfg.Registry.GetGame(st.Game)
	if !ok || g.Host != s.name {
		return st, protocolWarning("Unknown Message.")
	}
	s.cfg.Registry.BroadcastExcept(st.Game, s.name, protocol.Message{Tag: protocol.TagBroadcast, Content: "Game Over."})
	gameLeaveHandler(s, st)
	return State{Phase: PhaseLobby}, nil
}
