package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/jacobpatterson1549/rts-masterserver/protocol"
	"github.com/jacobpatterson1549/rts-masterserver/server/log/logtest"
)

type noopHandle struct{}

func (noopHandle) Write(protocol.Message) error { return nil }
func (noopHandle) Close() error                 { return nil }

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(logtest.DiscardLogger, true)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)
	return r
}

func mustPop(t *testing.T, in *Inbox) protocol.Message {
	t.Helper()
	select {
	case m := <-popAsync(in):
		return m
	case <-time.After(time.Second):
		t.Fatal("inbox had no message")
		return protocol.Message{}
	}
}

func popAsync(in *Inbox) <-chan protocol.Message {
	ch := make(chan protocol.Message, 1)
	go func() {
		if m, ok := in.Pop(); ok {
			ch <- m
		}
	}()
	return ch
}

func TestRegistryAddClientDisplacesIncumbent(t *testing.T) {
	r := newTestRegistry(t)
	alice1 := NewClient("alice", "1.1.1.1", noopHandle{})
	r.AddClient(alice1)
	alice2 := NewClient("alice", "2.2.2.2", noopHandle{})
	r.AddClient(alice2)

	m := mustPop(t, alice1.Inbox)
	if m.Tag != protocol.TagLogout {
		t.Errorf("wanted incumbent to receive Logout, got %v", m.Tag)
	}
	g, _ := r.GetGame("nonexistent")
	_ = g // registry still usable after displacement
}

func TestRegistryCheckAddGameAndJoin(t *testing.T) {
	r := newTestRegistry(t)
	alice := NewClient("alice", "a", noopHandle{})
	bob := NewClient("bob", "b", noopHandle{})
	r.AddClient(alice)
	r.AddClient(bob)

	if err := r.CheckAddGame("alice", "g1", "m", "mode", 2); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	if err := r.CheckAddGame("alice", "g1", "m", "mode", 2); err != ErrGameNameTaken {
		t.Errorf("wanted ErrGameNameTaken, got %v", err)
	}
	if err := r.JoinGame("bob", "g1"); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	g, ok := r.GetGame("g1")
	if !ok {
		t.Fatal("wanted game to exist")
	}
	if _, ok := g.Players["alice"]; !ok {
		t.Errorf("wanted host seated in players, got %+v", g.Players)
	}
	if _, ok := g.Players["bob"]; !ok {
		t.Errorf("wanted bob seated in players, got %+v", g.Players)
	}
}

func TestRegistryJoinGameFull(t *testing.T) {
	r := newTestRegistry(t)
	r.AddClient(NewClient("alice", "a", noopHandle{}))
	r.AddClient(NewClient("bob", "b", noopHandle{}))
	if err := r.CheckAddGame("alice", "g1", "m", "mode", 1); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	if err := r.JoinGame("bob", "g1"); err != ErrGameFull {
		t.Errorf("wanted ErrGameFull, got %v", err)
	}
}

func TestRegistryLeaveGameByHostClosesLobby(t *testing.T) {
	r := newTestRegistry(t)
	alice := NewClient("alice", "a", noopHandle{})
	bob := NewClient("bob", "b", noopHandle{})
	r.AddClient(alice)
	r.AddClient(bob)
	if err := r.CheckAddGame("alice", "g1", "m", "mode", 2); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	if err := r.JoinGame("bob", "g1"); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}

	r.LeaveGame("alice", "g1")

	if _, ok := r.GetGame("g1"); ok {
		t.Errorf("wanted game to be removed after host left")
	}
	m := mustPop(t, bob.Inbox)
	if m.Tag != protocol.TagGameClosedByHost {
		t.Errorf("wanted bob to receive GameClosedByHost, got %v", m.Tag)
	}
}

func TestRegistryRemoveClientCascadesLeave(t *testing.T) {
	r := newTestRegistry(t)
	alice := NewClient("alice", "a", noopHandle{})
	bob := NewClient("bob", "b", noopHandle{})
	r.AddClient(alice)
	r.AddClient(bob)
	if err := r.CheckAddGame("alice", "g1", "m", "mode", 2); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	if err := r.JoinGame("bob", "g1"); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}

	r.RemoveClient("alice")

	if _, ok := r.GetGame("g1"); ok {
		t.Errorf("wanted game removed when its host disconnects")
	}
	m := mustPop(t, bob.Inbox)
	if m.Tag != protocol.TagGameClosedByHost {
		t.Errorf("wanted bob to receive GameClosedByHost, got %v", m.Tag)
	}
}

func TestRegistryUpdateGameCapacity(t *testing.T) {
	r := newTestRegistry(t)
	r.AddClient(NewClient("alice", "a", noopHandle{}))
	r.AddClient(NewClient("bob", "b", noopHandle{}))
	if err := r.CheckAddGame("alice", "g1", "m", "mode", 2); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	if err := r.JoinGame("bob", "g1"); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	if err := r.UpdateGame("g1", "m2", "mode2", 1); err != ErrTooFewSlots {
		t.Errorf("wanted ErrTooFewSlots lowering below current count, got %v", err)
	}
	if err := r.UpdateGame("g1", "m2", "mode2", 2); err != nil {
		t.Errorf("unwanted error raising/keeping capacity: %v", err)
	}
}

func TestRegistryStartGameRequiresHostAndReady(t *testing.T) {
	r := newTestRegistry(t)
	alice := NewClient("alice", "10.0.0.1:9000", noopHandle{})
	bob := NewClient("bob", "10.0.0.2:9000", noopHandle{})
	r.AddClient(alice)
	r.AddClient(bob)
	if err := r.CheckAddGame("alice", "g1", "m", "mode", 2); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	if err := r.JoinGame("bob", "g1"); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}

	if _, err := r.StartGame("g1", "bob"); err != ErrNotHost {
		t.Errorf("wanted ErrNotHost for non-host start, got %v", err)
	}
	if _, err := r.StartGame("g1", "alice"); err != ErrNotAllReady {
		t.Errorf("wanted ErrNotAllReady before players ready, got %v", err)
	}

	if err := r.UpdatePlayer("g1", "alice", "", 0, true); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	if err := r.UpdatePlayer("g1", "bob", "x", 1, true); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}

	hostMap, err := r.StartGame("g1", "alice")
	if err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	if hostMap["alice"] != alice.Host || hostMap["bob"] != bob.Host {
		t.Errorf("wanted hostMap with both peer addresses, got %+v", hostMap)
	}
	m := mustPop(t, bob.Inbox)
	if m.Tag != protocol.TagGameStartedByHost {
		t.Errorf("wanted bob to receive GameStartedByHost, got %v", m.Tag)
	}
}

func TestRegistryBroadcast(t *testing.T) {
	r := newTestRegistry(t)
	alice := NewClient("alice", "a", noopHandle{})
	bob := NewClient("bob", "b", noopHandle{})
	r.AddClient(alice)
	r.AddClient(bob)
	if err := r.CheckAddGame("alice", "g1", "m", "mode", 2); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	if err := r.JoinGame("bob", "g1"); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}

	r.Broadcast("g1", protocol.Message{Tag: protocol.TagChatFromThread, ChatFromTOrign: "alice", ChatFromTContent: "hi"})

	for _, in := range []*Inbox{alice.Inbox, bob.Inbox} {
		m := mustPop(t, in)
		if m.Tag != protocol.TagChatFromThread || m.ChatFromTContent != "hi" {
			t.Errorf("wanted broadcast chat message, got %+v", m)
		}
	}
}

func TestRegistryBroadcastExceptSkipsSender(t *testing.T) {
	r := newTestRegistry(t)
	alice := NewClient("alice", "a", noopHandle{})
	bob := NewClient("bob", "b", noopHandle{})
	r.AddClient(alice)
	r.AddClient(bob)
	if err := r.CheckAddGame("alice", "g1", "m", "mode", 2); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}
	if err := r.JoinGame("bob", "g1"); err != nil {
		t.Fatalf("unwanted error: %v", err)
	}

	r.BroadcastExcept("g1", "alice", protocol.Message{Tag: protocol.TagBroadcast, Content: "Game Over."})

	m := mustPop(t, bob.Inbox)
	if m.Tag != protocol.TagBroadcast || m.Content != "Game Over." {
		t.Errorf("wanted bob to receive the broadcast, got %+v", m)
	}
	select {
	case m := <-popAsync(alice.Inbox):
		t.Errorf("wanted excluded sender to receive nothing, got %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegistryCheckAddGameRejectsTooFewSlots(t *testing.T) {
	r := newTestRegistry(t)
	r.AddClient(NewClient("alice", "a", noopHandle{}))
	if err := r.CheckAddGame("alice", "g1", "m", "mode", 0); err != ErrTooFewSlots {
		t.Errorf("wanted ErrTooFewSlots for a zero-capacity game, got %v", err)
	}
	if _, ok := r.GetGame("g1"); ok {
		t.Errorf("wanted no game created after rejected CheckAddGame")
	}
}
