package udp

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/lambdv/gungame/internal/game"
)

// testHarness wires a real socket pair around the dispatch path so replies
// can be observed end to end.
type testHarness struct {
	server   *Server
	registry *game.Registry
	client   *net.UDPConn
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { serverConn.Close() })

	clientConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { clientConn.Close() })

	sender := NewSender(serverConn, nil)
	registry := game.NewRegistry(game.RegistryConfig{
		Weapons:      game.LoadCatalog(),
		Sender:       sender,
		Stats:        game.NewGlobalStats(),
		TickInterval: time.Hour, // dispatch tests never need a tick
		QueueSize:    64,
	})

	server := NewServer(ServerConfig{
		Conn:     serverConn,
		Registry: registry,
		Sender:   sender,
	})

	return &testHarness{server: server, registry: registry, client: clientConn}
}

func (h *testHarness) clientAddr() *net.UDPAddr {
	return h.client.LocalAddr().(*net.UDPAddr)
}

func (h *testHarness) readReply(t *testing.T) map[string]any {
	t.Helper()
	h.client.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 2048)
	n, _, err := h.client.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("no reply: %v", err)
	}
	var reply map[string]any
	if err := json.Unmarshal(buf[:n], &reply); err != nil {
		t.Fatalf("bad reply %q: %v", buf[:n], err)
	}
	return reply
}

// TestDispatchJoinUnknownLobby tests the explicit error ack
func TestDispatchJoinUnknownLobby(t *testing.T) {
	h := newTestHarness(t)

	h.server.dispatch(Inbound{
		Type:      TypeJoin,
		LobbyCode: "NOPE",
		PlayerID:  1,
	}, h.clientAddr())

	reply := h.readReply(t)
	if reply["type"] != game.TypeError {
		t.Errorf("Expected error ack, got %v", reply)
	}
}

// TestDispatchJoinKnownLobby tests the welcome ack and the enqueued connect
func TestDispatchJoinKnownLobby(t *testing.T) {
	h := newTestHarness(t)
	ctx := t.Context()
	if _, err := h.registry.Create(ctx, "GAME", 4, "arena"); err != nil {
		t.Fatal(err)
	}

	h.server.dispatch(Inbound{
		Type:       TypeJoin,
		LobbyCode:  "GAME",
		PlayerID:   3,
		PlayerName: "Joiner",
	}, h.clientAddr())

	reply := h.readReply(t)
	if reply["type"] != game.TypeWelcome {
		t.Errorf("Expected welcome ack, got %v", reply)
	}
	if reply["player_id"] != float64(3) {
		t.Errorf("Expected player id 3, got %v", reply["player_id"])
	}
}

// TestDispatchRequestState tests the point full-state reply
func TestDispatchRequestState(t *testing.T) {
	h := newTestHarness(t)
	ctx := t.Context()
	engine, err := h.registry.Create(ctx, "GAME", 4, "arena")
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.AdmitPlayer(5, "Stateful"); err != nil {
		t.Fatal(err)
	}

	h.server.dispatch(Inbound{Type: TypeRequestState, PlayerID: 5}, h.clientAddr())

	reply := h.readReply(t)
	if reply["type"] != game.TypePlayerStateUpdate {
		t.Errorf("Expected full state, got %v", reply)
	}
	if reply["health"] != float64(100) || reply["ammo"] != float64(20) {
		t.Errorf("state payload wrong: %v", reply)
	}
	if reply["lobby_code"] != "GAME" {
		t.Errorf("Expected lobby code GAME, got %v", reply["lobby_code"])
	}
}

// TestDispatchUnroutablePlayer tests that commands for unknown players are
// silently dropped.
func TestDispatchUnroutablePlayer(t *testing.T) {
	h := newTestHarness(t)

	// Must not panic or send anything.
	h.server.dispatch(Inbound{Type: TypeShoot, PlayerID: 99, TargetID: 1}, h.clientAddr())
	h.server.dispatch(Inbound{Type: TypeReload, PlayerID: 99}, h.clientAddr())

	h.client.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 64)
	if n, _, err := h.client.ReadFromUDP(buf); err == nil {
		t.Errorf("unexpected reply %q", buf[:n])
	}
}
