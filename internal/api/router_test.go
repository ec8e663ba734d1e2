package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lambdv/gungame/internal/game"
)

// nopSender satisfies game.Sender without touching a socket.
type nopSender struct{}

func (nopSender) Send(addr *net.UDPAddr, packet any)         {}
func (nopSender) Broadcast(addrs []*net.UDPAddr, packet any) {}

type apiHarness struct {
	ts       *httptest.Server
	registry *game.Registry
	stats    *game.GlobalStats
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	stats := game.NewGlobalStats()
	registry := game.NewRegistry(game.RegistryConfig{
		Weapons:      game.LoadCatalog(),
		Sender:       nopSender{},
		Stats:        stats,
		TickInterval: time.Hour,
		QueueSize:    64,
	})

	router := NewRouter(RouterConfig{
		Registry: registry,
		Stats:    stats,
		Weapons:  game.LoadCatalog(),
		ServerIP: "127.0.0.1",
		UDPPort:  8081,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000, // High limit for tests
			Burst:             1000,
		},
		DisableLogging: true,
	})

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &apiHarness{ts: ts, registry: registry, stats: stats}
}

func (h *apiHarness) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(h.ts.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatal(err)
	}
}

// TestCreateLobby tests lobby creation through the control plane
func TestCreateLobby(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.postJSON(t, "/lobbies", map[string]any{
		"code":        "MATCH1",
		"max_players": 6,
		"scene":       "arena",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var info game.LobbyInfo
	decodeBody(t, resp, &info)
	if info.Code != "MATCH1" || info.MaxPlayers != 6 || info.Scene != "arena" {
		t.Errorf("lobby info wrong: %+v", info)
	}
	if info.UDPPort != 8081 {
		t.Errorf("Expected advertised UDP port 8081, got %d", info.UDPPort)
	}
	if !h.registry.Exists("MATCH1") {
		t.Error("lobby should exist in the registry")
	}
}

// TestCreateLobbyConflict tests the duplicate-code conflict
func TestCreateLobbyConflict(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.postJSON(t, "/lobbies", map[string]any{"code": "DUP"})
	resp.Body.Close()
	resp = h.postJSON(t, "/lobbies", map[string]any{"code": "DUP"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409, got %d", resp.StatusCode)
	}
}

// TestCreateLobbyGeneratedCode tests server-side code generation
func TestCreateLobbyGeneratedCode(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.postJSON(t, "/lobbies", map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var info game.LobbyInfo
	decodeBody(t, resp, &info)
	if len(info.Code) != 8 {
		t.Errorf("Expected 8-char generated code, got %q", info.Code)
	}
}

// TestJoinLobby tests the synchronous admission returning a player id
func TestJoinLobby(t *testing.T) {
	h := newAPIHarness(t)
	h.postJSON(t, "/lobbies", map[string]any{"code": "JOINME"}).Body.Close()

	resp := h.postJSON(t, "/lobbies/JOINME/join", map[string]any{"player_name": "Newbie"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var joined JoinLobbyResponse
	decodeBody(t, resp, &joined)
	if joined.PlayerID == 0 {
		t.Error("a player id should be assigned")
	}
	if joined.Lobby.PlayerCount != 1 {
		t.Errorf("Expected 1 player, got %d", joined.Lobby.PlayerCount)
	}
}

// TestJoinLobbyNotFound tests the 404 mapping
func TestJoinLobbyNotFound(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.postJSON(t, "/lobbies/MISSING/join", map[string]any{"player_name": "Lost"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

// TestJoinLobbyFull tests the capacity error mapping
func TestJoinLobbyFull(t *testing.T) {
	h := newAPIHarness(t)
	h.postJSON(t, "/lobbies", map[string]any{"code": "TINY", "max_players": 1}).Body.Close()

	h.postJSON(t, "/lobbies/TINY/join", map[string]any{"player_name": "One"}).Body.Close()
	resp := h.postJSON(t, "/lobbies/TINY/join", map[string]any{"player_name": "Two"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for a full lobby, got %d", resp.StatusCode)
	}
}

// TestListLobbies tests the discovery listing
func TestListLobbies(t *testing.T) {
	h := newAPIHarness(t)
	for i := 0; i < 3; i++ {
		h.postJSON(t, "/lobbies", map[string]any{"code": fmt.Sprintf("L%d", i)}).Body.Close()
	}

	resp, err := http.Get(h.ts.URL + "/lobbies")
	if err != nil {
		t.Fatal(err)
	}
	var infos []game.LobbyInfo
	decodeBody(t, resp, &infos)
	if len(infos) != 3 {
		t.Errorf("Expected 3 lobbies, got %d", len(infos))
	}
}

// TestGetLobby tests single-lobby info and the 404 case
func TestGetLobby(t *testing.T) {
	h := newAPIHarness(t)
	h.postJSON(t, "/lobbies", map[string]any{"code": "INFO"}).Body.Close()

	resp, err := http.Get(h.ts.URL + "/lobbies/INFO")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(h.ts.URL + "/lobbies/NOPE")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

// TestLobbyLeaderboard tests the per-lobby scoreboard shape
func TestLobbyLeaderboard(t *testing.T) {
	h := newAPIHarness(t)
	h.postJSON(t, "/lobbies", map[string]any{"code": "SCORES"}).Body.Close()
	h.postJSON(t, "/lobbies/SCORES/join", map[string]any{"player_name": "Player"}).Body.Close()

	resp, err := http.Get(h.ts.URL + "/lobbies/SCORES/leaderboard")
	if err != nil {
		t.Fatal(err)
	}
	var board struct {
		LobbyCode string                  `json:"lobby_code"`
		Entries   []game.LeaderboardEntry `json:"entries"`
	}
	decodeBody(t, resp, &board)
	if board.LobbyCode != "SCORES" {
		t.Errorf("Expected lobby code SCORES, got %q", board.LobbyCode)
	}
	if len(board.Entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(board.Entries))
	}
}

// TestGlobalLeaderboard tests the cross-session top list
func TestGlobalLeaderboard(t *testing.T) {
	h := newAPIHarness(t)
	h.stats.RecordSession(1, "Champ", 50, 10, 6000)
	h.stats.RecordSession(2, "Runner", 20, 10, 2500)

	resp, err := http.Get(h.ts.URL + "/leaderboard")
	if err != nil {
		t.Fatal(err)
	}
	var entries []GlobalLeaderboardEntry
	decodeBody(t, resp, &entries)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "Champ" {
		t.Errorf("Expected Champ first, got %q", entries[0].Name)
	}
	if entries[0].KDRatio != 5 {
		t.Errorf("Expected K/D 5, got %f", entries[0].KDRatio)
	}
}

// TestGetWeapons tests the catalog listing
func TestGetWeapons(t *testing.T) {
	h := newAPIHarness(t)

	resp, err := http.Get(h.ts.URL + "/weapons")
	if err != nil {
		t.Fatal(err)
	}
	var weapons []game.Weapon
	decodeBody(t, resp, &weapons)
	if len(weapons) != 4 {
		t.Errorf("Expected 4 weapons, got %d", len(weapons))
	}
}

// TestRateLimiterMiddleware tests the 429 once the bucket drains
func TestRateLimiterMiddleware(t *testing.T) {
	stats := game.NewGlobalStats()
	registry := game.NewRegistry(game.RegistryConfig{
		Weapons:      game.LoadCatalog(),
		Sender:       nopSender{},
		Stats:        stats,
		TickInterval: time.Hour,
	})
	router := NewRouter(RouterConfig{
		Registry: registry,
		Stats:    stats,
		Weapons:  game.LoadCatalog(),
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             2,
		},
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	limited := false
	for i := 0; i < 5; i++ {
		resp, err := http.Get(ts.URL + "/lobbies")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Error("burst past the limit should hit 429")
	}
}
