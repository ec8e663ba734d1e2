package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lambdv/gungame/internal/game"
)

// CreateLobbyRequest is the POST /lobbies body.
type CreateLobbyRequest struct {
	Code       string  `json:"code"`
	MaxPlayers *uint32 `json:"max_players"`
	Scene      *string `json:"scene"`
}

// JoinLobbyRequest is the POST /lobbies/{code}/join body.
type JoinLobbyRequest struct {
	PlayerName string `json:"player_name"`
}

// JoinLobbyResponse returns the assigned player id with the lobby info.
type JoinLobbyResponse struct {
	Lobby    game.LobbyInfo `json:"lobby"`
	PlayerID uint32         `json:"player_id"`
}

// GlobalLeaderboardEntry is one row of the cross-session leaderboard.
type GlobalLeaderboardEntry struct {
	PlayerID    uint32  `json:"player_id"`
	Name        string  `json:"name"`
	TotalKills  uint32  `json:"total_kills"`
	TotalDeaths uint32  `json:"total_deaths"`
	TotalScore  uint32  `json:"total_score"`
	GamesPlayed uint32  `json:"games_played"`
	KDRatio     float32 `json:"kdratio"`
}

func (h *routerHandlers) handleCreateLobby(w http.ResponseWriter, r *http.Request) {
	var req CreateLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	code := req.Code
	if code == "" {
		// Short opaque code for clients that let the server pick one.
		code = strings.ToUpper(uuid.NewString()[:8])
	}

	maxPlayers := h.defaultMaxPlayers
	if req.MaxPlayers != nil && *req.MaxPlayers > 0 {
		maxPlayers = *req.MaxPlayers
	}
	scene := h.defaultScene
	if req.Scene != nil && *req.Scene != "" {
		scene = *req.Scene
	}

	// The lobby outlives this request, so its tick loop must not inherit the
	// request's cancellation.
	engine, err := h.registry.Create(context.WithoutCancel(r.Context()), code, maxPlayers, scene)
	if err != nil {
		if errors.Is(err, game.ErrLobbyExists) {
			writeError(w, "Lobby already exists", http.StatusConflict)
			return
		}
		h.log.Error("lobby create failed", zap.String("code", code), zap.Error(err))
		writeError(w, "Failed to create lobby", http.StatusInternalServerError)
		return
	}

	writeJSON(w, engine.Info(h.serverIP, h.udpPort))
}

func (h *routerHandlers) handleListLobbies(w http.ResponseWriter, r *http.Request) {
	engines := h.registry.Engines()
	infos := make([]game.LobbyInfo, 0, len(engines))
	for _, engine := range engines {
		infos = append(infos, engine.Info(h.serverIP, h.udpPort))
	}
	writeJSON(w, infos)
}

func (h *routerHandlers) handleJoinLobby(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req JoinLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.PlayerName == "" {
		writeError(w, "player_name is required", http.StatusBadRequest)
		return
	}

	engine, ok := h.registry.Get(code)
	if !ok {
		writeError(w, "Lobby not found", http.StatusNotFound)
		return
	}

	playerID := h.registry.NextPlayerID()
	if err := engine.AdmitPlayer(playerID, req.PlayerName); err != nil {
		switch {
		case errors.Is(err, game.ErrLobbyFull):
			writeError(w, "Lobby is full", http.StatusBadRequest)
		case errors.Is(err, game.ErrPlayerExists):
			writeError(w, "Player already exists", http.StatusConflict)
		default:
			writeError(w, "Join failed", http.StatusBadRequest)
		}
		return
	}

	writeJSON(w, JoinLobbyResponse{
		Lobby:    engine.Info(h.serverIP, h.udpPort),
		PlayerID: playerID,
	})
}

func (h *routerHandlers) handleGetLobby(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	engine, ok := h.registry.Get(code)
	if !ok {
		writeError(w, "Lobby not found", http.StatusNotFound)
		return
	}
	writeJSON(w, engine.Info(h.serverIP, h.udpPort))
}

func (h *routerHandlers) handleLobbyLeaderboard(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	engine, ok := h.registry.Get(code)
	if !ok {
		writeError(w, "Lobby not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"lobby_code": code,
		"entries":    engine.Leaderboard(),
	})
}

func (h *routerHandlers) handleGlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	top := h.stats.TopByScore(20)
	entries := make([]GlobalLeaderboardEntry, 0, len(top))
	for _, s := range top {
		entries = append(entries, GlobalLeaderboardEntry{
			PlayerID:    s.PlayerID,
			Name:        s.Name,
			TotalKills:  s.TotalKills,
			TotalDeaths: s.TotalDeaths,
			TotalScore:  s.TotalScore,
			GamesPlayed: s.GamesPlayed,
			KDRatio:     s.KDRatio(),
		})
	}
	writeJSON(w, entries)
}

func (h *routerHandlers) handleGetWeapons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.weapons.All())
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
