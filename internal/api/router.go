// Package api is the HTTP control plane: lobby discovery and leaderboards.
// Handlers read lobby state through inter-tick views and never mutate it
// directly, except the synchronous join admission that must return the
// assigned player id in its response.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/lambdv/gungame/internal/game"
)

// RouterConfig contains everything needed to construct the HTTP router.
// Designed for dependency injection: tests build a router around a real
// registry and drive it with httptest.
type RouterConfig struct {
	// Registry is the process-wide lobby index (required).
	Registry *game.Registry

	// Stats is the cross-session stats store (required).
	Stats *game.GlobalStats

	// Weapons is the catalog exposed read-only on the API (required).
	Weapons *game.Catalog

	// ServerIP and UDPPort are advertised to clients in lobby info.
	ServerIP string
	UDPPort  int

	// DefaultMaxPlayers and DefaultScene fill omitted create fields.
	DefaultMaxPlayers uint32
	DefaultScene      string

	// RateLimiter is an optional pre-configured limiter. If nil, one is
	// built from RateLimitConfig (or the defaults).
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the permissive default.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (benchmarks).
	DisableLogging bool

	Logger *zap.Logger
}

type routerHandlers struct {
	registry          *game.Registry
	stats             *game.GlobalStats
	weapons           *game.Catalog
	serverIP          string
	udpPort           int
	defaultMaxPlayers uint32
	defaultScene      string
	log               *zap.Logger
}

// NewRouter constructs the control-plane router with all middleware and
// routes. It opens no listeners and is safe for httptest. When no RateLimiter
// is supplied, the limiter it builds starts its own cleanup goroutine.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ServerIP == "" {
		cfg.ServerIP = "127.0.0.1"
	}
	if cfg.DefaultMaxPlayers == 0 {
		cfg.DefaultMaxPlayers = 4
	}
	if cfg.DefaultScene == "" {
		cfg.DefaultScene = "world"
	}

	r := chi.NewRouter()

	// Middleware - order matters.
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS to reject early and save CPU.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)
	r.Use(metricsMiddleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	h := &routerHandlers{
		registry:          cfg.Registry,
		stats:             cfg.Stats,
		weapons:           cfg.Weapons,
		serverIP:          cfg.ServerIP,
		udpPort:           cfg.UDPPort,
		defaultMaxPlayers: cfg.DefaultMaxPlayers,
		defaultScene:      cfg.DefaultScene,
		log:               cfg.Logger,
	}

	r.Post("/lobbies", h.handleCreateLobby)
	r.Get("/lobbies", h.handleListLobbies)
	r.Post("/lobbies/{code}/join", h.handleJoinLobby)
	r.Get("/lobbies/{code}", h.handleGetLobby)
	r.Get("/lobbies/{code}/leaderboard", h.handleLobbyLeaderboard)
	r.Get("/leaderboard", h.handleGlobalLeaderboard)
	r.Get("/weapons", h.handleGetWeapons)

	return r
}

// metricsMiddleware records request latency per route pattern. The pattern
// is only known after routing, so it is read once the handler returns.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		RecordRequest(r.Method, pattern, time.Since(start))
	})
}
