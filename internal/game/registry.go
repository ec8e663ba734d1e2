package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Registry is the process-wide lobby index. It maps codes to running
// engines and player ids to codes so the UDP ingress can route datagrams
// that identify only the player.
type Registry struct {
	mu      sync.RWMutex
	lobbies map[string]*lobbyHandle
	players map[uint32]string

	nextID atomic.Uint32

	weapons *Catalog
	sender  Sender
	stats   *GlobalStats
	log     *zap.Logger

	tickInterval      time.Duration
	inactivityTimeout time.Duration
	warningFraction   float64
	cleanupInterval   time.Duration
	queueSize         int
	clock             func() time.Time

	onTick           func(time.Duration)
	onDroppedCommand func()
}

type lobbyHandle struct {
	engine *Engine
	cancel context.CancelFunc
}

// RegistryConfig wires the registry's shared dependencies; every lobby it
// creates inherits them.
type RegistryConfig struct {
	Weapons *Catalog
	Sender  Sender
	Stats   *GlobalStats
	Logger  *zap.Logger

	TickInterval      time.Duration
	InactivityTimeout time.Duration
	WarningFraction   float64
	CleanupInterval   time.Duration
	QueueSize         int

	Clock func() time.Time

	OnTick           func(time.Duration)
	OnDroppedCommand func()
}

// NewRegistry creates an empty lobby registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Registry{
		lobbies:           make(map[string]*lobbyHandle),
		players:           make(map[uint32]string),
		weapons:           cfg.Weapons,
		sender:            cfg.Sender,
		stats:             cfg.Stats,
		log:               cfg.Logger,
		tickInterval:      cfg.TickInterval,
		inactivityTimeout: cfg.InactivityTimeout,
		warningFraction:   cfg.WarningFraction,
		cleanupInterval:   cfg.CleanupInterval,
		queueSize:         cfg.QueueSize,
		clock:             cfg.Clock,
		onTick:            cfg.OnTick,
		onDroppedCommand:  cfg.OnDroppedCommand,
	}
}

// Create builds a lobby, spawns its tick loop, and indexes it. Fails with
// ErrLobbyExists on a duplicate code.
func (r *Registry) Create(ctx context.Context, code string, maxPlayers uint32, scene string) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lobbies[code]; exists {
		return nil, ErrLobbyExists
	}

	engine := NewEngine(EngineConfig{
		Lobby:             NewLobby(code, maxPlayers, scene),
		Weapons:           r.weapons,
		Sender:            r.sender,
		Stats:             r.stats,
		Index:             r,
		Logger:            r.log,
		TickInterval:      r.tickInterval,
		InactivityTimeout: r.inactivityTimeout,
		WarningFraction:   r.warningFraction,
		CleanupInterval:   r.cleanupInterval,
		QueueSize:         r.queueSize,
		Clock:             r.clock,
		OnTick:            r.onTick,
		OnDroppedCommand:  r.onDroppedCommand,
	})

	lobbyCtx, cancel := context.WithCancel(ctx)
	r.lobbies[code] = &lobbyHandle{engine: engine, cancel: cancel}
	go engine.Run(lobbyCtx)

	r.log.Info("lobby created",
		zap.String("code", code),
		zap.Uint32("max_players", maxPlayers),
		zap.String("scene", scene))
	return engine, nil
}

// Destroy cancels a lobby's tick loop and removes it from the indices.
func (r *Registry) Destroy(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.lobbies[code]
	if !ok {
		return
	}
	handle.cancel()
	delete(r.lobbies, code)
	for id, c := range r.players {
		if c == code {
			delete(r.players, id)
		}
	}
	r.log.Info("lobby destroyed", zap.String("code", code))
}

// Get returns a lobby's engine by code.
func (r *Registry) Get(code string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.lobbies[code]
	if !ok {
		return nil, false
	}
	return handle.engine, true
}

// Exists reports whether a lobby code is taken.
func (r *Registry) Exists(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.lobbies[code]
	return ok
}

// Engines returns every running lobby engine.
func (r *Registry) Engines() []*Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engines := make([]*Engine, 0, len(r.lobbies))
	for _, handle := range r.lobbies {
		engines = append(engines, handle.engine)
	}
	return engines
}

// RoutePlayer resolves the lobby engine a player belongs to.
func (r *Registry) RoutePlayer(playerID uint32) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.players[playerID]
	if !ok {
		return nil, false
	}
	handle, ok := r.lobbies[code]
	if !ok {
		return nil, false
	}
	return handle.engine, true
}

// NextPlayerID hands out process-unique player ids. The reserved bot id is
// skipped so it can never be assigned to a real player.
func (r *Registry) NextPlayerID() uint32 {
	for {
		id := r.nextID.Add(1)
		if id != BotPlayerID {
			return id
		}
	}
}

// BindPlayer indexes a player to a lobby code for UDP routing.
func (r *Registry) BindPlayer(playerID uint32, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[playerID] = code
}

// UnbindPlayer drops a player from the routing index.
func (r *Registry) UnbindPlayer(playerID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, playerID)
}
