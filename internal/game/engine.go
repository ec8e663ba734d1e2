package game

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
)

// Sender delivers wire records over the shared UDP socket. Implemented by
// the udp package; faked in tests.
type Sender interface {
	// Send serializes one record and sends it to a single address.
	Send(addr *net.UDPAddr, packet any)
	// Broadcast serializes one record once and sends it to every address.
	Broadcast(addrs []*net.UDPAddr, packet any)
}

// PlayerIndex routes player IDs back to lobby codes. Implemented by the
// registry; the engine keeps it current as players come and go.
type PlayerIndex interface {
	BindPlayer(playerID uint32, code string)
	UnbindPlayer(playerID uint32)
}

// EngineConfig wires one lobby's tick engine.
type EngineConfig struct {
	Lobby   *Lobby
	Weapons *Catalog
	Sender  Sender
	Stats   *GlobalStats // optional
	Index   PlayerIndex  // optional
	Logger  *zap.Logger

	TickInterval      time.Duration
	InactivityTimeout time.Duration
	WarningFraction   float64
	CleanupInterval   time.Duration
	QueueSize         int

	// Clock is injected so tests can drive timers without sleeping.
	// Defaults to time.Now.
	Clock func() time.Time

	// Optional metric hooks, wired to the observability package by the
	// process entrypoint.
	OnTick           func(time.Duration)
	OnDroppedCommand func()
}

// Engine runs one lobby: it is the single consumer of the command queue and
// the only goroutine that mutates the lobby state.
type Engine struct {
	lobby   *Lobby
	weapons *Catalog
	sender  Sender
	stats   *GlobalStats
	index   PlayerIndex
	log     *zap.Logger
	clock   func() time.Time

	cmds chan Command

	tickInterval      time.Duration
	inactivityTimeout time.Duration
	warningFraction   float64
	cleanupEvery      uint64 // in ticks

	onTick           func(time.Duration)
	onDroppedCommand func()

	tickCount uint64

	// Reused across ticks to keep the hot path allocation-light.
	cmdBuf    []Command
	posSlots  map[uint32]int
	syncBuf   []SyncEvent
	addrBuf   []*net.UDPAddr
}

// NewEngine builds a tick engine for one lobby.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 20 * time.Millisecond
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	cleanupEvery := uint64(cfg.CleanupInterval / cfg.TickInterval)
	if cleanupEvery == 0 {
		cleanupEvery = 1
	}

	return &Engine{
		lobby:             cfg.Lobby,
		weapons:           cfg.Weapons,
		sender:            cfg.Sender,
		stats:             cfg.Stats,
		index:             cfg.Index,
		log:               cfg.Logger.With(zap.String("lobby", cfg.Lobby.Code)),
		clock:             cfg.Clock,
		cmds:              make(chan Command, cfg.QueueSize),
		tickInterval:      cfg.TickInterval,
		inactivityTimeout: cfg.InactivityTimeout,
		warningFraction:   cfg.WarningFraction,
		cleanupEvery:      cleanupEvery,
		onTick:            cfg.OnTick,
		onDroppedCommand:  cfg.OnDroppedCommand,
		cmdBuf:            make([]Command, 0, 256),
		posSlots:          make(map[uint32]int),
		syncBuf:           make([]SyncEvent, 0, 64),
	}
}

// Lobby exposes the underlying state for inter-tick readers. Callers must
// use the lobby's read guard.
func (e *Engine) Lobby() *Lobby { return e.lobby }

// Code returns the lobby code.
func (e *Engine) Code() string { return e.lobby.Code }

// Enqueue submits a command without blocking. Inbound UDP is best-effort:
// when the queue is full the command is dropped and the producer moves on.
func (e *Engine) Enqueue(cmd Command) bool {
	select {
	case e.cmds <- cmd:
		return true
	default:
		e.log.Warn("command queue full, dropping command",
			zap.Stringer("kind", cmd.Kind),
			zap.Uint32("player_id", cmd.PlayerID))
		if e.onDroppedCommand != nil {
			e.onDroppedCommand()
		}
		return false
	}
}

// Run drives the tick loop until the context is cancelled or the command
// channel is closed. Ticks never stack: an overrun tick just makes the next
// timer fire immediately.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	e.log.Info("tick loop started", zap.Duration("interval", e.tickInterval))

	for {
		select {
		case <-ctx.Done():
			e.log.Info("tick loop stopped", zap.String("reason", "context cancelled"))
			return
		case <-ticker.C:
			start := e.clock()
			open := e.tick(start)
			elapsed := e.clock().Sub(start)
			if e.onTick != nil {
				e.onTick(elapsed)
			}
			if elapsed > e.tickInterval {
				e.log.Warn("tick overran its interval",
					zap.Duration("elapsed", elapsed),
					zap.Duration("interval", e.tickInterval))
			}
			if !open {
				e.log.Info("tick loop stopped", zap.String("reason", "command channel closed"))
				return
			}
		}
	}
}

// tick executes one full tick under the lobby's write guard. Returns false
// when the command channel was closed.
func (e *Engine) tick(now time.Time) bool {
	// Phase 1: drain commands, coalescing positions per player.
	e.cmdBuf = e.cmdBuf[:0]
	for id := range e.posSlots {
		delete(e.posSlots, id)
	}
	commands, open, coalesced := drainCommands(e.cmds, e.cmdBuf, e.posSlots)
	e.cmdBuf = commands
	if coalesced > 0 {
		e.log.Debug("coalesced position updates", zap.Int("discarded", coalesced))
	}

	l := e.lobby
	l.Lock()
	defer l.Unlock()

	e.tickCount++

	var (
		joined   []PlayerListEntry
		left     []uint32
		movers   []uint32
		shots    []PlayerShotPacket
		damages  []PlayerDamagedPacket
		kills    []KillEvent
		respawns []uint32
		kicked   []uint32
		warnings []InactivityWarningPacket
	)

	// Phase 2: dispatch every command. Soft failures log at debug and
	// produce no state change and no fan-out.
	for _, cmd := range commands {
		switch cmd.Kind {
		case CmdPlayerJoin:
			if err := AddPlayer(l, cmd.PlayerID, cmd.Name, DefaultWeaponID, e.weapons, now); err != nil {
				e.log.Warn("player join failed", zap.Uint32("player_id", cmd.PlayerID), zap.Error(err))
				continue
			}
			if cmd.Addr != nil {
				l.ClientAddrs[cmd.PlayerID] = cmd.Addr
				e.sendWelcome(l, cmd.PlayerID, cmd.Addr)
			}
			if e.index != nil {
				e.index.BindPlayer(cmd.PlayerID, l.Code)
			}
			joined = append(joined, e.rosterEntry(l, cmd.PlayerID))

		case CmdUDPConnect:
			player, ok := l.Players[cmd.PlayerID]
			if !ok {
				e.log.Warn("udp connect for unknown player", zap.Uint32("player_id", cmd.PlayerID))
				continue
			}
			l.ClientAddrs[cmd.PlayerID] = cmd.Addr
			player.LastUpdate = now
			if e.index != nil {
				e.index.BindPlayer(cmd.PlayerID, l.Code)
			}
			e.sendUDPConnected(l, cmd.PlayerID, cmd.Addr)
			joined = append(joined, e.rosterEntry(l, cmd.PlayerID))

		case CmdPlayerLeave:
			if _, ok := l.Players[cmd.PlayerID]; !ok {
				e.log.Debug("leave for unknown player", zap.Uint32("player_id", cmd.PlayerID))
				continue
			}
			e.recordDeparture(l, cmd.PlayerID)
			RemovePlayer(l, cmd.PlayerID)
			if e.index != nil {
				e.index.UnbindPlayer(cmd.PlayerID)
			}
			left = append(left, cmd.PlayerID)

		case CmdPositionUpdate:
			if cmd.Addr != nil {
				if _, ok := l.Players[cmd.PlayerID]; ok {
					l.ClientAddrs[cmd.PlayerID] = cmd.Addr
				}
			}
			if err := UpdatePosition(l, cmd.PlayerID, cmd.Position, cmd.Rotation, now); err != nil {
				e.log.Debug("position update failed", zap.Uint32("player_id", cmd.PlayerID), zap.Error(err))
				continue
			}
			movers = append(movers, cmd.PlayerID)

		case CmdShoot:
			fired, damage, kill, err := Shoot(l, e.weapons, cmd.PlayerID, cmd.TargetID, now)
			if err != nil {
				// Out-of-range damage means a broken catalog entry, which
				// is worth more than a debug line.
				level := e.log.Debug
				if errors.Is(err, ErrInvalidDamage) {
					level = e.log.Warn
				}
				level("shoot failed",
					zap.Uint32("player_id", cmd.PlayerID),
					zap.Uint32("target_id", cmd.TargetID),
					zap.Error(err))
				continue
			}
			if !fired {
				continue
			}
			shooter := l.Players[cmd.PlayerID]
			shots = append(shots, PlayerShotPacket{
				Type:     TypePlayerShot,
				PlayerID: cmd.PlayerID,
				TargetID: cmd.TargetID,
				WeaponID: shooter.CurrentWeaponID,
				Damage:   damage,
			})
			if target, ok := l.Players[cmd.TargetID]; ok {
				damages = append(damages, PlayerDamagedPacket{
					Type:     TypePlayerDamaged,
					PlayerID: cmd.TargetID,
					Damage:   damage,
					Health:   target.CurrentHealth,
				})
			}
			if kill != nil {
				kills = append(kills, *kill)
			}

		case CmdReload:
			if err := StartReload(l, e.weapons, cmd.PlayerID, now); err != nil {
				e.log.Debug("reload failed", zap.Uint32("player_id", cmd.PlayerID), zap.Error(err))
			}

		case CmdWeaponSwitch:
			if err := SwitchWeapon(l, e.weapons, cmd.PlayerID, cmd.WeaponID); err != nil {
				e.log.Debug("weapon switch failed", zap.Uint32("player_id", cmd.PlayerID), zap.Error(err))
			}

		case CmdHeartbeat:
			Heartbeat(l, cmd.PlayerID, cmd.Addr, now)
		}
	}

	// Phase 3: time-triggered transitions.
	CompleteReloads(l, now)
	for _, id := range RespawnDue(l, now) {
		if err := RespawnPlayer(l, id); err != nil {
			e.log.Debug("respawn failed", zap.Uint32("player_id", id), zap.Error(err))
			continue
		}
		respawns = append(respawns, id)
	}

	// Phase 4: inactivity supervision, on the sweep cadence.
	if e.inactivityTimeout > 0 && e.tickCount%e.cleanupEvery == 0 {
		removed, warned := CleanupInactive(l, e.inactivityTimeout, e.warningFraction, now)
		for _, player := range removed {
			if e.stats != nil {
				e.stats.RecordSession(player.ID, player.Name, player.Kills, player.Deaths, player.Score)
			}
			if e.index != nil {
				e.index.UnbindPlayer(player.ID)
			}
			left = append(left, player.ID)
			kicked = append(kicked, player.ID)
			e.log.Info("kicked inactive player",
				zap.Uint32("player_id", player.ID),
				zap.String("name", player.Name))
		}
		for _, id := range warned {
			player := l.Players[id]
			remaining := e.inactivityTimeout - now.Sub(player.LastUpdate)
			if remaining < 0 {
				remaining = 0
			}
			warnings = append(warnings, InactivityWarningPacket{
				Type:             TypeInactivityWarning,
				PlayerID:         id,
				SecondsRemaining: uint32(remaining / time.Second),
			})
		}
	}

	// Phase 5: fan out the events collected this tick.
	for _, entry := range joined {
		e.sender.Broadcast(e.recipients(l, entry.ID), PlayerJoinedPacket{
			Type:         TypePlayerJoined,
			Player:       entry,
			Notification: true,
		})
	}
	for _, id := range left {
		e.sender.Broadcast(e.recipients(l, 0), PlayerLeftPacket{Type: TypePlayerLeft, PlayerID: id})
	}
	for _, id := range kicked {
		e.sender.Broadcast(e.recipients(l, 0), PlayerKickedPacket{
			Type:     TypePlayerKicked,
			PlayerID: id,
			Reason:   "inactivity",
		})
	}
	for _, w := range warnings {
		e.sender.Broadcast(e.recipients(l, 0), w)
	}
	for _, id := range movers {
		player, ok := l.Players[id]
		if !ok {
			continue // left later in the same batch
		}
		e.sender.Broadcast(e.recipients(l, id), PositionPacket{
			Type:     TypePositionUpdate,
			PlayerID: id,
			Position: player.Position,
			Rotation: player.Rotation,
		})
	}
	for _, shot := range shots {
		e.sender.Broadcast(e.recipients(l, shot.PlayerID), shot)
	}
	for _, dmg := range damages {
		e.sender.Broadcast(e.recipients(l, 0), dmg)
	}
	for _, kill := range kills {
		e.sender.Broadcast(e.recipients(l, 0), PlayerKilledPacket{
			Type:             TypePlayerKilled,
			KillerID:         kill.KillerID,
			KillerName:       kill.KillerName,
			VictimID:         kill.VictimID,
			VictimName:       kill.VictimName,
			WeaponID:         kill.WeaponID,
			WeaponName:       kill.WeaponName,
			KillerKillstreak: kill.KillerKillstreak,
		})
	}
	for _, id := range respawns {
		e.sender.Broadcast(e.recipients(l, 0), PlayerRespawnedPacket{Type: TypePlayerRespawned, PlayerID: id})
	}

	// Phase 6: delta sync for the remaining dirty fields.
	e.syncBuf = CollectDirtyEvents(l, e.syncBuf[:0])
	for _, event := range e.syncBuf {
		e.sender.Broadcast(e.recipients(l, 0), event.Packet())
	}

	// Phase 7: reset for the next tick.
	l.ClearDirty()

	return open
}

// recipients collects every bound client address except the excluded player.
// Pass zero to include everyone; zero is never a real player id.
func (e *Engine) recipients(l *Lobby, exclude uint32) []*net.UDPAddr {
	e.addrBuf = e.addrBuf[:0]
	for id, addr := range l.ClientAddrs {
		if id == exclude {
			continue
		}
		e.addrBuf = append(e.addrBuf, addr)
	}
	return e.addrBuf
}

func (e *Engine) rosterEntry(l *Lobby, playerID uint32) PlayerListEntry {
	player := l.Players[playerID]
	return PlayerListEntry{
		ID:       player.ID,
		Name:     player.Name,
		Position: player.Position,
		Rotation: player.Rotation,
	}
}

// sendWelcome greets a joining player and hands them the current roster.
func (e *Engine) sendWelcome(l *Lobby, playerID uint32, addr *net.UDPAddr) {
	e.sender.Send(addr, WelcomePacket{
		Type:      TypeWelcome,
		Message:   "Connected to lobby",
		PlayerID:  playerID,
		SceneLoad: true,
	})
	e.sendRoster(l, playerID, addr)
}

// sendUDPConnected acknowledges a UDP re-connect without scene info, then
// hands over the roster.
func (e *Engine) sendUDPConnected(l *Lobby, playerID uint32, addr *net.UDPAddr) {
	e.sender.Send(addr, UDPConnectedPacket{
		Type:         TypeUDPConnected,
		PlayerID:     playerID,
		LobbyCode:    l.Code,
		Notification: true,
	})
	e.sendRoster(l, playerID, addr)
}

func (e *Engine) sendRoster(l *Lobby, recipientID uint32, addr *net.UDPAddr) {
	entries := make([]PlayerListEntry, 0, len(l.Players))
	for id, player := range l.Players {
		if id == recipientID {
			continue
		}
		entries = append(entries, PlayerListEntry{
			ID:       player.ID,
			Name:     player.Name,
			Position: player.Position,
			Rotation: player.Rotation,
		})
	}
	e.sender.Send(addr, PlayerListPacket{
		Type:         TypePlayerList,
		Players:      entries,
		Notification: true,
	})
}

// recordDeparture folds a departing player's session into the global stats.
func (e *Engine) recordDeparture(l *Lobby, playerID uint32) {
	if e.stats == nil || playerID == BotPlayerID {
		return
	}
	player, ok := l.Players[playerID]
	if !ok {
		return
	}
	e.stats.RecordSession(player.ID, player.Name, player.Kills, player.Deaths, player.Score)
}
