package game

// Delta sync: after commands and timers ran, each dirty player's current
// state is diffed against the previous tick's snapshot and one event per
// changed field is emitted. Position changes never go through here; movers
// are broadcast directly from the tick's coalesced batch.

// SyncKind discriminates the per-field change variants.
type SyncKind uint8

const (
	SyncHealth SyncKind = iota
	SyncAmmo
	SyncMaxAmmo
	SyncWeapon
	SyncReload
	SyncScore
)

// SyncEvent is one per-field state change destined for every client.
type SyncEvent struct {
	Kind     SyncKind
	PlayerID uint32

	Value     uint32 // health, ammo, max ammo or weapon id
	Reloading bool   // SyncReload: true = reload_started, false = reload_finished

	// SyncScore groups the scoreboard fields into one event.
	Score      uint32
	Kills      uint32
	Deaths     uint32
	Killstreak uint32
}

// CollectDirtyEvents diffs every dirty player against the last-sync snapshot,
// appends the resulting events to buf, and advances the snapshots. A dirty
// player with no prior snapshot records a baseline without emitting: the
// welcome path already carried their initial state.
func CollectDirtyEvents(l *Lobby, buf []SyncEvent) []SyncEvent {
	for id := range l.Dirty {
		player, ok := l.Players[id]
		if !ok {
			continue
		}

		current := player.Sync()
		prev, seen := l.LastSync[id]
		l.LastSync[id] = current
		if !seen {
			continue
		}

		if current.Health != prev.Health {
			buf = append(buf, SyncEvent{Kind: SyncHealth, PlayerID: id, Value: current.Health})
		}
		if current.Ammo != prev.Ammo {
			buf = append(buf, SyncEvent{Kind: SyncAmmo, PlayerID: id, Value: current.Ammo})
		}
		if current.MaxAmmo != prev.MaxAmmo {
			buf = append(buf, SyncEvent{Kind: SyncMaxAmmo, PlayerID: id, Value: current.MaxAmmo})
		}
		if current.WeaponID != prev.WeaponID {
			buf = append(buf, SyncEvent{Kind: SyncWeapon, PlayerID: id, Value: current.WeaponID})
		}
		if current.IsReloading != prev.IsReloading {
			buf = append(buf, SyncEvent{Kind: SyncReload, PlayerID: id, Reloading: current.IsReloading})
		}
		if current.Score != prev.Score || current.Kills != prev.Kills ||
			current.Deaths != prev.Deaths || current.Killstreak != prev.Killstreak {
			buf = append(buf, SyncEvent{
				Kind:       SyncScore,
				PlayerID:   id,
				Score:      current.Score,
				Kills:      current.Kills,
				Deaths:     current.Deaths,
				Killstreak: current.Killstreak,
			})
		}
	}
	return buf
}

// Packet maps a sync event to its wire record.
func (e SyncEvent) Packet() any {
	switch e.Kind {
	case SyncHealth:
		v := e.Value
		return StateUpdatePacket{Type: TypePlayerStateUpdate, PlayerID: e.PlayerID, Health: &v}
	case SyncAmmo:
		v := e.Value
		return StateUpdatePacket{Type: TypePlayerStateUpdate, PlayerID: e.PlayerID, Ammo: &v}
	case SyncMaxAmmo:
		v := e.Value
		return StateUpdatePacket{Type: TypePlayerStateUpdate, PlayerID: e.PlayerID, MaxAmmo: &v}
	case SyncWeapon:
		return WeaponSwitchedPacket{Type: TypeWeaponSwitched, PlayerID: e.PlayerID, WeaponID: e.Value}
	case SyncReload:
		t := TypeReloadFinished
		if e.Reloading {
			t = TypeReloadStarted
		}
		return ReloadStatePacket{Type: t, PlayerID: e.PlayerID}
	case SyncScore:
		return ScoreUpdatePacket{
			Type:       TypeScoreUpdate,
			PlayerID:   e.PlayerID,
			Score:      e.Score,
			Kills:      e.Kills,
			Deaths:     e.Deaths,
			Killstreak: e.Killstreak,
		}
	}
	return nil
}
