package game

import "time"

// Vec3 is a position or rotation triple on the UDP wire.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// SpawnPosition and SpawnRotation are where players appear on join and respawn.
var (
	SpawnPosition = Vec3{X: 0, Y: 1, Z: 0}
	SpawnRotation = Vec3{X: 0, Y: 0, Z: 0}
)

// BotPlayerID is the reserved dummy target. It is excluded from inactivity
// cleanup, leaderboards and heartbeat requirements.
const BotPlayerID uint32 = 999

// Player is the authoritative per-player state. Owned by its lobby; only the
// lobby's tick goroutine mutates it.
type Player struct {
	ID   uint32
	Name string

	Position Vec3
	Rotation Vec3

	// LastUpdate is refreshed by any inbound activity and drives the
	// inactivity supervisor.
	LastUpdate time.Time

	CurrentHealth uint32
	MaxHealth     uint32

	CurrentWeaponID uint32
	CurrentAmmo     uint32
	MaxAmmo         uint32

	IsReloading   bool
	ReloadEndTime time.Time // zero unless IsReloading

	LastShotTime time.Time // fire-rate gating

	Kills      uint32
	Deaths     uint32
	Score      uint32
	Killstreak uint32 // resets on death

	WarnedAt time.Time // zero until an inactivity warning was issued

	IsDead      bool
	RespawnTime time.Time // zero unless IsDead
}

// NewPlayer creates a player at the spawn point holding the given weapon.
func NewPlayer(id uint32, name string, weapon Weapon, now time.Time) *Player {
	return &Player{
		ID:              id,
		Name:            name,
		Position:        SpawnPosition,
		Rotation:        SpawnRotation,
		LastUpdate:      now,
		CurrentHealth:   100,
		MaxHealth:       100,
		CurrentWeaponID: weapon.ID,
		CurrentAmmo:     weapon.MagazineSize,
		MaxAmmo:         weapon.MagazineSize,
	}
}

// SyncState is the snapshot of observable fields used by delta sync.
// Position is deliberately absent: movement bypasses the diff path.
type SyncState struct {
	Health      uint32
	Ammo        uint32
	MaxAmmo     uint32
	WeaponID    uint32
	IsReloading bool
	Kills       uint32
	Deaths      uint32
	Score       uint32
	Killstreak  uint32
}

// Sync captures the player's current observable state.
func (p *Player) Sync() SyncState {
	return SyncState{
		Health:      p.CurrentHealth,
		Ammo:        p.CurrentAmmo,
		MaxAmmo:     p.MaxAmmo,
		WeaponID:    p.CurrentWeaponID,
		IsReloading: p.IsReloading,
		Kills:       p.Kills,
		Deaths:      p.Deaths,
		Score:       p.Score,
		Killstreak:  p.Killstreak,
	}
}
