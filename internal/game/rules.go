package game

import (
	"math"
	"net"
	"time"
)

// Gameplay rules. Every function mutates the lobby under the caller's write
// guard and performs no I/O; the tick engine owns all fan-out.

const (
	baseKillScore      = 100
	killstreakBonus    = 25
	killstreakBonusCap = 5
	respawnDelay       = 3 * time.Second
	maxDamagePerHit    = 100
)

// KillEvent carries everything the kill broadcast needs.
type KillEvent struct {
	KillerID         uint32 `json:"killer_id"`
	KillerName       string `json:"killer_name"`
	VictimID         uint32 `json:"victim_id"`
	VictimName       string `json:"victim_name"`
	WeaponID         uint32 `json:"weapon_id"`
	WeaponName       string `json:"weapon_name"`
	KillerKillstreak uint32 `json:"killer_killstreak"`
}

// AddPlayer admits a player at the spawn point with the default weapon loadout.
func AddPlayer(l *Lobby, playerID uint32, name string, weaponID uint32, weapons *Catalog, now time.Time) error {
	if uint32(len(l.Players)) >= l.MaxPlayers {
		return ErrLobbyFull
	}
	if _, exists := l.Players[playerID]; exists {
		return ErrPlayerExists
	}
	weapon, ok := weapons.Get(weaponID)
	if !ok {
		return ErrWeaponNotFound
	}

	l.Players[playerID] = NewPlayer(playerID, name, weapon, now)
	l.MarkDirty(playerID)
	return nil
}

// RemovePlayer drops a player and every trace of them from the lobby.
func RemovePlayer(l *Lobby, playerID uint32) {
	delete(l.Players, playerID)
	delete(l.ClientAddrs, playerID)
	delete(l.LastSync, playerID)
	delete(l.Dirty, playerID)
}

// SetPlayerAddress binds a player's UDP address. The tick engine's position
// update path and Heartbeat rebind the address themselves, not through this
// function.
func SetPlayerAddress(l *Lobby, playerID uint32, addr *net.UDPAddr) error {
	if _, ok := l.Players[playerID]; !ok {
		return ErrPlayerNotFound
	}
	l.ClientAddrs[playerID] = addr
	return nil
}

// UpdatePosition unconditionally overwrites position and rotation and
// refreshes the activity timestamp.
func UpdatePosition(l *Lobby, playerID uint32, pos, rot Vec3, now time.Time) error {
	player, ok := l.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}

	player.Position = pos
	player.Rotation = rot
	player.LastUpdate = now

	l.MarkDirty(playerID)
	return nil
}

// Heartbeat refreshes the activity timestamp and rebinds the client address.
func Heartbeat(l *Lobby, playerID uint32, addr *net.UDPAddr, now time.Time) {
	player, ok := l.Players[playerID]
	if !ok {
		return
	}
	player.LastUpdate = now
	if addr != nil {
		l.ClientAddrs[playerID] = addr
	}
}

// TryShoot validates reload state, ammo and fire rate. On success it consumes
// one round and stamps the shot time. Returns false for the soft no-op cases.
func TryShoot(l *Lobby, weapons *Catalog, playerID uint32, now time.Time) (bool, error) {
	player, ok := l.Players[playerID]
	if !ok {
		return false, ErrPlayerNotFound
	}

	if player.IsReloading {
		return false, nil
	}
	if player.CurrentAmmo == 0 {
		return false, nil
	}

	weapon, ok := weapons.Get(player.CurrentWeaponID)
	if !ok {
		return false, ErrWeaponNotFound
	}

	minInterval := time.Duration(float64(time.Second) / weapon.FireRate)
	if now.Sub(player.LastShotTime) < minInterval {
		return false, nil // Too soon to shoot again
	}

	if player.CurrentAmmo > 0 {
		player.CurrentAmmo--
	}
	player.LastShotTime = now

	l.MarkDirty(playerID)
	return true, nil
}

// ApplyDamage subtracts health from the target, saturating at zero.
func ApplyDamage(l *Lobby, targetID uint32, damage uint32) error {
	player, ok := l.Players[targetID]
	if !ok {
		return ErrPlayerNotFound
	}

	if damage == 0 || damage > maxDamagePerHit {
		return ErrInvalidDamage
	}

	if damage >= player.CurrentHealth {
		player.CurrentHealth = 0
	} else {
		player.CurrentHealth -= damage
	}

	l.MarkDirty(targetID)
	return nil
}

// RegisterKill updates kill/death accounting: the killer's streak grows and
// earns a capped bonus, the victim dies and is scheduled for respawn.
func RegisterKill(l *Lobby, weapons *Catalog, killerID, victimID uint32, now time.Time) (KillEvent, error) {
	killer, ok := l.Players[killerID]
	if !ok {
		return KillEvent{}, ErrPlayerNotFound
	}
	victim, ok := l.Players[victimID]
	if !ok {
		return KillEvent{}, ErrPlayerNotFound
	}
	weapon, ok := weapons.Get(killer.CurrentWeaponID)
	if !ok {
		return KillEvent{}, ErrWeaponNotFound
	}

	priorStreak := killer.Killstreak
	bonus := uint32(math.Min(float64(priorStreak), killstreakBonusCap)) * killstreakBonus

	killer.Kills++
	killer.Killstreak = priorStreak + 1
	killer.Score += baseKillScore + bonus

	victim.Deaths++
	victim.Killstreak = 0
	victim.CurrentHealth = 0
	victim.IsDead = true
	victim.RespawnTime = now.Add(respawnDelay)

	l.MarkDirty(killerID)
	l.MarkDirty(victimID)

	return KillEvent{
		KillerID:         killerID,
		KillerName:       killer.Name,
		VictimID:         victimID,
		VictimName:       victim.Name,
		WeaponID:         weapon.ID,
		WeaponName:       weapon.Name,
		KillerKillstreak: killer.Killstreak,
	}, nil
}

// Shoot is the full command path: fire-rate/ammo gate, weapon-derived damage,
// and kill registration when the target drops to zero. Returns the fired
// flag, the damage dealt, and a kill event when the shot was lethal.
func Shoot(l *Lobby, weapons *Catalog, shooterID, targetID uint32, now time.Time) (fired bool, damage uint32, kill *KillEvent, err error) {
	fired, err = TryShoot(l, weapons, shooterID, now)
	if err != nil || !fired {
		return false, 0, nil, err
	}

	shooter := l.Players[shooterID]
	weapon, ok := weapons.Get(shooter.CurrentWeaponID)
	if !ok {
		return true, 0, nil, ErrWeaponNotFound
	}

	target, ok := l.Players[targetID]
	if !ok {
		// The round is spent even when the target vanished mid-flight.
		return true, 0, nil, ErrPlayerNotFound
	}
	wasDead := target.IsDead

	if err := ApplyDamage(l, targetID, weapon.Damage); err != nil {
		return true, 0, nil, err
	}

	if target.CurrentHealth == 0 && !wasDead {
		event, err := RegisterKill(l, weapons, shooterID, targetID, now)
		if err != nil {
			return true, weapon.Damage, nil, err
		}
		return true, weapon.Damage, &event, nil
	}

	return true, weapon.Damage, nil, nil
}

// StartReload begins a reload unless one is running or the magazine is full.
// Completion is handled by CompleteReloads on a later tick.
func StartReload(l *Lobby, weapons *Catalog, playerID uint32, now time.Time) error {
	player, ok := l.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}

	if player.IsReloading || player.CurrentAmmo == player.MaxAmmo {
		return ErrCannotReload
	}

	weapon, ok := weapons.Get(player.CurrentWeaponID)
	if !ok {
		return ErrWeaponNotFound
	}

	player.IsReloading = true
	player.ReloadEndTime = now.Add(time.Duration(weapon.ReloadTime * float64(time.Second)))

	l.MarkDirty(playerID)
	return nil
}

// CompleteReloads finishes every reload whose deadline has passed and returns
// the affected player IDs.
func CompleteReloads(l *Lobby, now time.Time) []uint32 {
	var completed []uint32
	for id, player := range l.Players {
		if !player.IsReloading {
			continue
		}
		if now.Before(player.ReloadEndTime) {
			continue
		}
		player.CurrentAmmo = player.MaxAmmo
		player.IsReloading = false
		player.ReloadEndTime = time.Time{}
		completed = append(completed, id)
	}
	for _, id := range completed {
		l.MarkDirty(id)
	}
	return completed
}

// SwitchWeapon swaps the player's loadout to a full magazine of the new
// weapon and cancels any in-progress reload.
func SwitchWeapon(l *Lobby, weapons *Catalog, playerID, weaponID uint32) error {
	player, ok := l.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}

	weapon, ok := weapons.Get(weaponID)
	if !ok {
		return ErrWeaponNotFound
	}

	player.CurrentWeaponID = weaponID
	player.CurrentAmmo = weapon.MagazineSize
	player.MaxAmmo = weapon.MagazineSize

	player.IsReloading = false
	player.ReloadEndTime = time.Time{}

	l.MarkDirty(playerID)
	return nil
}

// RespawnDue returns the dead players whose respawn deadline has passed.
func RespawnDue(l *Lobby, now time.Time) []uint32 {
	var due []uint32
	for id, player := range l.Players {
		if player.IsDead && !now.Before(player.RespawnTime) {
			due = append(due, id)
		}
	}
	return due
}

// RespawnPlayer brings a player back at the spawn point with full health
// and a full magazine.
func RespawnPlayer(l *Lobby, playerID uint32) error {
	player, ok := l.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}

	player.Position = SpawnPosition
	player.Rotation = SpawnRotation
	player.CurrentHealth = player.MaxHealth
	player.CurrentAmmo = player.MaxAmmo
	player.IsReloading = false
	player.ReloadEndTime = time.Time{}
	player.IsDead = false
	player.RespawnTime = time.Time{}

	l.MarkDirty(playerID)
	return nil
}

// CleanupInactive removes players silent past the timeout and flags a
// one-time warning past the warning threshold. The reserved bot is exempt.
// Removed players are returned so the caller can fold their session into
// the global stats before the references go away.
func CleanupInactive(l *Lobby, timeout time.Duration, warningFraction float64, now time.Time) (removed []*Player, warned []uint32) {
	warnAfter := time.Duration(float64(timeout) * warningFraction)

	for id, player := range l.Players {
		if id == BotPlayerID {
			continue
		}

		elapsed := now.Sub(player.LastUpdate)
		if elapsed > timeout {
			removed = append(removed, player)
		} else if elapsed > warnAfter && player.WarnedAt.IsZero() {
			warned = append(warned, id)
		}
	}

	for _, player := range removed {
		RemovePlayer(l, player.ID)
	}
	for _, id := range warned {
		l.Players[id].WarnedAt = now
	}

	return removed, warned
}
