package game

import "sort"

// Inter-tick read views. Every read accessor here takes the lobby's shared
// guard, so callers observe consistent state between ticks. AdmitPlayer is
// the one writer here and takes the exclusive guard.

// PlayerInfo is the roster row exposed on the HTTP surface.
type PlayerInfo struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// LobbyInfo is the HTTP description of one lobby.
type LobbyInfo struct {
	Code        string       `json:"code"`
	PlayerCount int          `json:"player_count"`
	MaxPlayers  uint32       `json:"max_players"`
	Players     []PlayerInfo `json:"players"`
	ServerIP    string       `json:"server_ip"`
	UDPPort     int          `json:"udp_port"`
	Scene       string       `json:"scene"`
}

// LeaderboardEntry is one scoreboard row, sorted by score descending.
type LeaderboardEntry struct {
	PlayerID   uint32 `json:"player_id"`
	Name       string `json:"name"`
	Score      uint32 `json:"score"`
	Kills      uint32 `json:"kills"`
	Deaths     uint32 `json:"deaths"`
	Killstreak uint32 `json:"killstreak"`
}

// Info returns the lobby description for the HTTP surface.
func (e *Engine) Info(serverIP string, udpPort int) LobbyInfo {
	l := e.lobby
	l.RLock()
	defer l.RUnlock()

	players := make([]PlayerInfo, 0, len(l.Players))
	for _, p := range l.Players {
		players = append(players, PlayerInfo{ID: p.ID, Name: p.Name})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	return LobbyInfo{
		Code:        l.Code,
		PlayerCount: len(l.Players),
		MaxPlayers:  l.MaxPlayers,
		Players:     players,
		ServerIP:    serverIP,
		UDPPort:     udpPort,
		Scene:       l.Scene,
	}
}

// Leaderboard returns the lobby scoreboard, best first. The reserved bot is
// excluded.
func (e *Engine) Leaderboard() []LeaderboardEntry {
	l := e.lobby
	l.RLock()
	defer l.RUnlock()

	entries := make([]LeaderboardEntry, 0, len(l.Players))
	for _, p := range l.Players {
		if p.ID == BotPlayerID {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			PlayerID:   p.ID,
			Name:       p.Name,
			Score:      p.Score,
			Kills:      p.Kills,
			Deaths:     p.Deaths,
			Killstreak: p.Killstreak,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	return entries
}

// FullState returns the complete state record for one player, used by the
// request_state reply.
func (e *Engine) FullState(playerID uint32) (FullStatePacket, bool) {
	l := e.lobby
	l.RLock()
	defer l.RUnlock()

	player, ok := l.Players[playerID]
	if !ok {
		return FullStatePacket{}, false
	}
	return FullStatePacket{
		Type:         TypePlayerStateUpdate,
		PlayerID:     playerID,
		Health:       player.CurrentHealth,
		MaxHealth:    player.MaxHealth,
		Ammo:         player.CurrentAmmo,
		MaxAmmo:      player.MaxAmmo,
		IsReloading:  player.IsReloading,
		WeaponID:     player.CurrentWeaponID,
		LobbyCode:    l.Code,
		LobbyPlayers: len(l.Players),
	}, true
}

// AdmitPlayer synchronously adds a player so the HTTP join can return the
// assigned id in its response. The UDP address is bound later, when the
// client's first datagram arrives.
func (e *Engine) AdmitPlayer(playerID uint32, name string) error {
	l := e.lobby
	l.Lock()
	defer l.Unlock()

	if err := AddPlayer(l, playerID, name, DefaultWeaponID, e.weapons, e.clock()); err != nil {
		return err
	}
	if e.index != nil {
		e.index.BindPlayer(playerID, l.Code)
	}
	return nil
}
