package game

import (
	"sort"
	"sync"
	"time"
)

// GlobalPlayerStats accumulates a player's totals across sessions.
type GlobalPlayerStats struct {
	PlayerID    uint32    `json:"player_id"`
	Name        string    `json:"name"`
	TotalKills  uint32    `json:"total_kills"`
	TotalDeaths uint32    `json:"total_deaths"`
	TotalScore  uint32    `json:"total_score"`
	GamesPlayed uint32    `json:"games_played"`
	LastSeen    time.Time `json:"last_seen"`
	CreatedAt   time.Time `json:"created_at"`
}

// KDRatio returns kills per death, or total kills when the player never died.
func (s *GlobalPlayerStats) KDRatio() float32 {
	if s.TotalDeaths > 0 {
		return float32(s.TotalKills) / float32(s.TotalDeaths)
	}
	return float32(s.TotalKills)
}

const statsShardCount = 16

type statsShard struct {
	mu      sync.RWMutex
	players map[uint32]*GlobalPlayerStats
}

// GlobalStats is the process-wide cross-session stats store. Sharded with
// per-shard locking so any lobby's tick can record without contending on a
// single lock. Written only on player departure to bound write frequency.
type GlobalStats struct {
	shards [statsShardCount]*statsShard
	clock  func() time.Time
}

// NewGlobalStats creates an empty stats store.
func NewGlobalStats() *GlobalStats {
	return NewGlobalStatsWithClock(time.Now)
}

// NewGlobalStatsWithClock creates a stats store with an injected clock.
func NewGlobalStatsWithClock(clock func() time.Time) *GlobalStats {
	gs := &GlobalStats{clock: clock}
	for i := range gs.shards {
		gs.shards[i] = &statsShard{players: make(map[uint32]*GlobalPlayerStats)}
	}
	return gs
}

func (gs *GlobalStats) shard(playerID uint32) *statsShard {
	return gs.shards[playerID%statsShardCount]
}

// RecordSession folds one finished lobby session into a player's totals.
func (gs *GlobalStats) RecordSession(playerID uint32, name string, kills, deaths, score uint32) {
	now := gs.clock()
	s := gs.shard(playerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.players[playerID]
	if !ok {
		stats = &GlobalPlayerStats{
			PlayerID:  playerID,
			Name:      name,
			CreatedAt: now,
		}
		s.players[playerID] = stats
	}
	stats.Name = name
	stats.TotalKills += kills
	stats.TotalDeaths += deaths
	stats.TotalScore += score
	stats.GamesPlayed++
	stats.LastSeen = now
}

// Get returns a copy of a player's totals.
func (gs *GlobalStats) Get(playerID uint32) (GlobalPlayerStats, bool) {
	s := gs.shard(playerID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.players[playerID]
	if !ok {
		return GlobalPlayerStats{}, false
	}
	return *stats, true
}

func (gs *GlobalStats) all() []GlobalPlayerStats {
	var out []GlobalPlayerStats
	for _, s := range gs.shards {
		s.mu.RLock()
		for _, stats := range s.players {
			out = append(out, *stats)
		}
		s.mu.RUnlock()
	}
	return out
}

// TopByScore returns up to limit players ordered by total score.
func (gs *GlobalStats) TopByScore(limit int) []GlobalPlayerStats {
	all := gs.all()
	sort.SliceStable(all, func(i, j int) bool { return all[i].TotalScore > all[j].TotalScore })
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// TopByKills returns up to limit players ordered by total kills.
func (gs *GlobalStats) TopByKills(limit int) []GlobalPlayerStats {
	all := gs.all()
	sort.SliceStable(all, func(i, j int) bool { return all[i].TotalKills > all[j].TotalKills })
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// CleanupOldEntries drops players not seen within maxAge that never finished
// a session. Returns how many entries were removed.
func (gs *GlobalStats) CleanupOldEntries(maxAge time.Duration) int {
	now := gs.clock()
	removed := 0
	for _, s := range gs.shards {
		s.mu.Lock()
		for id, stats := range s.players {
			if now.Sub(stats.LastSeen) > maxAge && stats.GamesPlayed == 0 {
				delete(s.players, id)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
