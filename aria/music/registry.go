package music

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// Registry owns the guild → player map. At most one player exists per
// guild; players remove themselves on close through their OnClose hook.
type Registry struct {
	mu      sync.Mutex
	players map[snowflake.ID]*Player
}

func NewRegistry() *Registry {
	return &Registry{players: make(map[snowflake.ID]*Player)}
}

func (r *Registry) Get(guildID snowflake.ID) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[guildID]
	return p, ok
}

// GetOrCreate returns the guild's player, building and starting one
// under the registry lock when none exists. created reports whether
// this call made the player.
func (r *Registry) GetOrCreate(guildID snowflake.ID, build func() *Player) (p *Player, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[guildID]; ok {
		return p, false
	}

	p = build()
	r.players[guildID] = p
	go p.Run()
	return p, true
}

// Remove drops the guild's entry only if it still maps to p, so a
// replacement player registered after a close cannot be evicted by the
// old player's teardown.
func (r *Registry) Remove(guildID snowflake.ID, p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.players[guildID]; ok && cur == p {
		delete(r.players, guildID)
	}
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// CloseAll tears down every player, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	r.mu.Unlock()

	for _, p := range players {
		p.Close()
	}
}
