package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lecturecast/lecturecast/internal/episode"
	"github.com/lecturecast/lecturecast/internal/httputil"
	"github.com/lecturecast/lecturecast/internal/loader"
)

var ErrSessionNotFound = errors.New("player: session not found")

const minSweepInterval = time.Minute

// Manager keeps the live sessions of this process in memory.
type Manager struct {
	fetcher loader.Fetcher
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Player
}

func NewManager(f loader.Fetcher, ttl time.Duration) *Manager {
	return &Manager{
		fetcher:  f,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Player),
	}
}

// Create registers a new session for ep. The timeline is not loaded yet.
func (m *Manager) Create(ep *episode.Episode) *Player {
	p := New(httputil.NewID(), ep, m.fetcher)
	p.now = m.now
	p.lastSeen = m.now()

	m.mu.Lock()
	m.sessions[p.id] = p
	m.mu.Unlock()

	slog.Info("player: session created", "session", p.id, "episode", ep.ID)
	return p
}

func (m *Manager) Get(id string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return p, nil
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run evicts idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	interval := max(m.ttl/2, minSweepInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Evict(); n > 0 {
				slog.Info("player: evicted idle sessions", "count", n)
			}
		}
	}
}

// Evict removes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Evict() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	candidates := make(map[string]*Player, len(m.sessions))
	for id, p := range m.sessions {
		candidates[id] = p
	}
	m.mu.Unlock()

	var idle []string
	for id, p := range candidates {
		if p.LastSeen().Before(cutoff) {
			idle = append(idle, id)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range idle {
		delete(m.sessions, id)
	}
	return len(idle)
}
