package session

import (
	"context"
	"sync"
	"time"

	"github.com/compressly/compressly/config"
	"github.com/compressly/compressly/internal/compressor"
	"github.com/compressly/compressly/internal/logger"
	"github.com/compressly/compressly/internal/metrics"
	"github.com/compressly/compressly/internal/orchestrator"
	"github.com/compressly/compressly/internal/registry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session owns one user's image registry and its orchestrator. Registries
// are never shared across sessions, so concurrent tenants cannot
// cross-contaminate.
type Session struct {
	ID           uuid.UUID
	Registry     *registry.Registry
	Orchestrator *orchestrator.Orchestrator
	CreatedAt    time.Time

	lastSeen time.Time
}

// Manager creates and expires sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session

	compressor  compressor.Compressor
	defaultOpts compressor.Options
	ttl         time.Duration
	logger      zerolog.Logger
}

func NewManager(comp compressor.Compressor, defaultOpts compressor.Options, cfg *config.SessionConfig) *Manager {
	return &Manager{
		sessions:    make(map[uuid.UUID]*Session),
		compressor:  comp,
		defaultOpts: defaultOpts,
		ttl:         cfg.TTL,
		logger:      logger.GetLogger("session-manager"),
	}
}

// Create starts a new session with an empty registry.
func (m *Manager) Create() *Session {
	reg := registry.New()
	now := time.Now()
	session := &Session{
		ID:           uuid.New(),
		Registry:     reg,
		Orchestrator: orchestrator.New(reg, m.compressor, m.defaultOpts),
		CreatedAt:    now,
		lastSeen:     now,
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.UpdateActiveSessions(count)
	m.logger.Info().Str("session_id", session.ID.String()).Msg("Session created")
	return session
}

// Get returns the session with the given id and refreshes its expiry.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	session.lastSeen = time.Now()
	return session, true
}

// Remove deletes a session. Removing an unknown id is a no-op.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.UpdateActiveSessions(count)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartSweeper expires idle sessions in the background until the context is
// canceled.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-ctx.Done():
				m.logger.Info().Msg("Session sweeper stopped")
				return
			}
		}
	}()
}

func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	expired := 0
	for id, session := range m.sessions {
		// A session with a batch in flight stays alive regardless of age.
		if session.lastSeen.Before(cutoff) && !session.Orchestrator.InProgress() {
			delete(m.sessions, id)
			expired++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.UpdateActiveSessions(count)
	if expired > 0 {
		m.logger.Info().Int("expired", expired).Int("remaining", count).Msg("Expired idle sessions")
	}
}
