package editor

import (
	"context"
	"errors"
	"time"

	"github.com/anjaninandan001/algo-tinker/pkg/cache"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// Manager owns the live editor sessions.
type Manager struct {
	sessions *cache.Sharded[*Session]
	idleTTL  time.Duration
	defaults func() Settings
}

// NewManager creates a session registry. Sessions idle for longer than
// idleTTL are dropped by Sweep; a zero TTL keeps them forever.
func NewManager(idleTTL time.Duration, defaults func() Settings) *Manager {
	if defaults == nil {
		defaults = func() Settings { return DefaultSettings(time.Now(), "AAPL", 10000) }
	}
	return &Manager{
		sessions: cache.NewSharded[*Session](),
		idleTTL:  idleTTL,
		defaults: defaults,
	}
}

// Create opens a new empty session with default settings.
func (m *Manager) Create() *Session {
	s := NewSession(uuid.NewString(), m.defaults())
	m.sessions.Set(s.ID, s)
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete closes a session.
func (m *Manager) Delete(id string) error {
	if !m.sessions.Delete(id) {
		return ErrSessionNotFound
	}
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// Sweep drops idle sessions.
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	return m.sessions.Cleanup(m.idleTTL)
}

// Run sweeps idle sessions periodically until ctx is done. afterSweep, if
// set, receives the live session count after each pass.
func (m *Manager) Run(ctx context.Context, every time.Duration, afterSweep func(live int)) {
	if m.idleTTL <= 0 || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				st := m.sessions.Stats()
				log.Debugf("[SESSIONS] expired %d idle sessions, %d live, oldest idle %s", n, st.TotalItems, st.OldestIdle.Round(time.Second))
			}
			if afterSweep != nil {
				afterSweep(m.Len())
			}
		}
	}
}
