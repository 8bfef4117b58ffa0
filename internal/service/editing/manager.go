// Package editing keeps server-side edit views of production entries, each
// with its own live edit-window countdown.
package editing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/editwindow"
	client "github.com/mamadbah2/knittrack/pkg/clients/production"
)

const defaultUpdateBuffer = 8

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = fmt.Errorf("edit session %w", models.ErrNotFound)

// Options tunes a Manager.
type Options struct {
	Now          func() time.Time
	UpdateBuffer int
}

// Manager owns the open edit sessions.
type Manager struct {
	backend   client.Client
	scheduler editwindow.Scheduler
	now       func() time.Time
	buffer    int
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager wires a session manager.
func NewManager(backend client.Client, scheduler editwindow.Scheduler, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.UpdateBuffer <= 0 {
		opts.UpdateBuffer = defaultUpdateBuffer
	}
	return &Manager{
		backend:   backend,
		scheduler: scheduler,
		now:       opts.Now,
		buffer:    opts.UpdateBuffer,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
}

// Open loads the entry, starts its countdown and asks the backend whether it
// may be edited. A failed backend check leaves the session on the estimate.
func (m *Manager) Open(ctx context.Context, entryID int) (*Session, error) {
	entry, err := m.backend.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:           uuid.NewString(),
		EntryID:      entryID,
		manager:      m,
		subscribers:  make(map[uint64]chan Snapshot),
		entry:        *entry,
		lastActivity: m.now(),
	}
	s.setEstimateLocked(editwindow.Evaluate(entry.CreatedAt.Time, m.now()))

	countdown, err := editwindow.StartCountdown(m.scheduler, entry.CreatedAt.Time, m.now, s.onTick)
	if err != nil {
		return nil, fmt.Errorf("open edit session for entry %d: %w", entryID, err)
	}
	s.mu.Lock()
	s.countdown = countdown
	s.mu.Unlock()

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if _, err := s.Refresh(ctx); err != nil {
		m.Close(s.ID)
		return nil, err
	}

	m.logger.Info("edit session opened", zap.String("session_id", s.ID), zap.Int("entry_id", entryID))
	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends a session. Unknown ids are ignored.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.close()
		m.logger.Info("edit session closed", zap.String("session_id", id), zap.Int("entry_id", s.EntryID))
	}
}

// CloseIdle closes sessions without activity for longer than ttl and reports how many.
func (m *Manager) CloseIdle(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	var idle []string
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.Unlock()

	for _, id := range idle {
		m.Close(id)
	}
	return len(idle)
}

// CloseAll ends every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Close(id)
	}
}

// Len is the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
