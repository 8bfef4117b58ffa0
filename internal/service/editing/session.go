package editing

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/editwindow"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("edit session closed")

// UpdatedMessage is shown after a successful submit.
const UpdatedMessage = "Entry updated."

// Snapshot is the state of an edit view at one instant.
type Snapshot struct {
	SessionID        string                   `json:"sessionId"`
	EntryID          int                      `json:"entryId"`
	Status           string                   `json:"status"`
	TimeRemaining    string                   `json:"timeRemaining"`
	RemainingSeconds int                      `json:"remainingSeconds"`
	Backend          *models.EditabilityCheck `json:"backend,omitempty"`
	BackendError     string                   `json:"backendError,omitempty"`
	SubmitEnabled    bool                     `json:"submitEnabled"`
	Message          string                   `json:"message,omitempty"`
	Closed           bool                     `json:"closed"`
}

// Session is one open edit view of an entry. The client estimate ticks every
// second; the backend answer, once received, decides whether submit is allowed.
type Session struct {
	ID      string
	EntryID int

	manager   *Manager
	countdown *editwindow.Countdown

	mu           sync.Mutex
	subscribers  map[uint64]chan Snapshot
	nextSub      uint64
	entry        models.ProductionEntry
	estimate     editwindow.Verdict
	backend      *models.EditabilityCheck
	backendErr   string
	message      string
	closed       bool
	lastActivity time.Time
}

// Entry returns the entry as last loaded or saved.
func (s *Session) Entry() models.ProductionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry
}

// Subscribe opens a snapshot stream for one viewer. Every viewer receives
// every tick and state change on its own channel; a slow viewer only misses
// its own intermediate snapshots. The channel is closed by cancel or with the
// session.
func (s *Session) Subscribe() (updates <-chan Snapshot, cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, s.manager.buffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

// Subscribers reports how many viewers are streaming the session.
func (s *Session) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Session) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		delete(s.subscribers, id)
		close(ch)
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if !s.closed {
		s.refreshEstimateLocked()
	}
	return s.snapshotLocked()
}

// Refresh asks the backend again whether the entry may be edited.
func (s *Session) Refresh(ctx context.Context) (Snapshot, error) {
	if s.isClosed() {
		return Snapshot{}, ErrSessionClosed
	}

	check, err := s.manager.backend.CheckEditability(ctx, s.EntryID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	s.touchLocked()
	if err != nil {
		s.backendErr = err.Error()
		s.manager.logger.Warn("backend editability check failed",
			zap.String("session_id", s.ID), zap.Int("entry_id", s.EntryID), zap.Error(err))
	} else {
		s.backend = check
		s.backendErr = ""
		if !check.CanEdit {
			s.message = editwindow.ExpiredMessage
		}
	}
	snap := s.snapshotLocked()
	s.publishLocked(snap)
	return snap, nil
}

// Submit sends an update. It is refused without a network call when the
// window has expired locally or the backend has already denied editing.
func (s *Session) Submit(ctx context.Context, upd models.EntryUpdate, photo *models.Photo) (*models.ProductionEntry, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.touchLocked()
	s.refreshEstimateLocked()
	if !s.decisionLocked().CanSubmit() {
		s.message = editwindow.ExpiredMessage
		s.publishLocked(s.snapshotLocked())
		s.mu.Unlock()
		return nil, &models.ExpiredError{Message: editwindow.ExpiredMessage, Local: true}
	}
	s.mu.Unlock()

	if err := upd.Validate(); err != nil {
		return nil, err
	}

	entry, err := s.manager.backend.UpdateEntry(ctx, s.EntryID, upd, photo)
	if err != nil {
		var expired *models.ExpiredError
		if errors.As(err, &expired) {
			s.mu.Lock()
			s.backend = &models.EditabilityCheck{
				CanEdit:              false,
				EditStatus:           models.EditStatusExpired,
				TimeRemainingForEdit: editwindow.ExpiredLabel,
			}
			s.message = expired.Message
			s.publishLocked(s.snapshotLocked())
			s.mu.Unlock()
		}
		return nil, err
	}

	s.mu.Lock()
	s.entry = *entry
	s.message = UpdatedMessage
	s.publishLocked(s.snapshotLocked())
	s.mu.Unlock()

	s.manager.logger.Info("production entry updated", zap.String("session_id", s.ID), zap.Int("entry_id", s.EntryID))
	return entry, nil
}

func (s *Session) onTick(tk editwindow.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.estimate.State != editwindow.StateExpired {
		s.setEstimateLocked(tk.Verdict)
	}
	if tk.Expired {
		s.manager.logger.Info("edit window expired", zap.String("session_id", s.ID), zap.Int("entry_id", s.EntryID))
	}
	s.publishLocked(s.snapshotLocked())
}

// close stops the countdown and closes the update stream.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	countdown := s.countdown
	s.mu.Unlock()

	if countdown != nil {
		countdown.Stop()
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) touchLocked() {
	s.lastActivity = s.manager.now()
}

// refreshEstimateLocked re-evaluates the window now. Expiry is final.
func (s *Session) refreshEstimateLocked() {
	if s.estimate.State == editwindow.StateExpired {
		return
	}
	s.setEstimateLocked(editwindow.Evaluate(s.entry.CreatedAt.Time, s.manager.now()))
}

// setEstimateLocked records a new estimate. Reaching expiry replaces the message.
func (s *Session) setEstimateLocked(v editwindow.Verdict) {
	s.estimate = v
	if v.State == editwindow.StateExpired {
		s.message = editwindow.ExpiredMessage
	}
}

func (s *Session) decisionLocked() editwindow.Decision {
	return editwindow.Decision{Estimate: s.estimate, Backend: s.backend}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:        s.ID,
		EntryID:          s.EntryID,
		Status:           s.estimate.State.String(),
		TimeRemaining:    s.estimate.Label(),
		RemainingSeconds: int(s.estimate.Remaining / time.Second),
		Backend:          s.backend,
		BackendError:     s.backendErr,
		SubmitEnabled:    !s.closed && s.decisionLocked().CanSubmit(),
		Message:          s.message,
		Closed:           s.closed,
	}
}

// publishLocked never blocks: when a viewer's buffer is full its oldest snapshot is dropped.
func (s *Session) publishLocked(snap Snapshot) {
	if s.closed {
		return
	}
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
