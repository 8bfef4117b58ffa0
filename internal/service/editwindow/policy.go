// Package editwindow decides whether a production entry may still be edited.
//
// An entry is editable for Window after its creation. The verdict is a pure
// function of the creation time and the current time and is never stored.
package editwindow

import (
	"fmt"
	"time"

	"github.com/mamadbah2/knittrack/internal/domain/models"
)

// Window is how long an entry stays editable after creation.
const Window = 60 * time.Minute

// ExpiredLabel replaces the countdown once the window has closed.
const ExpiredLabel = "Edit window expired"

// State is the editability state of an entry.
type State int

const (
	// StateUnknown means no verdict could be determined.
	StateUnknown State = iota
	StateEditable
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateEditable:
		return models.EditStatusEditable
	case StateExpired:
		return models.EditStatusExpired
	default:
		return models.EditStatusCannotDetermine
	}
}

// Verdict is the result of evaluating the edit window at one instant.
type Verdict struct {
	State     State
	Remaining time.Duration
}

// Evaluate returns the verdict for an entry created at createdAt, observed at now.
// A createdAt ahead of now (clock skew) yields the full window.
func Evaluate(createdAt, now time.Time) Verdict {
	if createdAt.After(now) {
		return Verdict{State: StateEditable, Remaining: Window}
	}
	deadline := createdAt.Add(Window)
	if !now.Before(deadline) {
		return Verdict{State: StateExpired}
	}
	return Verdict{State: StateEditable, Remaining: deadline.Sub(now)}
}

// Editable reports whether the verdict allows editing.
func (v Verdict) Editable() bool {
	return v.State == StateEditable
}

// Label renders the remaining time, or the expired label.
func (v Verdict) Label() string {
	switch v.State {
	case StateEditable:
		return FormatRemaining(v.Remaining)
	case StateExpired:
		return ExpiredLabel
	default:
		return ""
	}
}

// Check converts the verdict to the backend's editability shape.
func (v Verdict) Check() models.EditabilityCheck {
	return models.EditabilityCheck{
		CanEdit:                v.Editable(),
		TimeRemainingForEdit:   v.Label(),
		EditStatus:             v.State.String(),
		TimeRemainingInMinutes: int(v.Remaining / time.Minute),
	}
}

// FormatRemaining renders d as whole minutes and whole seconds, e.g. "12 minutes 34 seconds".
// Negative durations render as zero.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d minutes %d seconds", total/60, total%60)
}
