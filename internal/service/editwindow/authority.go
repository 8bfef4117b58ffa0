package editwindow

import "github.com/mamadbah2/knittrack/internal/domain/models"

// ExpiredMessage is shown when an open edit view crosses the deadline.
const ExpiredMessage = "The 60 minute edit window has expired; this entry can no longer be changed."

// Decision combines the client estimate with the backend answer.
type Decision struct {
	Estimate Verdict
	// Backend is nil until the backend has answered.
	Backend *models.EditabilityCheck
}

// CanSubmit reports whether submitting is allowed. The backend answer wins
// when present; an expired estimate always blocks.
func (d Decision) CanSubmit() bool {
	if d.Estimate.State == StateExpired {
		return false
	}
	if d.Backend != nil {
		return d.Backend.CanEdit
	}
	return d.Estimate.Editable()
}

// Report renders the decision for an entry.
func (d Decision) Report(entryID int, backendErr error) models.EditabilityReport {
	report := models.EditabilityReport{
		EntryID:        entryID,
		Backend:        d.Backend,
		ClientEstimate: d.Estimate.Check(),
		CanEdit:        d.CanSubmit(),
	}
	if backendErr != nil {
		report.BackendError = backendErr.Error()
	}
	return report
}
