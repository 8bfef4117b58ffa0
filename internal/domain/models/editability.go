package models

// EditabilityCheck is the editability answer in the backend's wire shape.
type EditabilityCheck struct {
	CanEdit                bool   `json:"canEdit"`
	TimeRemainingForEdit   string `json:"timeRemainingForEdit"`
	EditStatus             string `json:"editStatus"`
	TimeRemainingInMinutes int    `json:"timeRemainingInMinutes"`
}

// Edit status labels.
const (
	EditStatusEditable        = "Editable"
	EditStatusExpired         = "Expired"
	EditStatusCannotDetermine = "Cannot determine"
)

// CannotDetermine is the verdict used when an editability check failed.
func CannotDetermine() EditabilityCheck {
	return EditabilityCheck{EditStatus: EditStatusCannotDetermine}
}

// EntryEditability pairs an entry with its backend editability verdict.
type EntryEditability struct {
	ProductionEntry
	Determined bool `json:"editabilityDetermined"`
}

// ApplyEditability copies a verdict onto the entry's editability fields.
func (e *ProductionEntry) ApplyEditability(check EditabilityCheck) {
	canEdit := check.CanEdit
	e.CanEdit = &canEdit
	e.TimeRemainingForEdit = check.TimeRemainingForEdit
	e.EditStatus = check.EditStatus
}

// EditabilityReport combines the backend's authoritative check with the
// client's own time-based estimate.
type EditabilityReport struct {
	EntryID        int               `json:"entryId"`
	Backend        *EditabilityCheck `json:"backend,omitempty"`
	BackendError   string            `json:"backendError,omitempty"`
	ClientEstimate EditabilityCheck  `json:"clientEstimate"`
	// CanEdit follows the backend when it answered, the estimate otherwise.
	CanEdit bool `json:"canEdit"`
}
