package models

import "time"

// RateDiscrepancy records a locally recomputed metric that disagrees with the
// value the backend returned for the same entry.
type RateDiscrepancy struct {
	EntryID     int       `bson:"entry_id" json:"entryId"`
	Field       string    `bson:"field" json:"field"`
	Local       string    `bson:"local" json:"local"`
	Backend     string    `bson:"backend" json:"backend"`
	Denominator int       `bson:"denominator" json:"denominator"`
	Source      string    `bson:"denominator_source" json:"denominatorSource"`
	DetectedAt  time.Time `bson:"detected_at" json:"detectedAt"`
}

// SummarySnapshot is a periodically stored copy of the backend summary.
type SummarySnapshot struct {
	Summary ProductionSummary `bson:"summary" json:"summary"`
	TakenAt time.Time         `bson:"taken_at" json:"takenAt"`
	Trigger string            `bson:"trigger" json:"trigger"`
}
