package editwindow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/knittrack/internal/domain/models"
)

func TestDecision_CanSubmit(t *testing.T) {
	t.Parallel()

	editable := Evaluate(created, created.Add(10*time.Minute))
	expired := Evaluate(created, created.Add(2*time.Hour))
	allow := &models.EditabilityCheck{CanEdit: true, EditStatus: models.EditStatusEditable}
	deny := &models.EditabilityCheck{CanEdit: false, EditStatus: models.EditStatusExpired}

	tests := []struct {
		name     string
		decision Decision
		want     bool
	}{
		{name: "estimate only, editable", decision: Decision{Estimate: editable}, want: true},
		{name: "estimate only, expired", decision: Decision{Estimate: expired}, want: false},
		{name: "backend denies early", decision: Decision{Estimate: editable, Backend: deny}, want: false},
		{name: "backend allows", decision: Decision{Estimate: editable, Backend: allow}, want: true},
		{name: "expired estimate blocks backend allow", decision: Decision{Estimate: expired, Backend: allow}, want: false},
		{name: "unknown estimate follows backend", decision: Decision{Backend: allow}, want: true},
		{name: "unknown estimate without backend", decision: Decision{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.decision.CanSubmit())
		})
	}
}

func TestDecision_Report(t *testing.T) {
	t.Parallel()

	d := Decision{Estimate: Evaluate(created, created.Add(47*time.Minute+26*time.Second))}
	report := d.Report(5, errors.New("backend unavailable"))

	assert.Equal(t, 5, report.EntryID)
	assert.Nil(t, report.Backend)
	assert.Equal(t, "backend unavailable", report.BackendError)
	assert.True(t, report.CanEdit)
	assert.Equal(t, "12 minutes 34 seconds", report.ClientEstimate.TimeRemainingForEdit)
	assert.Equal(t, 12, report.ClientEstimate.TimeRemainingInMinutes)
}
