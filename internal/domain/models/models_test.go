package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{name: "rfc3339 utc", in: "2026-03-01T08:00:00Z", want: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		{name: "rfc3339 offset", in: "2026-03-01T11:00:00+03:00", want: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		{name: "zone-less", in: "2026-03-01T08:00:00", want: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		{name: "zone-less fraction", in: "2026-03-01T08:00:00.1234567", want: time.Date(2026, 3, 1, 8, 0, 0, 123456700, time.UTC)},
		{name: "space separated", in: "2026-03-01 08:00:00", want: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
	_, err = ParseTimestamp(" ")
	assert.Error(t, err)
}

func TestTimestampAndDateJSON(t *testing.T) {
	t.Parallel()

	var e ProductionEntry
	raw := `{"id":1,"date":"2026-03-01T00:00:00","createdAt":"2026-03-01T08:00:00","updatedAt":null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, "2026-03-01", e.Date.String())
	assert.Equal(t, 8, e.CreatedAt.Hour())
	assert.Nil(t, e.UpdatedAt)

	out, err := json.Marshal(struct {
		D Date      `json:"d"`
		T Timestamp `json:"t"`
		Z Timestamp `json:"z"`
	}{D: e.Date, T: e.CreatedAt})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2026-03-01","t":"2026-03-01T08:00:00Z","z":null}`, string(out))

	var bad ProductionEntry
	assert.Error(t, json.Unmarshal([]byte(`{"createdAt":"soon"}`), &bad))
}

func TestEntryInput_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      EntryInput
		missing []string
		msg     string
	}{
		{name: "complete", in: EntryInput{MachineNo: "M-07", SizeNo: "36-40"}},
		{name: "no machine", in: EntryInput{SizeNo: "36-40"}, missing: []string{"machineNo"}, msg: "validation: machineNo required"},
		{name: "blank both", in: EntryInput{MachineNo: "  ", SizeNo: ""}, missing: []string{"machineNo", "sizeNo"}, msg: "validation: required fields missing: machineNo, sizeNo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.missing, tt.in.MissingRequired())
			err := tt.in.Validate()
			if tt.missing == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestFormFieldsRoundTrip(t *testing.T) {
	t.Parallel()

	bags := 4
	in := EntryInput{
		Date:             NewDate(time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)),
		MachineNo:        "M-07",
		MKCycleSpeed:     12.5,
		Shift:            2,
		SizeNo:           "36-40",
		BagsPerBox:       &bags,
		MeasurementError: 2,
		Note:             "needle change",
	}

	fields := in.FormFields()
	assert.Equal(t, "2026-03-01", fields["date"])
	assert.Equal(t, "12.5", fields["mkCycleSpeed"])
	assert.NotContains(t, fields, "packagesPerBag")
	assert.Equal(t, "4", fields["bagsPerBox"])

	back, err := ParseEntryForm(func(k string) string { return fields[k] })
	require.NoError(t, err)
	assert.Equal(t, in.MachineNo, back.MachineNo)
	assert.Equal(t, in.MKCycleSpeed, back.MKCycleSpeed)
	assert.Equal(t, in.Date.String(), back.Date.String())
	require.NotNil(t, back.BagsPerBox)
	assert.Equal(t, 4, *back.BagsPerBox)
	assert.Nil(t, back.PackagesPerBag)
	assert.Equal(t, "needle change", back.Note)

	upd := EntryUpdate{EntryInput: in, DeleteCurrentPhoto: true}
	assert.Equal(t, "true", upd.FormFields()["deleteCurrentPhoto"])
	assert.NotContains(t, in.FormFields(), "deleteCurrentPhoto")
}

func TestParseEntryForm_RejectsGarbage(t *testing.T) {
	t.Parallel()

	values := map[string]string{"machineNo": "M-07", "shift": "night", "steam": "1,5", "date": "01/03/2026"}
	_, err := ParseEntryForm(func(k string) string { return values[k] })
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"shift", "date"}, fields)
	assert.Contains(t, err.Error(), "shift must be an integer")
}

func TestDateRangeQuery_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		q       DateRangeQuery
		wantErr bool
	}{
		{name: "single day", q: DateRangeQuery{StartDate: "2026-03-01", EndDate: "2026-03-01"}},
		{name: "created at window", q: DateRangeQuery{StartDate: "2026-03-01", EndDate: "2026-03-02", FilterBy: FilterByCreatedAt, StartTime: "08:00", EndTime: "16:00"}},
		{name: "missing end", q: DateRangeQuery{StartDate: "2026-03-01"}, wantErr: true},
		{name: "reversed", q: DateRangeQuery{StartDate: "2026-03-02", EndDate: "2026-03-01"}, wantErr: true},
		{name: "reversed times", q: DateRangeQuery{StartDate: "2026-03-01", EndDate: "2026-03-01", StartTime: "16:00", EndTime: "08:00"}, wantErr: true},
		{name: "unknown filter", q: DateRangeQuery{StartDate: "2026-03-01", EndDate: "2026-03-01", FilterBy: "updatedAt"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.q.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	t.Parallel()

	expired := &ExpiredError{Message: "Kayıt süresi doldu"}
	assert.ErrorIs(t, expired, ErrEditWindowExpired)
	assert.Equal(t, "Kayıt süresi doldu", expired.Error())

	backend := &BackendError{Status: 404, Kind: ErrNotFound}
	assert.ErrorIs(t, backend, ErrNotFound)
	assert.Equal(t, "backend returned status 404", backend.Error())
}

func TestApplyEditability(t *testing.T) {
	t.Parallel()

	var e ProductionEntry
	e.ApplyEditability(CannotDetermine())
	require.NotNil(t, e.CanEdit)
	assert.False(t, *e.CanEdit)
	assert.Equal(t, EditStatusCannotDetermine, e.EditStatus)
}
