package metrics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/knittrack/internal/domain/models"
)

func TestCounters_Total(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Counters
		want int
	}{
		{name: "all zero", in: Counters{}, want: 0},
		{name: "mixed", in: Counters{Measurement: 2, Knitting: 1, Toe: 0, Other: 1}, want: 4},
		{name: "large", in: Counters{Measurement: 1000, Knitting: 250, Toe: 75, Other: 5}, want: 1330},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.in.Total())
			assert.Equal(t, tt.want, Compute(tt.in, 10).TotalDefects)
		})
	}
}

func TestNewRate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "7.00%", NewRate(7, 100).String())
	assert.Equal(t, "33.33%", NewRate(1, 3).String())
	assert.Equal(t, "66.67%", NewRate(2, 3).String())
	assert.Equal(t, "0.00%", NewRate(0, 50).String())

	full, ok := NewRate(1, 3).Float64()
	require.True(t, ok)
	assert.InDelta(t, 33.333333, full, 1e-6)

	shown, ok := NewRate(1, 3).Display()
	require.True(t, ok)
	assert.Equal(t, 33.33, shown)
}

func TestNewRate_ZeroDenominator(t *testing.T) {
	t.Parallel()

	for _, denom := range []int{0, -5} {
		r := NewRate(3, denom)
		assert.False(t, r.Valid())
		assert.Equal(t, NotApplicable, r.String())
		_, ok := r.Float64()
		assert.False(t, ok)
	}

	b := Compute(Counters{Measurement: 1, Knitting: 2}, 0)
	assert.Equal(t, 3, b.TotalDefects)
	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "NaN")
	assert.NotContains(t, string(raw), "Inf")
	assert.Contains(t, string(raw), `"generalErrorRate":"N/A"`)
}

func TestRateFromPercent_RejectsNonFinite(t *testing.T) {
	t.Parallel()

	assert.False(t, RateFromPercent(math.NaN()).Valid())
	assert.False(t, RateFromPercent(math.Inf(1)).Valid())
	assert.Equal(t, "4.17%", RateFromPercent(4.166666).String())
}

func TestCompute_Scenario(t *testing.T) {
	t.Parallel()

	b := Compute(Counters{Measurement: 2, Knitting: 1, Toe: 0, Other: 1}, 100)
	assert.Equal(t, 4, b.TotalDefects)
	assert.Equal(t, "4.00%", b.GeneralErrorRate.String())
	assert.Equal(t, "2.00%", b.MeasurementErrorRate.String())
	assert.Equal(t, "1.00%", b.KnittingErrorRate.String())
	assert.Equal(t, "0.00%", b.ToeDefectRate.String())
	assert.Equal(t, "1.00%", b.OtherDefectRate.String())
}

func TestCompare(t *testing.T) {
	t.Parallel()

	entry := models.ProductionEntry{
		MeasurementError: 2, KnittingError: 1, OtherDefect: 1,
		CountTakenFromTable: 95,
		RateFields: models.RateFields{
			TotalDefects:         4,
			MeasurementErrorRate: 2.1052631578947367,
			KnittingErrorRate:    1.0526315789473684,
			ToeDefectRate:        0,
			OtherDefectRate:      1.0526315789473684,
			GeneralErrorRate:     4.2105263157894735,
		},
	}

	local := Compute(CountersOf(entry), Denominator(entry, DenominatorCountTakenFromTable))
	assert.Empty(t, Compare(local, FromEntry(entry)))

	local = Compute(CountersOf(entry), 100)
	diffs := Compare(local, FromEntry(entry))
	require.Len(t, diffs, 4)
	assert.Equal(t, Discrepancy{Field: "measurementErrorRate", Local: "2.00%", Backend: "2.11%"}, diffs[0])
	assert.Equal(t, "generalErrorRate", diffs[3].Field)
}

func TestCompare_TotalDriftAndZeroDenominator(t *testing.T) {
	t.Parallel()

	backend := Breakdown{TotalDefects: 5}
	local := Compute(Counters{Other: 4}, 0)

	diffs := Compare(local, backend)
	require.Len(t, diffs, 1)
	assert.Equal(t, "totalDefects", diffs[0].Field)

	backend.GeneralErrorRate = RateFromPercent(3)
	backend.TotalDefects = 4
	diffs = Compare(local, backend)
	require.Len(t, diffs, 1)
	assert.Equal(t, Discrepancy{Field: "generalErrorRate", Local: NotApplicable, Backend: "3.00%"}, diffs[0])
}

func TestDenominator(t *testing.T) {
	t.Parallel()

	machine := 120
	e := models.ProductionEntry{CountTakenFromTable: 95, TableTotalPackage: 100, CountTakenFromMachine: &machine}

	assert.Equal(t, 95, Denominator(e, DenominatorCountTakenFromTable))
	assert.Equal(t, 120, Denominator(e, DenominatorCountTakenFromMachine))
	assert.Equal(t, 100, Denominator(e, DenominatorTableTotalPackage))

	e.CountTakenFromMachine = nil
	assert.Zero(t, Denominator(e, DenominatorCountTakenFromMachine))

	src, err := ParseDenominatorSource("")
	require.NoError(t, err)
	assert.Equal(t, DenominatorCountTakenFromTable, src)
	_, err = ParseDenominatorSource("bogus")
	require.Error(t, err)
}
