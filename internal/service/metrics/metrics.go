// Package metrics reproduces the backend's defect totals and rates so that
// unsaved or freshly created entries can be previewed consistently.
//
// Values returned by the backend remain the source of truth; a local value
// that disagrees is reported as a Discrepancy and never substituted.
package metrics

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/knittrack/internal/domain/models"
)

// NotApplicable is rendered for a rate whose denominator is zero.
const NotApplicable = "N/A"

// displayPlaces is the rounding applied when a rate is rendered.
const displayPlaces = 2

var hundred = decimal.NewFromInt(100)

// Counters are the four defect counters of an entry.
type Counters struct {
	Measurement int `json:"measurementError"`
	Knitting    int `json:"knittingError"`
	Toe         int `json:"toeDefect"`
	Other       int `json:"otherDefect"`
}

// Total is the sum of the four counters.
func (c Counters) Total() int {
	return c.Measurement + c.Knitting + c.Toe + c.Other
}

// CountersOf extracts the defect counters of an entry.
func CountersOf(e models.ProductionEntry) Counters {
	return Counters{
		Measurement: e.MeasurementError,
		Knitting:    e.KnittingError,
		Toe:         e.ToeDefect,
		Other:       e.OtherDefect,
	}
}

// CountersOfInput extracts the defect counters of an unsaved entry.
func CountersOfInput(in models.EntryInput) Counters {
	return Counters{
		Measurement: in.MeasurementError,
		Knitting:    in.KnittingError,
		Toe:         in.ToeDefect,
		Other:       in.OtherDefect,
	}
}

// Rate is a percentage held at full precision. The zero value is not applicable.
type Rate struct {
	value decimal.Decimal
	valid bool
}

// NewRate computes counter ÷ denominator × 100. A non-positive denominator
// yields a not-applicable rate.
func NewRate(counter, denominator int) Rate {
	if denominator <= 0 {
		return Rate{}
	}
	v := decimal.NewFromInt(int64(counter)).Mul(hundred).Div(decimal.NewFromInt(int64(denominator)))
	return Rate{value: v, valid: true}
}

// RateFromPercent wraps a percentage reported by the backend.
func RateFromPercent(p float64) Rate {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return Rate{}
	}
	return Rate{value: decimal.NewFromFloat(p), valid: true}
}

// Valid reports whether the rate is defined.
func (r Rate) Valid() bool { return r.valid }

// Float64 returns the unrounded percentage and whether it is defined.
func (r Rate) Float64() (float64, bool) {
	if !r.valid {
		return 0, false
	}
	f, _ := r.value.Float64()
	return f, true
}

// Display is the rate rounded to display precision, as a number.
func (r Rate) Display() (float64, bool) {
	if !r.valid {
		return 0, false
	}
	f, _ := r.value.Round(displayPlaces).Float64()
	return f, true
}

// String renders the rate as "7.00%" or NotApplicable.
func (r Rate) String() string {
	if !r.valid {
		return NotApplicable
	}
	return r.value.StringFixed(displayPlaces) + "%"
}

// MarshalJSON renders the display string so that previews never carry NaN or Inf.
func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", r.String())), nil
}

// equalAtDisplay compares two rates at display precision. The backend stores
// zero where the local rate is not applicable, so that pair counts as equal.
func (r Rate) equalAtDisplay(o Rate) bool {
	switch {
	case !r.valid && !o.valid:
		return true
	case !r.valid:
		return o.value.IsZero()
	case !o.valid:
		return r.value.IsZero()
	}
	return r.value.Round(displayPlaces).Equal(o.value.Round(displayPlaces))
}

// Breakdown is the full set of derived metrics of an entry.
type Breakdown struct {
	TotalDefects         int  `json:"totalDefects"`
	MeasurementErrorRate Rate `json:"measurementErrorRate"`
	KnittingErrorRate    Rate `json:"knittingErrorRate"`
	ToeDefectRate        Rate `json:"toeDefectRate"`
	OtherDefectRate      Rate `json:"otherDefectRate"`
	GeneralErrorRate     Rate `json:"generalErrorRate"`
}

// Compute derives totals and rates from raw counters and a denominator.
func Compute(c Counters, denominator int) Breakdown {
	total := c.Total()
	return Breakdown{
		TotalDefects:         total,
		MeasurementErrorRate: NewRate(c.Measurement, denominator),
		KnittingErrorRate:    NewRate(c.Knitting, denominator),
		ToeDefectRate:        NewRate(c.Toe, denominator),
		OtherDefectRate:      NewRate(c.Other, denominator),
		GeneralErrorRate:     NewRate(total, denominator),
	}
}

// FromEntry reads the backend-computed metrics of an entry.
func FromEntry(e models.ProductionEntry) Breakdown {
	return Breakdown{
		TotalDefects:         e.TotalDefects,
		MeasurementErrorRate: RateFromPercent(e.MeasurementErrorRate),
		KnittingErrorRate:    RateFromPercent(e.KnittingErrorRate),
		ToeDefectRate:        RateFromPercent(e.ToeDefectRate),
		OtherDefectRate:      RateFromPercent(e.OtherDefectRate),
		GeneralErrorRate:     RateFromPercent(e.GeneralErrorRate),
	}
}

// Discrepancy is one field where a local value disagrees with the backend.
type Discrepancy struct {
	Field   string `json:"field"`
	Local   string `json:"local"`
	Backend string `json:"backend"`
}

// Compare lists the fields of local that differ from backend at display precision.
func Compare(local, backend Breakdown) []Discrepancy {
	var out []Discrepancy
	if local.TotalDefects != backend.TotalDefects {
		out = append(out, Discrepancy{
			Field:   "totalDefects",
			Local:   fmt.Sprint(local.TotalDefects),
			Backend: fmt.Sprint(backend.TotalDefects),
		})
	}

	pairs := []struct {
		field string
		l, b  Rate
	}{
		{"measurementErrorRate", local.MeasurementErrorRate, backend.MeasurementErrorRate},
		{"knittingErrorRate", local.KnittingErrorRate, backend.KnittingErrorRate},
		{"toeDefectRate", local.ToeDefectRate, backend.ToeDefectRate},
		{"otherDefectRate", local.OtherDefectRate, backend.OtherDefectRate},
		{"generalErrorRate", local.GeneralErrorRate, backend.GeneralErrorRate},
	}
	for _, p := range pairs {
		if !p.l.equalAtDisplay(p.b) {
			out = append(out, Discrepancy{Field: p.field, Local: p.l.String(), Backend: p.b.String()})
		}
	}
	return out
}
