package metrics

import (
	"fmt"

	"github.com/mamadbah2/knittrack/internal/domain/models"
)

// DenominatorSource names the entry quantity that rates are computed against.
type DenominatorSource string

const (
	DenominatorCountTakenFromTable   DenominatorSource = "countTakenFromTable"
	DenominatorCountTakenFromMachine DenominatorSource = "countTakenFromMachine"
	DenominatorTableTotalPackage     DenominatorSource = "tableTotalPackage"
)

// ParseDenominatorSource validates a configured source name.
func ParseDenominatorSource(s string) (DenominatorSource, error) {
	switch src := DenominatorSource(s); src {
	case DenominatorCountTakenFromTable, DenominatorCountTakenFromMachine, DenominatorTableTotalPackage:
		return src, nil
	case "":
		return DenominatorCountTakenFromTable, nil
	default:
		return "", fmt.Errorf("unknown denominator source %q", s)
	}
}

// Denominator picks the configured quantity from an entry. A missing
// optional quantity yields zero, which renders every rate not applicable.
func Denominator(e models.ProductionEntry, src DenominatorSource) int {
	return DenominatorOfInput(models.InputFromEntry(e), src)
}

// DenominatorOfInput picks the configured quantity from an unsaved entry.
func DenominatorOfInput(in models.EntryInput, src DenominatorSource) int {
	switch src {
	case DenominatorCountTakenFromMachine:
		if in.CountTakenFromMachine == nil {
			return 0
		}
		return *in.CountTakenFromMachine
	case DenominatorTableTotalPackage:
		return in.TableTotalPackage
	default:
		return in.CountTakenFromTable
	}
}
