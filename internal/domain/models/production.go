package models

import (
	"io"
	"strconv"
	"strings"
)

// ProductionEntry is one shift's production output for a machine/model/size combination.
type ProductionEntry struct {
	ID   int  `json:"id"`
	Date Date `json:"date"`

	MachineNo              string  `json:"machineNo"`
	MKCycleSpeed           float64 `json:"mkCycleSpeed"`
	Shift                  int     `json:"shift"`
	MoldNo                 int     `json:"moldNo"`
	Steam                  float64 `json:"steam"`
	FormCount              int     `json:"formCount"`
	MatchingPersonnelCount int     `json:"matchingPersonnelCount"`
	TablePersonnelCount    int     `json:"tablePersonnelCount"`
	ModelNo                int     `json:"modelNo"`
	SizeNo                 string  `json:"sizeNo"`
	ItemsPerPackage        int     `json:"itemsPerPackage"`
	PackagesPerBag         *int    `json:"packagesPerBag,omitempty"`
	BagsPerBox             *int    `json:"bagsPerBox,omitempty"`

	TableTotalPackage       int  `json:"tableTotalPackage"`
	SampleFormCount         int  `json:"sampleFormCount"`
	RepeatFormCount         int  `json:"repeatFormCount"`
	YesterdayRemainingCount int  `json:"yesterdayRemainingCount"`
	UnmatchedProductCount   int  `json:"unmatchedProductCount"`
	AQualityProductCount    int  `json:"aQualityProductCount"`
	ThreadedProductCount    int  `json:"threadedProductCount"`
	StainedProductCount     int  `json:"stainedProductCount"`
	RemainingOnTableCount   *int `json:"remainingOnTableCount,omitempty"`
	CountTakenFromTable     int  `json:"countTakenFromTable"`
	CountTakenFromMachine   *int `json:"countTakenFromMachine,omitempty"`

	MeasurementError int `json:"measurementError"`
	KnittingError    int `json:"knittingError"`
	ToeDefect        int `json:"toeDefect"`
	OtherDefect      int `json:"otherDefect"`

	RateFields

	PhotoPath string     `json:"photoPath,omitempty"`
	Note      string     `json:"note,omitempty"`
	CreatedAt Timestamp  `json:"createdAt"`
	UpdatedAt *Timestamp `json:"updatedAt,omitempty"`

	CanEdit              *bool  `json:"canEdit,omitempty"`
	TimeRemainingForEdit string `json:"timeRemainingForEdit,omitempty"`
	EditStatus           string `json:"editStatus,omitempty"`
}

// RateFields are the backend-computed derived metrics of an entry.
type RateFields struct {
	TotalDefects         int     `json:"totalDefects"`
	MeasurementErrorRate float64 `json:"measurementErrorRate"`
	KnittingErrorRate    float64 `json:"knittingErrorRate"`
	ToeDefectRate        float64 `json:"toeDefectRate"`
	OtherDefectRate      float64 `json:"otherDefectRate"`
	GeneralErrorRate     float64 `json:"generalErrorRate"`
}

// EntryInput carries the operator-supplied fields of a new entry.
type EntryInput struct {
	Date                   Date    `json:"date"`
	MachineNo              string  `json:"machineNo"`
	MKCycleSpeed           float64 `json:"mkCycleSpeed"`
	Shift                  int     `json:"shift"`
	MoldNo                 int     `json:"moldNo"`
	Steam                  float64 `json:"steam"`
	FormCount              int     `json:"formCount"`
	MatchingPersonnelCount int     `json:"matchingPersonnelCount"`
	TablePersonnelCount    int     `json:"tablePersonnelCount"`
	ModelNo                int     `json:"modelNo"`
	SizeNo                 string  `json:"sizeNo"`
	ItemsPerPackage        int     `json:"itemsPerPackage"`
	PackagesPerBag         *int    `json:"packagesPerBag,omitempty"`
	BagsPerBox             *int    `json:"bagsPerBox,omitempty"`

	TableTotalPackage       int  `json:"tableTotalPackage"`
	SampleFormCount         int  `json:"sampleFormCount"`
	RepeatFormCount         int  `json:"repeatFormCount"`
	YesterdayRemainingCount int  `json:"yesterdayRemainingCount"`
	UnmatchedProductCount   int  `json:"unmatchedProductCount"`
	AQualityProductCount    int  `json:"aQualityProductCount"`
	ThreadedProductCount    int  `json:"threadedProductCount"`
	StainedProductCount     int  `json:"stainedProductCount"`
	RemainingOnTableCount   *int `json:"remainingOnTableCount,omitempty"`
	CountTakenFromTable     int  `json:"countTakenFromTable"`
	CountTakenFromMachine   *int `json:"countTakenFromMachine,omitempty"`

	MeasurementError int `json:"measurementError"`
	KnittingError    int `json:"knittingError"`
	ToeDefect        int `json:"toeDefect"`
	OtherDefect      int `json:"otherDefect"`

	Note string `json:"note,omitempty"`
}

// EntryUpdate is the payload of the update path.
type EntryUpdate struct {
	EntryInput
	DeleteCurrentPhoto bool `json:"deleteCurrentPhoto,omitempty"`
}

// Photo is an optional production photo attached to a create or update.
type Photo struct {
	Filename string
	Reader   io.Reader
}

// MissingRequired lists the required fields that are blank.
func (in EntryInput) MissingRequired() []string {
	var missing []string
	if strings.TrimSpace(in.MachineNo) == "" {
		missing = append(missing, "machineNo")
	}
	if strings.TrimSpace(in.SizeNo) == "" {
		missing = append(missing, "sizeNo")
	}
	return missing
}

// Validate enforces required-field presence.
func (in EntryInput) Validate() error {
	missing := in.MissingRequired()
	if len(missing) == 0 {
		return nil
	}
	errs := make([]FieldError, 0, len(missing))
	for _, field := range missing {
		errs = append(errs, FieldError{Field: field, Message: "required"})
	}
	return NewValidationErrors(errs)
}

// FormFields encodes the input as multipart form values, omitting unset optionals.
func (in EntryInput) FormFields() map[string]string {
	fields := map[string]string{
		"machineNo":               in.MachineNo,
		"mkCycleSpeed":            formatFloat(in.MKCycleSpeed),
		"shift":                   strconv.Itoa(in.Shift),
		"moldNo":                  strconv.Itoa(in.MoldNo),
		"steam":                   formatFloat(in.Steam),
		"formCount":               strconv.Itoa(in.FormCount),
		"matchingPersonnelCount":  strconv.Itoa(in.MatchingPersonnelCount),
		"tablePersonnelCount":     strconv.Itoa(in.TablePersonnelCount),
		"modelNo":                 strconv.Itoa(in.ModelNo),
		"sizeNo":                  in.SizeNo,
		"itemsPerPackage":         strconv.Itoa(in.ItemsPerPackage),
		"tableTotalPackage":       strconv.Itoa(in.TableTotalPackage),
		"sampleFormCount":         strconv.Itoa(in.SampleFormCount),
		"repeatFormCount":         strconv.Itoa(in.RepeatFormCount),
		"yesterdayRemainingCount": strconv.Itoa(in.YesterdayRemainingCount),
		"unmatchedProductCount":   strconv.Itoa(in.UnmatchedProductCount),
		"aQualityProductCount":    strconv.Itoa(in.AQualityProductCount),
		"threadedProductCount":    strconv.Itoa(in.ThreadedProductCount),
		"stainedProductCount":     strconv.Itoa(in.StainedProductCount),
		"countTakenFromTable":     strconv.Itoa(in.CountTakenFromTable),
		"measurementError":        strconv.Itoa(in.MeasurementError),
		"knittingError":           strconv.Itoa(in.KnittingError),
		"toeDefect":               strconv.Itoa(in.ToeDefect),
		"otherDefect":             strconv.Itoa(in.OtherDefect),
	}
	if !in.Date.IsZero() {
		fields["date"] = in.Date.String()
	}
	setOptional(fields, "packagesPerBag", in.PackagesPerBag)
	setOptional(fields, "bagsPerBox", in.BagsPerBox)
	setOptional(fields, "remainingOnTableCount", in.RemainingOnTableCount)
	setOptional(fields, "countTakenFromMachine", in.CountTakenFromMachine)
	if in.Note != "" {
		fields["note"] = in.Note
	}
	return fields
}

// FormFields encodes the update, including the photo removal flag when set.
func (u EntryUpdate) FormFields() map[string]string {
	fields := u.EntryInput.FormFields()
	if u.DeleteCurrentPhoto {
		fields["deleteCurrentPhoto"] = "true"
	}
	return fields
}

// InputFromEntry copies the editable fields of an existing entry, e.g. to prefill an edit form.
func InputFromEntry(e ProductionEntry) EntryInput {
	return EntryInput{
		Date:                    e.Date,
		MachineNo:               e.MachineNo,
		MKCycleSpeed:            e.MKCycleSpeed,
		Shift:                   e.Shift,
		MoldNo:                  e.MoldNo,
		Steam:                   e.Steam,
		FormCount:               e.FormCount,
		MatchingPersonnelCount:  e.MatchingPersonnelCount,
		TablePersonnelCount:     e.TablePersonnelCount,
		ModelNo:                 e.ModelNo,
		SizeNo:                  e.SizeNo,
		ItemsPerPackage:         e.ItemsPerPackage,
		PackagesPerBag:          e.PackagesPerBag,
		BagsPerBox:              e.BagsPerBox,
		TableTotalPackage:       e.TableTotalPackage,
		SampleFormCount:         e.SampleFormCount,
		RepeatFormCount:         e.RepeatFormCount,
		YesterdayRemainingCount: e.YesterdayRemainingCount,
		UnmatchedProductCount:   e.UnmatchedProductCount,
		AQualityProductCount:    e.AQualityProductCount,
		ThreadedProductCount:    e.ThreadedProductCount,
		StainedProductCount:     e.StainedProductCount,
		RemainingOnTableCount:   e.RemainingOnTableCount,
		CountTakenFromTable:     e.CountTakenFromTable,
		CountTakenFromMachine:   e.CountTakenFromMachine,
		MeasurementError:        e.MeasurementError,
		KnittingError:           e.KnittingError,
		ToeDefect:               e.ToeDefect,
		OtherDefect:             e.OtherDefect,
		Note:                    e.Note,
	}
}

func setOptional(fields map[string]string, key string, value *int) {
	if value != nil {
		fields[key] = strconv.Itoa(*value)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseEntryForm decodes multipart form values produced by FormFields.
// Blank numeric values are zero; blank optionals stay unset.
func ParseEntryForm(get func(key string) string) (EntryInput, error) {
	p := formParser{get: get}
	in := EntryInput{
		MachineNo:               strings.TrimSpace(get("machineNo")),
		MKCycleSpeed:            p.float("mkCycleSpeed"),
		Shift:                   p.int("shift"),
		MoldNo:                  p.int("moldNo"),
		Steam:                   p.float("steam"),
		FormCount:               p.int("formCount"),
		MatchingPersonnelCount:  p.int("matchingPersonnelCount"),
		TablePersonnelCount:     p.int("tablePersonnelCount"),
		ModelNo:                 p.int("modelNo"),
		SizeNo:                  strings.TrimSpace(get("sizeNo")),
		ItemsPerPackage:         p.int("itemsPerPackage"),
		PackagesPerBag:          p.optionalInt("packagesPerBag"),
		BagsPerBox:              p.optionalInt("bagsPerBox"),
		TableTotalPackage:       p.int("tableTotalPackage"),
		SampleFormCount:         p.int("sampleFormCount"),
		RepeatFormCount:         p.int("repeatFormCount"),
		YesterdayRemainingCount: p.int("yesterdayRemainingCount"),
		UnmatchedProductCount:   p.int("unmatchedProductCount"),
		AQualityProductCount:    p.int("aQualityProductCount"),
		ThreadedProductCount:    p.int("threadedProductCount"),
		StainedProductCount:     p.int("stainedProductCount"),
		RemainingOnTableCount:   p.optionalInt("remainingOnTableCount"),
		CountTakenFromTable:     p.int("countTakenFromTable"),
		CountTakenFromMachine:   p.optionalInt("countTakenFromMachine"),
		MeasurementError:        p.int("measurementError"),
		KnittingError:           p.int("knittingError"),
		ToeDefect:               p.int("toeDefect"),
		OtherDefect:             p.int("otherDefect"),
		Note:                    get("note"),
	}
	if raw := strings.TrimSpace(get("date")); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			p.errs = append(p.errs, FieldError{Field: "date", Message: "must be YYYY-MM-DD"})
		} else {
			in.Date = d
		}
	}
	if len(p.errs) > 0 {
		return EntryInput{}, NewValidationErrors(p.errs)
	}
	return in, nil
}

type formParser struct {
	get  func(string) string
	errs []FieldError
}

func (p *formParser) int(key string) int {
	raw := strings.TrimSpace(p.get(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, FieldError{Field: key, Message: "must be an integer"})
	}
	return n
}

func (p *formParser) optionalInt(key string) *int {
	if strings.TrimSpace(p.get(key)) == "" {
		return nil
	}
	n := p.int(key)
	return &n
}

func (p *formParser) float(key string) float64 {
	raw := strings.TrimSpace(p.get(key))
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		p.errs = append(p.errs, FieldError{Field: key, Message: "must be a number"})
	}
	return f
}
