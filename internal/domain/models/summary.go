package models

// ProductionSummary is the backend's aggregate over all recorded entries.
type ProductionSummary struct {
	ID                         int       `bson:"summary_id" json:"id"`
	TotalTableCount            int       `bson:"total_table_count" json:"totalTableCount"`
	TotalTableCountDozen       float64   `bson:"total_table_count_dozen" json:"totalTableCountDozen"`
	TotalErrorCount            int       `bson:"total_error_count" json:"totalErrorCount"`
	TotalErrorCountDozen       float64   `bson:"total_error_count_dozen" json:"totalErrorCountDozen"`
	CountTakenFromTable        *int      `bson:"count_taken_from_table,omitempty" json:"countTakenFromTable,omitempty"`
	CountTakenFromTableDozen   *float64  `bson:"count_taken_from_table_dozen,omitempty" json:"countTakenFromTableDozen,omitempty"`
	CountTakenFromMachine      *int      `bson:"count_taken_from_machine,omitempty" json:"countTakenFromMachine,omitempty"`
	CountTakenFromMachineDozen *float64  `bson:"count_taken_from_machine_dozen,omitempty" json:"countTakenFromMachineDozen,omitempty"`
	MeasurementErrorCount      int       `bson:"measurement_error_count" json:"measurementErrorCount"`
	MeasurementErrorDozen      float64   `bson:"measurement_error_dozen" json:"measurementErrorDozen"`
	MeasurementErrorRate       float64   `bson:"measurement_error_rate" json:"measurementErrorRate"`
	KnittingErrorCount         int       `bson:"knitting_error_count" json:"knittingErrorCount"`
	KnittingErrorDozen         float64   `bson:"knitting_error_dozen" json:"knittingErrorDozen"`
	KnittingErrorRate          float64   `bson:"knitting_error_rate" json:"knittingErrorRate"`
	ToeDefectCount             int       `bson:"toe_defect_count" json:"toeDefectCount"`
	ToeDefectDozen             float64   `bson:"toe_defect_dozen" json:"toeDefectDozen"`
	ToeDefectRate              float64   `bson:"toe_defect_rate" json:"toeDefectRate"`
	OtherDefectCount           int       `bson:"other_defect_count" json:"otherDefectCount"`
	OtherDefectDozen           float64   `bson:"other_defect_dozen" json:"otherDefectDozen"`
	OtherDefectRate            float64   `bson:"other_defect_rate" json:"otherDefectRate"`
	OverallErrorRate           float64   `bson:"overall_error_rate" json:"overallErrorRate"`
	CalculatedAt               Timestamp `bson:"calculated_at" json:"calculatedAt"`
}

// ProductionStatistics are the backend's headline counters.
type ProductionStatistics struct {
	TotalEntries            int                `json:"totalEntries"`
	TotalMachines           int                `json:"totalMachines"`
	AverageGeneralErrorRate float64            `json:"averageGeneralErrorRate"`
	EntriesByShift          map[string]int     `json:"entriesByShift,omitempty"`
	EntriesByMachine        map[string]int     `json:"entriesByMachine,omitempty"`
	ErrorRateByMachine      map[string]float64 `json:"errorRateByMachine,omitempty"`
	FirstEntryDate          *Date              `json:"firstEntryDate,omitempty"`
	LastEntryDate           *Date              `json:"lastEntryDate,omitempty"`
}

// EntrySummary is the condensed list projection of an entry.
type EntrySummary struct {
	ID                int       `json:"id"`
	Date              Date      `json:"date"`
	MachineNo         string    `json:"machineNo"`
	Shift             int       `json:"shift"`
	ModelNo           int       `json:"modelNo"`
	SizeNo            string    `json:"sizeNo"`
	TableTotalPackage int       `json:"tableTotalPackage"`
	TotalDefects      int       `json:"totalDefects"`
	GeneralErrorRate  float64   `json:"generalErrorRate"`
	CreatedAt         Timestamp `json:"createdAt"`
}

// PaginatedResponse is the backend's page envelope.
type PaginatedResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// EntryFilter narrows a paginated entry listing.
type EntryFilter struct {
	Page      int    `form:"page" json:"page"`
	PageSize  int    `form:"pageSize" json:"pageSize"`
	MachineNo string `form:"machineNo" json:"machineNo,omitempty"`
	Shift     int    `form:"shift" json:"shift,omitempty"`
	StartDate string `form:"startDate" json:"startDate,omitempty"`
	EndDate   string `form:"endDate" json:"endDate,omitempty"`
	// ID is matched client-side; the backend listing has no id filter.
	ID int `form:"id" json:"id,omitempty"`
}

// DateRangeQuery selects entries by production date or creation time.
type DateRangeQuery struct {
	StartDate string `form:"startDate" json:"startDate"`
	EndDate   string `form:"endDate" json:"endDate"`
	FilterBy  string `form:"filterBy" json:"filterBy"`
	StartTime string `form:"startTime" json:"startTime,omitempty"`
	EndTime   string `form:"endTime" json:"endTime,omitempty"`
}

// Date range filter targets.
const (
	FilterByDate      = "date"
	FilterByCreatedAt = "createdAt"
)

// Validate checks the range bounds. Dates and HH:MM times compare lexically.
func (q DateRangeQuery) Validate() error {
	var errs []FieldError
	if q.StartDate == "" {
		errs = append(errs, FieldError{Field: "startDate", Message: "required"})
	}
	if q.EndDate == "" {
		errs = append(errs, FieldError{Field: "endDate", Message: "required"})
	}
	if q.StartDate != "" && q.EndDate != "" && q.StartDate > q.EndDate {
		errs = append(errs, FieldError{Field: "startDate", Message: "must not be after endDate"})
	}
	if q.StartTime != "" && q.EndTime != "" && q.StartTime > q.EndTime {
		errs = append(errs, FieldError{Field: "startTime", Message: "must not be after endTime"})
	}
	switch q.FilterBy {
	case "", FilterByDate, FilterByCreatedAt:
	default:
		errs = append(errs, FieldError{Field: "filterBy", Message: "must be date or createdAt"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// ExcelPathResponse carries the backend workbook location.
type ExcelPathResponse struct {
	Path string `json:"path"`
}
