// Package export delivers production data outside the backend: the backend's
// Excel workbook and an optional Google Sheets copy.
package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	repo "github.com/mamadbah2/knittrack/internal/repository/sheets"
	client "github.com/mamadbah2/knittrack/pkg/clients/production"
)

const (
	// WorkbookFilename is the name the backend workbook is served under.
	WorkbookFilename = "ProductionEntries.xlsx"
	// DefaultWorkbookPath is reported when the backend cannot tell where the workbook lives.
	DefaultWorkbookPath = "Data/ProductionEntries.xlsx"
)

// ErrSheetsDisabled is returned by SyncToSheet when no spreadsheet is configured.
var ErrSheetsDisabled = errors.New("google sheets export is not configured")

// Header is the sheet header row, in workbook column order behind the id.
var Header = []interface{}{
	"ID", "Date", "Machine No", "MK Cycle Speed", "Shift", "Mold No", "Steam",
	"Form Count", "Matching Personnel", "Table Personnel", "Model No", "Size No",
	"Items Per Package", "Packages Per Bag", "Bags Per Box", "Table Total Package",
	"Measurement Error", "Knitting Error", "Toe Defect", "Other Defect", "Total Defects",
	"Remaining On Table", "Count Taken From Table", "Count Taken From Machine",
	"Measurement Error Rate (%)", "Knitting Error Rate (%)", "Toe Defect Rate (%)",
	"Other Defect Rate (%)", "General Error Rate (%)", "Created At", "Note",
}

// Workbook is a downloaded Excel file.
type Workbook struct {
	Filename string
	Content  []byte
}

// SyncResult counts what a sheet sync did.
type SyncResult struct {
	Appended int `json:"appended"`
	Skipped  int `json:"skipped"`
}

// Service exposes the export operations.
type Service struct {
	backend client.Client
	sheets  repo.Repository
	logger  *zap.Logger
}

// NewService wires an export service. sheets may be nil when no spreadsheet is configured.
func NewService(backend client.Client, sheets repo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, sheets: sheets, logger: logger}
}

// DownloadExcel fetches the workbook the backend maintains.
func (s *Service) DownloadExcel(ctx context.Context) (*Workbook, error) {
	content, err := s.backend.DownloadExcel(ctx)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("download excel: empty workbook: %w", models.ErrMalformedResponse)
	}
	return &Workbook{Filename: WorkbookFilename, Content: content}, nil
}

// ExcelPath reports where the backend keeps the workbook, or the default location.
func (s *Service) ExcelPath(ctx context.Context) string {
	path, err := s.backend.ExcelPath(ctx)
	if err != nil {
		s.logger.Warn("excel path lookup failed, using default", zap.Error(err))
		return DefaultWorkbookPath
	}
	if path == "" {
		return DefaultWorkbookPath
	}
	return path
}

// SyncToSheet appends the entries of the range that are not yet in the sheet.
func (s *Service) SyncToSheet(ctx context.Context, q models.DateRangeQuery) (*SyncResult, error) {
	if s.sheets == nil {
		return nil, ErrSheetsDisabled
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	entries, err := s.backend.ListEntriesByDateRange(ctx, q)
	if err != nil {
		return nil, err
	}

	existing, err := s.sheets.EntryIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read synced ids: %w", err)
	}
	synced := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		synced[id] = struct{}{}
	}

	result := &SyncResult{}
	var rows [][]interface{}
	if len(existing) == 0 {
		rows = append(rows, Header)
	}
	for _, e := range entries {
		if _, ok := synced[strconv.Itoa(e.ID)]; ok {
			result.Skipped++
			continue
		}
		rows = append(rows, Row(e))
		result.Appended++
	}

	if result.Appended == 0 {
		return result, nil
	}
	if err := s.sheets.AppendEntries(ctx, rows); err != nil {
		return nil, fmt.Errorf("append entries: %w", err)
	}

	s.logger.Info("entries synced to sheet",
		zap.String("start_date", q.StartDate),
		zap.String("end_date", q.EndDate),
		zap.Int("appended", result.Appended),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// Row renders an entry in Header order. Unset optionals are empty cells.
func Row(e models.ProductionEntry) []interface{} {
	return []interface{}{
		e.ID,
		e.Date.String(),
		e.MachineNo,
		e.MKCycleSpeed,
		e.Shift,
		e.MoldNo,
		e.Steam,
		e.FormCount,
		e.MatchingPersonnelCount,
		e.TablePersonnelCount,
		e.ModelNo,
		e.SizeNo,
		e.ItemsPerPackage,
		optional(e.PackagesPerBag),
		optional(e.BagsPerBox),
		e.TableTotalPackage,
		e.MeasurementError,
		e.KnittingError,
		e.ToeDefect,
		e.OtherDefect,
		e.TotalDefects,
		optional(e.RemainingOnTableCount),
		e.CountTakenFromTable,
		optional(e.CountTakenFromMachine),
		roundRate(e.MeasurementErrorRate),
		roundRate(e.KnittingErrorRate),
		roundRate(e.ToeDefectRate),
		roundRate(e.OtherDefectRate),
		roundRate(e.GeneralErrorRate),
		e.CreatedAt.Format(models.TimestampLayout),
		e.Note,
	}
}

func optional(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func roundRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
