package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/knittrack/internal/config"
)

// lastColumn is the last column an entry row occupies (31 cells, A through AE).
const lastColumn = "AE"

// Repository stores production entry rows in one tab of a spreadsheet.
type Repository interface {
	// EntryIDs returns the first cell of every non-empty row of the tab, header included.
	EntryIDs(ctx context.Context) ([]string, error)
	// AppendEntries writes rows below the data already in the tab.
	AppendEntries(ctx context.Context, rows [][]interface{}) error
}

// GoogleSheetRepository implements Repository on the Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	tab           string
	logger        *zap.Logger
}

// NewGoogleSheetRepository opens the configured spreadsheet with service account credentials.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SheetName == "" {
		return nil, fmt.Errorf("sheet name must not be empty")
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		tab:           cfg.SheetName,
		logger:        logger,
	}, nil
}

func (r *GoogleSheetRepository) EntryIDs(ctx context.Context) ([]string, error) {
	idRange := r.tab + "!A:A"
	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, idRange).
		MajorDimension("COLUMNS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read ids from %s: %w", idRange, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(resp.Values[0]))
	for _, cell := range resp.Values[0] {
		if s := fmt.Sprint(cell); s != "" {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

func (r *GoogleSheetRepository) AppendEntries(ctx context.Context, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	target := fmt.Sprintf("%s!A:%s", r.tab, lastColumn)
	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, target, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return fmt.Errorf("append %d rows into %s: %w", len(rows), target, err)
	}

	fields := []zap.Field{zap.String("tab", r.tab), zap.Int("rows", len(rows))}
	if resp.Updates != nil {
		fields = append(fields, zap.String("updated_range", resp.Updates.UpdatedRange))
	}
	r.logger.Debug("entry rows appended", fields...)
	return nil
}
