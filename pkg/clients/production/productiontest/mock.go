// Package productiontest provides a function-field double of the production
// backend client for tests.
package productiontest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	client "github.com/mamadbah2/knittrack/pkg/clients/production"
)

var _ client.Client = &ClientMock{}

// ClientMock implements client.Client. Unset functions fail with an error
// naming the method.
type ClientMock struct {
	CreateEntryFunc            func(ctx context.Context, in models.EntryInput, photo *models.Photo) (*models.ProductionEntry, error)
	UpdateEntryFunc            func(ctx context.Context, id int, upd models.EntryUpdate, photo *models.Photo) (*models.ProductionEntry, error)
	GetEntryFunc               func(ctx context.Context, id int) (*models.ProductionEntry, error)
	GetEntryForViewFunc        func(ctx context.Context, id int) (*models.ProductionEntry, error)
	ListEntriesFunc            func(ctx context.Context, filter models.EntryFilter) (*models.PaginatedResponse[models.ProductionEntry], error)
	ListAllEntriesFunc         func(ctx context.Context) ([]models.ProductionEntry, error)
	ListEntriesByDateRangeFunc func(ctx context.Context, q models.DateRangeQuery) ([]models.ProductionEntry, error)
	CheckEditabilityFunc       func(ctx context.Context, id int) (*models.EditabilityCheck, error)
	CurrentSummaryFunc         func(ctx context.Context) (*models.ProductionSummary, error)
	CalculateSummaryFunc       func(ctx context.Context) (*models.ProductionSummary, error)
	StatisticsFunc             func(ctx context.Context) (*models.ProductionStatistics, error)
	MachinesFunc               func(ctx context.Context) ([]string, error)
	EntriesSummaryFunc         func(ctx context.Context) ([]models.EntrySummary, error)
	DownloadExcelFunc          func(ctx context.Context) ([]byte, error)
	ExcelPathFunc              func(ctx context.Context) (string, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *ClientMock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how many times method was invoked.
func (m *ClientMock) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func notStubbed(method string) error {
	return fmt.Errorf("productiontest: %s not stubbed", method)
}

func (m *ClientMock) CreateEntry(ctx context.Context, in models.EntryInput, photo *models.Photo) (*models.ProductionEntry, error) {
	m.record("CreateEntry")
	if m.CreateEntryFunc == nil {
		return nil, notStubbed("CreateEntry")
	}
	return m.CreateEntryFunc(ctx, in, photo)
}

func (m *ClientMock) UpdateEntry(ctx context.Context, id int, upd models.EntryUpdate, photo *models.Photo) (*models.ProductionEntry, error) {
	m.record("UpdateEntry")
	if m.UpdateEntryFunc == nil {
		return nil, notStubbed("UpdateEntry")
	}
	return m.UpdateEntryFunc(ctx, id, upd, photo)
}

func (m *ClientMock) GetEntry(ctx context.Context, id int) (*models.ProductionEntry, error) {
	m.record("GetEntry")
	if m.GetEntryFunc == nil {
		return nil, notStubbed("GetEntry")
	}
	return m.GetEntryFunc(ctx, id)
}

func (m *ClientMock) GetEntryForView(ctx context.Context, id int) (*models.ProductionEntry, error) {
	m.record("GetEntryForView")
	if m.GetEntryForViewFunc == nil {
		return nil, notStubbed("GetEntryForView")
	}
	return m.GetEntryForViewFunc(ctx, id)
}

func (m *ClientMock) ListEntries(ctx context.Context, filter models.EntryFilter) (*models.PaginatedResponse[models.ProductionEntry], error) {
	m.record("ListEntries")
	if m.ListEntriesFunc == nil {
		return nil, notStubbed("ListEntries")
	}
	return m.ListEntriesFunc(ctx, filter)
}

func (m *ClientMock) ListAllEntries(ctx context.Context) ([]models.ProductionEntry, error) {
	m.record("ListAllEntries")
	if m.ListAllEntriesFunc == nil {
		return nil, notStubbed("ListAllEntries")
	}
	return m.ListAllEntriesFunc(ctx)
}

func (m *ClientMock) ListEntriesByDateRange(ctx context.Context, q models.DateRangeQuery) ([]models.ProductionEntry, error) {
	m.record("ListEntriesByDateRange")
	if m.ListEntriesByDateRangeFunc == nil {
		return nil, notStubbed("ListEntriesByDateRange")
	}
	return m.ListEntriesByDateRangeFunc(ctx, q)
}

func (m *ClientMock) CheckEditability(ctx context.Context, id int) (*models.EditabilityCheck, error) {
	m.record("CheckEditability")
	if m.CheckEditabilityFunc == nil {
		return nil, notStubbed("CheckEditability")
	}
	return m.CheckEditabilityFunc(ctx, id)
}

func (m *ClientMock) CurrentSummary(ctx context.Context) (*models.ProductionSummary, error) {
	m.record("CurrentSummary")
	if m.CurrentSummaryFunc == nil {
		return nil, notStubbed("CurrentSummary")
	}
	return m.CurrentSummaryFunc(ctx)
}

func (m *ClientMock) CalculateSummary(ctx context.Context) (*models.ProductionSummary, error) {
	m.record("CalculateSummary")
	if m.CalculateSummaryFunc == nil {
		return nil, notStubbed("CalculateSummary")
	}
	return m.CalculateSummaryFunc(ctx)
}

func (m *ClientMock) Statistics(ctx context.Context) (*models.ProductionStatistics, error) {
	m.record("Statistics")
	if m.StatisticsFunc == nil {
		return nil, notStubbed("Statistics")
	}
	return m.StatisticsFunc(ctx)
}

func (m *ClientMock) Machines(ctx context.Context) ([]string, error) {
	m.record("Machines")
	if m.MachinesFunc == nil {
		return nil, notStubbed("Machines")
	}
	return m.MachinesFunc(ctx)
}

func (m *ClientMock) EntriesSummary(ctx context.Context) ([]models.EntrySummary, error) {
	m.record("EntriesSummary")
	if m.EntriesSummaryFunc == nil {
		return nil, notStubbed("EntriesSummary")
	}
	return m.EntriesSummaryFunc(ctx)
}

func (m *ClientMock) DownloadExcel(ctx context.Context) ([]byte, error) {
	m.record("DownloadExcel")
	if m.DownloadExcelFunc == nil {
		return nil, notStubbed("DownloadExcel")
	}
	return m.DownloadExcelFunc(ctx)
}

func (m *ClientMock) ExcelPath(ctx context.Context) (string, error) {
	m.record("ExcelPath")
	if m.ExcelPathFunc == nil {
		return "", notStubbed("ExcelPath")
	}
	return m.ExcelPathFunc(ctx)
}

func (m *ClientMock) PhotoURL(photoPath string) string {
	return "http://backend.test/uploads/production-photos/" + photoPath
}
