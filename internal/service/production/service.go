// Package production implements the entry operations offered to operators on
// top of the production backend.
package production

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/repository/mongodb"
	"github.com/mamadbah2/knittrack/internal/service/alerts"
	"github.com/mamadbah2/knittrack/internal/service/editwindow"
	"github.com/mamadbah2/knittrack/internal/service/metrics"
	client "github.com/mamadbah2/knittrack/pkg/clients/production"
)

const defaultConcurrency = 8

// Options tunes a Service.
type Options struct {
	Denominator metrics.DenominatorSource
	// Concurrency bounds the per-row editability checks of one listing.
	Concurrency int
	Now         func() time.Time
}

// Service coordinates the backend client, the audit store and alerts.
type Service struct {
	backend     client.Client
	audit       mongodb.Repository
	notifier    alerts.Notifier
	denominator metrics.DenominatorSource
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// NewService wires a production service. audit and notifier may be nil.
func NewService(backend client.Client, audit mongodb.Repository, notifier alerts.Notifier, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = mongodb.NopRepository{}
	}
	if opts.Denominator == "" {
		opts.Denominator = metrics.DenominatorCountTakenFromTable
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		backend:     backend,
		audit:       audit,
		notifier:    notifier,
		denominator: opts.Denominator,
		concurrency: opts.Concurrency,
		now:         opts.Now,
		logger:      logger,
	}
}

// Preview is an entry as the backend stored it, with its authoritative
// metrics next to the locally recomputed ones.
type Preview struct {
	Entry             models.ProductionEntry    `json:"entry"`
	Backend           metrics.Breakdown         `json:"backend"`
	Local             metrics.Breakdown         `json:"local"`
	Denominator       int                       `json:"denominator"`
	DenominatorSource metrics.DenominatorSource `json:"denominatorSource"`
	Discrepancies     []metrics.Discrepancy     `json:"discrepancies,omitempty"`
	Editability       models.EditabilityCheck   `json:"editability"`
	PhotoURL          string                    `json:"photoUrl,omitempty"`
	AlertSent         bool                      `json:"alertSent"`
}

// InputPreview is the locally derived metrics of an unsaved entry.
type InputPreview struct {
	Metrics           metrics.Breakdown         `json:"metrics"`
	Denominator       int                       `json:"denominator"`
	DenominatorSource metrics.DenominatorSource `json:"denominatorSource"`
	MissingRequired   []string                  `json:"missingRequired,omitempty"`
}

// Create validates and submits a new entry, then returns its print preview.
func (s *Service) Create(ctx context.Context, in models.EntryInput, photo *models.Photo) (*Preview, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	entry, err := s.backend.CreateEntry(ctx, in, photo)
	if err != nil {
		return nil, err
	}
	s.logger.Info("production entry created", zap.Int("entry_id", entry.ID), zap.String("machine_no", entry.MachineNo))

	preview := s.preview(ctx, *entry, true)

	if s.notifier != nil {
		sent, err := s.notifier.NotifyIfHighDefectRate(ctx, *entry)
		if err != nil {
			s.logger.Error("failed to send high defect rate alert", zap.Int("entry_id", entry.ID), zap.Error(err))
		}
		preview.AlertSent = sent
	}

	return preview, nil
}

// PreviewInput derives totals and rates of a form that has not been submitted.
func (s *Service) PreviewInput(in models.EntryInput, src metrics.DenominatorSource) InputPreview {
	if src == "" {
		src = s.denominator
	}
	denominator := metrics.DenominatorOfInput(in, src)
	return InputPreview{
		Metrics:           metrics.Compute(metrics.CountersOfInput(in), denominator),
		Denominator:       denominator,
		DenominatorSource: src,
		MissingRequired:   in.MissingRequired(),
	}
}

// Get loads one entry.
func (s *Service) Get(ctx context.Context, id int) (*models.ProductionEntry, error) {
	return s.backend.GetEntry(ctx, id)
}

// GetForView loads the view projection of an entry with its metrics. The full
// entry endpoint is used when the projection cannot be loaded.
func (s *Service) GetForView(ctx context.Context, id int) (*Preview, error) {
	entry, err := s.backend.GetEntryForView(ctx, id)
	if err != nil {
		s.logger.Warn("view projection unavailable, loading full entry", zap.Int("entry_id", id), zap.Error(err))
		entry, err = s.backend.GetEntry(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	return s.preview(ctx, *entry, false), nil
}

func (s *Service) preview(ctx context.Context, entry models.ProductionEntry, record bool) *Preview {
	denominator := metrics.Denominator(entry, s.denominator)
	local := metrics.Compute(metrics.CountersOf(entry), denominator)
	backend := metrics.FromEntry(entry)

	p := &Preview{
		Entry:             entry,
		Backend:           backend,
		Local:             local,
		Denominator:       denominator,
		DenominatorSource: s.denominator,
		Discrepancies:     metrics.Compare(local, backend),
		Editability:       editwindow.Evaluate(entry.CreatedAt.Time, s.now()).Check(),
	}
	if entry.PhotoPath != "" {
		p.PhotoURL = s.backend.PhotoURL(entry.PhotoPath)
	}

	if len(p.Discrepancies) > 0 {
		s.logger.Warn("local metrics disagree with backend",
			zap.Int("entry_id", entry.ID),
			zap.String("denominator_source", string(s.denominator)),
			zap.Int("denominator", denominator),
			zap.Any("discrepancies", p.Discrepancies),
		)
		if record {
			s.recordDiscrepancies(ctx, entry.ID, denominator, p.Discrepancies)
		}
	}
	return p
}

func (s *Service) recordDiscrepancies(ctx context.Context, entryID, denominator int, diffs []metrics.Discrepancy) {
	detectedAt := s.now().UTC()
	items := make([]models.RateDiscrepancy, 0, len(diffs))
	for _, d := range diffs {
		items = append(items, models.RateDiscrepancy{
			EntryID:     entryID,
			Field:       d.Field,
			Local:       d.Local,
			Backend:     d.Backend,
			Denominator: denominator,
			Source:      string(s.denominator),
			DetectedAt:  detectedAt,
		})
	}
	if err := s.audit.SaveDiscrepancies(ctx, items); err != nil {
		s.logger.Error("failed to store rate discrepancies", zap.Int("entry_id", entryID), zap.Error(err))
	}
}

// Discrepancies lists the recorded metric disagreements of an entry.
func (s *Service) Discrepancies(ctx context.Context, entryID int) ([]models.RateDiscrepancy, error) {
	return s.audit.ListDiscrepancies(ctx, entryID)
}

// List returns one page of entries, each annotated with its editability.
// An id filter is applied locally over the full listing.
func (s *Service) List(ctx context.Context, filter models.EntryFilter) (*models.PaginatedResponse[models.EntryEditability], error) {
	if filter.ID > 0 {
		return s.findByID(ctx, filter.ID)
	}

	page, err := s.backend.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &models.PaginatedResponse[models.EntryEditability]{
		Items:      s.AnnotateEditability(ctx, page.Items),
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

func (s *Service) findByID(ctx context.Context, id int) (*models.PaginatedResponse[models.EntryEditability], error) {
	all, err := s.backend.ListAllEntries(ctx)
	if err != nil {
		return nil, err
	}
	var matched []models.ProductionEntry
	for _, e := range all {
		if e.ID == id {
			matched = append(matched, e)
		}
	}
	resp := &models.PaginatedResponse[models.EntryEditability]{
		Items:      s.AnnotateEditability(ctx, matched),
		TotalCount: len(matched),
		Page:       1,
		PageSize:   len(matched),
	}
	if len(matched) > 0 {
		resp.TotalPages = 1
	}
	return resp, nil
}

// ListByDateRange lists entries by production date or creation time.
func (s *Service) ListByDateRange(ctx context.Context, q models.DateRangeQuery) ([]models.EntryEditability, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.backend.ListEntriesByDateRange(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.AnnotateEditability(ctx, entries), nil
}

// AnnotateEditability checks every entry against the backend concurrently.
// Results are matched by entry id; a failed check marks only its own row
// as undetermined.
func (s *Service) AnnotateEditability(ctx context.Context, entries []models.ProductionEntry) []models.EntryEditability {
	if len(entries) == 0 {
		return []models.EntryEditability{}
	}

	var (
		mu      sync.Mutex
		results = make(map[int]models.EditabilityCheck, len(entries))
		g       errgroup.Group
	)
	g.SetLimit(s.concurrency)

	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}

		id := e.ID
		g.Go(func() error {
			check, err := s.backend.CheckEditability(ctx, id)
			if err != nil {
				s.logger.Warn("editability check failed", zap.Int("entry_id", id), zap.Error(err))
				return nil
			}
			mu.Lock()
			results[id] = *check
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.EntryEditability, len(entries))
	for i, e := range entries {
		check, ok := results[e.ID]
		if !ok {
			check = models.CannotDetermine()
		}
		e.ApplyEditability(check)
		out[i] = models.EntryEditability{ProductionEntry: e, Determined: ok}
	}
	return out
}

// Editability pairs the backend's verdict for an entry with the local estimate.
// A failed backend check is reported in the result, not as an error.
func (s *Service) Editability(ctx context.Context, id int) (*models.EditabilityReport, error) {
	entry, err := s.backend.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	decision := editwindow.Decision{Estimate: editwindow.Evaluate(entry.CreatedAt.Time, s.now())}
	check, err := s.backend.CheckEditability(ctx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.Warn("backend editability check failed, using local estimate", zap.Int("entry_id", id), zap.Error(err))
		report := decision.Report(id, err)
		return &report, nil
	}

	decision.Backend = check
	report := decision.Report(id, nil)
	return &report, nil
}

// Summary returns the most recently calculated production summary.
func (s *Service) Summary(ctx context.Context) (*models.ProductionSummary, error) {
	return s.backend.CurrentSummary(ctx)
}

// CalculateSummary asks the backend to recalculate the summary and keeps a snapshot.
func (s *Service) CalculateSummary(ctx context.Context, trigger string) (*models.ProductionSummary, error) {
	summary, err := s.backend.CalculateSummary(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := models.SummarySnapshot{Summary: *summary, TakenAt: s.now().UTC(), Trigger: trigger}
	if err := s.audit.SaveSummarySnapshot(ctx, snapshot); err != nil {
		s.logger.Error("failed to store summary snapshot", zap.String("trigger", trigger), zap.Error(err))
	}
	return summary, nil
}

// ReportSummary recalculates the summary and sends it to the alert recipient.
func (s *Service) ReportSummary(ctx context.Context, trigger string) error {
	summary, err := s.CalculateSummary(ctx, trigger)
	if err != nil {
		return fmt.Errorf("calculate summary: %w", err)
	}
	if s.notifier == nil {
		return nil
	}
	return s.notifier.SendSummary(ctx, *summary)
}

// Statistics returns the backend's headline counters.
func (s *Service) Statistics(ctx context.Context) (*models.ProductionStatistics, error) {
	return s.backend.Statistics(ctx)
}

// Machines lists the machine numbers known to the backend.
func (s *Service) Machines(ctx context.Context) ([]string, error) {
	return s.backend.Machines(ctx)
}

// EntriesSummary returns the condensed entry listing.
func (s *Service) EntriesSummary(ctx context.Context) ([]models.EntrySummary, error) {
	return s.backend.EntriesSummary(ctx)
}
