package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/metrics"
	"github.com/mamadbah2/knittrack/internal/service/production"
)

// ProductionService is the entry surface the handler depends on.
type ProductionService interface {
	Create(ctx context.Context, in models.EntryInput, photo *models.Photo) (*production.Preview, error)
	PreviewInput(in models.EntryInput, src metrics.DenominatorSource) production.InputPreview
	Get(ctx context.Context, id int) (*models.ProductionEntry, error)
	GetForView(ctx context.Context, id int) (*production.Preview, error)
	Discrepancies(ctx context.Context, entryID int) ([]models.RateDiscrepancy, error)
	List(ctx context.Context, filter models.EntryFilter) (*models.PaginatedResponse[models.EntryEditability], error)
	ListByDateRange(ctx context.Context, q models.DateRangeQuery) ([]models.EntryEditability, error)
	Editability(ctx context.Context, id int) (*models.EditabilityReport, error)
	Summary(ctx context.Context) (*models.ProductionSummary, error)
	CalculateSummary(ctx context.Context, trigger string) (*models.ProductionSummary, error)
	Statistics(ctx context.Context) (*models.ProductionStatistics, error)
	Machines(ctx context.Context) ([]string, error)
	EntriesSummary(ctx context.Context) ([]models.EntrySummary, error)
}

// ProductionHandler serves production entries, metrics and summaries.
type ProductionHandler struct {
	svc    ProductionService
	logger *zap.Logger
}

// NewProductionHandler constructs the HTTP handler adapter.
func NewProductionHandler(svc ProductionService, logger *zap.Logger) *ProductionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductionHandler{svc: svc, logger: logger}
}

// List returns a page of entries with their editability.
func (h *ProductionHandler) List(c *gin.Context) {
	var filter models.EntryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, h.logger, "invalid query", err)
		return
	}

	page, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "list entries", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListByDateRange returns the entries of a date or creation-time window.
func (h *ProductionHandler) ListByDateRange(c *gin.Context) {
	var q models.DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, h.logger, "invalid query", err)
		return
	}

	entries, err := h.svc.ListByDateRange(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, "list entries by date range", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Create submits a new entry from JSON or a multipart form with an optional photo.
func (h *ProductionHandler) Create(c *gin.Context) {
	in, photo, cleanup, ok := h.bindEntry(c)
	if !ok {
		return
	}
	defer cleanup()

	preview, err := h.svc.Create(c.Request.Context(), in, photo)
	if err != nil {
		respondError(c, h.logger, "create entry", err)
		return
	}
	c.JSON(http.StatusCreated, preview)
}

// Get returns one entry.
func (h *ProductionHandler) Get(c *gin.Context) {
	id, ok := entryID(c, h.logger)
	if !ok {
		return
	}

	entry, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "get entry", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// View returns an entry with its authoritative and recomputed metrics.
func (h *ProductionHandler) View(c *gin.Context) {
	id, ok := entryID(c, h.logger)
	if !ok {
		return
	}

	preview, err := h.svc.GetForView(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "view entry", err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Editability reports whether an entry may still be changed.
func (h *ProductionHandler) Editability(c *gin.Context) {
	id, ok := entryID(c, h.logger)
	if !ok {
		return
	}

	report, err := h.svc.Editability(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "check editability", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Discrepancies lists the recorded metric disagreements of an entry.
func (h *ProductionHandler) Discrepancies(c *gin.Context) {
	id, ok := entryID(c, h.logger)
	if !ok {
		return
	}

	diffs, err := h.svc.Discrepancies(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "list discrepancies", err)
		return
	}
	if diffs == nil {
		diffs = []models.RateDiscrepancy{}
	}
	c.JSON(http.StatusOK, diffs)
}

// PreviewMetrics derives totals and rates of an unsaved entry.
func (h *ProductionHandler) PreviewMetrics(c *gin.Context) {
	var src metrics.DenominatorSource
	if raw := c.Query("denominator"); raw != "" {
		parsed, err := metrics.ParseDenominatorSource(raw)
		if err != nil {
			badRequest(c, h.logger, err.Error(), err)
			return
		}
		src = parsed
	}

	var in models.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, "invalid request body", err)
		return
	}
	c.JSON(http.StatusOK, h.svc.PreviewInput(in, src))
}

// Summary returns the last calculated production summary.
func (h *ProductionHandler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "get summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CalculateSummary triggers a summary recalculation.
func (h *ProductionHandler) CalculateSummary(c *gin.Context) {
	summary, err := h.svc.CalculateSummary(c.Request.Context(), "api")
	if err != nil {
		respondError(c, h.logger, "calculate summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Statistics returns the headline counters.
func (h *ProductionHandler) Statistics(c *gin.Context) {
	stats, err := h.svc.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "get statistics", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Machines lists known machine numbers.
func (h *ProductionHandler) Machines(c *gin.Context) {
	machines, err := h.svc.Machines(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list machines", err)
		return
	}
	c.JSON(http.StatusOK, machines)
}

// EntriesSummary returns the condensed entry listing.
func (h *ProductionHandler) EntriesSummary(c *gin.Context) {
	rows, err := h.svc.EntriesSummary(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "entries summary", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ProductionHandler) bindEntry(c *gin.Context) (models.EntryInput, *models.Photo, func(), bool) {
	if !isMultipart(c) {
		var in models.EntryInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, h.logger, "invalid request body", err)
			return models.EntryInput{}, nil, nil, false
		}
		return in, nil, func() {}, true
	}

	in, err := models.ParseEntryForm(c.PostForm)
	if err != nil {
		respondError(c, h.logger, "parse entry form", err)
		return models.EntryInput{}, nil, nil, false
	}
	photo, cleanup, err := formPhoto(c)
	if err != nil {
		badRequest(c, h.logger, "unreadable photo", err)
		return models.EntryInput{}, nil, nil, false
	}
	return in, photo, cleanup, true
}
