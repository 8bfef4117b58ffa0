package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportService is the export surface the handler depends on.
type ExportService interface {
	DownloadExcel(ctx context.Context) (*export.Workbook, error)
	ExcelPath(ctx context.Context) string
	SyncToSheet(ctx context.Context, q models.DateRangeQuery) (*export.SyncResult, error)
}

// ExportHandler serves the workbook and the spreadsheet sync.
type ExportHandler struct {
	svc    ExportService
	logger *zap.Logger
}

// NewExportHandler constructs the HTTP handler adapter.
func NewExportHandler(svc ExportService, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{svc: svc, logger: logger}
}

// Excel streams the backend workbook as an attachment.
func (h *ExportHandler) Excel(c *gin.Context) {
	wb, err := h.svc.DownloadExcel(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "download excel", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", wb.Filename))
	c.Data(http.StatusOK, xlsxContentType, wb.Content)
}

// ExcelPath reports where the backend keeps the workbook.
func (h *ExportHandler) ExcelPath(c *gin.Context) {
	c.JSON(http.StatusOK, models.ExcelPathResponse{Path: h.svc.ExcelPath(c.Request.Context())})
}

// SyncSheets appends the entries of a date range to the spreadsheet.
func (h *ExportHandler) SyncSheets(c *gin.Context) {
	var q models.DateRangeQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c, h.logger, "invalid request body", err)
		return
	}

	res, err := h.svc.SyncToSheet(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, "sync sheets", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
