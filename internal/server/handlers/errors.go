package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/editing"
	"github.com/mamadbah2/knittrack/internal/service/export"
)

const backendUnavailableMessage = "production backend unavailable"

// respondError maps service errors to HTTP answers and logs them.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("request_id", c.GetString(RequestIDKey)),
		zap.Error(err),
	}

	var (
		verr    *models.ValidationError
		expired *models.ExpiredError
		backend *models.BackendError
	)
	switch {
	case errors.As(err, &verr):
		logger.Info("request rejected", fields...)
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Errors})
	case errors.As(err, &expired):
		logger.Info("edit refused", fields...)
		c.JSON(http.StatusConflict, gin.H{"error": expired.Message, "local": expired.Local})
	case errors.As(err, &backend) && errors.Is(err, models.ErrValidation):
		logger.Info("backend rejected request", fields...)
		c.JSON(http.StatusBadRequest, gin.H{"error": backendMessage(backend)})
	case errors.Is(err, models.ErrNotFound):
		logger.Info("not found", fields...)
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, editing.ErrSessionClosed):
		logger.Info("edit session closed", fields...)
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, export.ErrSheetsDisabled):
		logger.Warn("sheets export requested but not configured", fields...)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed", fields...)
		c.JSON(http.StatusBadGateway, gin.H{"error": backendUnavailableMessage})
	}
}

func backendMessage(err *models.BackendError) string {
	if err.Message != "" {
		return err.Message
	}
	return "request rejected by production backend"
}

func badRequest(c *gin.Context, logger *zap.Logger, msg string, err error) {
	logger.Info("invalid request", zap.String("request_id", c.GetString(RequestIDKey)), zap.String("reason", msg), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// entryID parses the :id path parameter, answering 400 when it is not a positive integer.
func entryID(c *gin.Context, logger *zap.Logger) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, logger, "entry id must be a positive integer", err)
		return 0, false
	}
	return id, true
}
