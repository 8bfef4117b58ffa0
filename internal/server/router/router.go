package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/server/handlers"
)

const requestIDHeader = "X-Request-ID"

// Handlers groups the HTTP handler adapters mounted by the router.
type Handlers struct {
	Production   *handlers.ProductionHandler
	Export       *handlers.ExportHandler
	EditSessions *handlers.EditSessionHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	entries := api.Group("/entries")
	entries.GET("", h.Production.List)
	entries.POST("", h.Production.Create)
	entries.GET("/date-range", h.Production.ListByDateRange)
	entries.GET("/:id", h.Production.Get)
	entries.GET("/:id/view", h.Production.View)
	entries.GET("/:id/editability", h.Production.Editability)
	entries.GET("/:id/discrepancies", h.Production.Discrepancies)

	api.POST("/metrics/preview", h.Production.PreviewMetrics)
	api.GET("/summary", h.Production.Summary)
	api.POST("/summary/calculate", h.Production.CalculateSummary)
	api.GET("/statistics", h.Production.Statistics)
	api.GET("/machines", h.Production.Machines)
	api.GET("/entries-summary", h.Production.EntriesSummary)

	exports := api.Group("/export")
	exports.GET("/excel", h.Export.Excel)
	exports.GET("/excel-path", h.Export.ExcelPath)
	exports.POST("/sheets", h.Export.SyncSheets)

	sessions := api.Group("/edit-sessions")
	sessions.POST("", h.EditSessions.Open)
	sessions.GET("/:sid", h.EditSessions.Get)
	sessions.GET("/:sid/countdown", h.EditSessions.Countdown)
	sessions.POST("/:sid/refresh", h.EditSessions.Refresh)
	sessions.PUT("/:sid/entry", h.EditSessions.Submit)
	sessions.DELETE("/:sid", h.EditSessions.Close)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

// requestIDMiddleware keeps an incoming X-Request-ID or assigns a new one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(handlers.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(handlers.RequestIDKey)))
	}
}
