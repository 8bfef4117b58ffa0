package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/config"
	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/export"
)

const (
	jobTimeout      = 2 * time.Minute
	idleSessionTTL  = 2 * time.Hour
	idleSessionSpec = "@every 1m"
)

// SummaryReporter recalculates and distributes the production summary.
type SummaryReporter interface {
	ReportSummary(ctx context.Context, trigger string) error
}

// SheetSyncer copies entries of a date range to the spreadsheet.
type SheetSyncer interface {
	SyncToSheet(ctx context.Context, q models.DateRangeQuery) (*export.SyncResult, error)
}

// SessionReaper closes edit sessions left open by clients.
type SessionReaper interface {
	CloseIdle(ttl time.Duration) int
}

// Jobs are the collaborators of the periodic jobs. Nil members disable their job.
type Jobs struct {
	Summary  SummaryReporter
	Sheets   SheetSyncer
	Sessions SessionReaper
}

// Scheduler manages scheduled tasks and the per-second countdown ticks.
type Scheduler struct {
	cron     *cron.Cron
	cfg      config.SchedulerConfig
	jobs     Jobs
	location *time.Location
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance. Cron expressions carry a
// leading seconds field.
func NewScheduler(cfg config.SchedulerConfig, jobs Jobs, location *time.Location, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(location),
		cron.WithChain(cron.Recover(cronLogger{logger: logger})),
	)

	return &Scheduler{
		cron:     c,
		cfg:      cfg,
		jobs:     jobs,
		location: location,
		logger:   logger,
	}
}

// SetSessionReaper installs the idle session cleanup job. It must be called before Start.
func (s *Scheduler) SetSessionReaper(r SessionReaper) {
	s.jobs.Sessions = r
}

// Every runs fn at a fixed interval until the returned cancel func is called.
func (s *Scheduler) Every(interval time.Duration, fn func()) (func(), error) {
	if interval < time.Second {
		return nil, fmt.Errorf("interval %s is below one second", interval)
	}
	id, err := s.cron.AddFunc("@every "+interval.String(), fn)
	if err != nil {
		return nil, fmt.Errorf("schedule every %s: %w", interval, err)
	}
	return func() { s.cron.Remove(id) }, nil
}

// Start registers the configured jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if s.cfg.SummaryCron != "" && s.jobs.Summary != nil {
		if _, err := s.cron.AddFunc(s.cfg.SummaryCron, s.reportSummary); err != nil {
			return fmt.Errorf("schedule summary job %q: %w", s.cfg.SummaryCron, err)
		}
		s.logger.Info("summary job scheduled", zap.String("spec", s.cfg.SummaryCron))
	}

	if s.cfg.SheetsSyncCron != "" && s.jobs.Sheets != nil {
		if _, err := s.cron.AddFunc(s.cfg.SheetsSyncCron, s.syncSheets); err != nil {
			return fmt.Errorf("schedule sheets sync job %q: %w", s.cfg.SheetsSyncCron, err)
		}
		s.logger.Info("sheets sync job scheduled", zap.String("spec", s.cfg.SheetsSyncCron))
	}

	if s.jobs.Sessions != nil {
		if _, err := s.cron.AddFunc(idleSessionSpec, s.reapSessions); err != nil {
			return fmt.Errorf("schedule session reaper: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("stopping scheduler")
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stopped before running jobs finished")
	}
}

func (s *Scheduler) reportSummary() {
	s.logger.Info("recalculating production summary")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.jobs.Summary.ReportSummary(ctx, "cron"); err != nil {
		s.logger.Error("failed to report production summary", zap.Error(err))
		return
	}
	s.logger.Info("production summary reported")
}

func (s *Scheduler) syncSheets() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	q := PreviousDay(time.Now().In(s.location))
	res, err := s.jobs.Sheets.SyncToSheet(ctx, q)
	if err != nil {
		s.logger.Error("failed to sync entries to sheet", zap.String("date", q.StartDate), zap.Error(err))
		return
	}
	s.logger.Info("sheet sync finished", zap.String("date", q.StartDate), zap.Int("appended", res.Appended))
}

func (s *Scheduler) reapSessions() {
	if n := s.jobs.Sessions.CloseIdle(idleSessionTTL); n > 0 {
		s.logger.Info("idle edit sessions closed", zap.Int("count", n))
	}
}

// PreviousDay selects the production date before now.
func PreviousDay(now time.Time) models.DateRangeQuery {
	day := now.AddDate(0, 0, -1).Format(models.DateLayout)
	return models.DateRangeQuery{StartDate: day, EndDate: day, FilterBy: models.FilterByDate}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
