// Package alerts pushes production notifications to a WhatsApp recipient.
package alerts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/metrics"
	client "github.com/mamadbah2/knittrack/pkg/clients/whatsapp"
)

// Notifier is what the production and scheduling code depends on.
type Notifier interface {
	NotifyIfHighDefectRate(ctx context.Context, entry models.ProductionEntry) (bool, error)
	SendSummary(ctx context.Context, summary models.ProductionSummary) error
}

// Service sends alerts through the WhatsApp Cloud API. A Service without a
// client or recipient drops every message.
type Service struct {
	client    client.Client
	recipient string
	threshold float64
	logger    *zap.Logger
}

// NewService wires a new alert service instance.
func NewService(c client.Client, recipient string, threshold float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: c, recipient: recipient, threshold: threshold, logger: logger}
}

// Enabled reports whether messages are actually delivered.
func (s *Service) Enabled() bool {
	return s.client != nil && s.recipient != ""
}

// NotifyIfHighDefectRate alerts when the backend's general error rate of
// entry is above the threshold. It reports whether an alert was sent.
func (s *Service) NotifyIfHighDefectRate(ctx context.Context, entry models.ProductionEntry) (bool, error) {
	if entry.GeneralErrorRate <= s.threshold {
		return false, nil
	}
	if !s.Enabled() {
		s.logger.Debug("high defect rate alert skipped, whatsapp disabled", zap.Int("entry_id", entry.ID))
		return false, nil
	}

	if err := s.send(ctx, FormatHighDefectRate(entry, s.threshold)); err != nil {
		return false, fmt.Errorf("send high defect rate alert for entry %d: %w", entry.ID, err)
	}

	s.logger.Info("high defect rate alert sent",
		zap.Int("entry_id", entry.ID),
		zap.String("machine_no", entry.MachineNo),
		zap.Float64("general_error_rate", entry.GeneralErrorRate),
	)
	return true, nil
}

// SendSummary delivers the production summary as a text report.
func (s *Service) SendSummary(ctx context.Context, summary models.ProductionSummary) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.send(ctx, FormatSummary(summary)); err != nil {
		return fmt.Errorf("send production summary: %w", err)
	}
	s.logger.Info("production summary sent", zap.Int("summary_id", summary.ID))
	return nil
}

func (s *Service) send(ctx context.Context, body string) error {
	resp, err := s.client.SendTextMessage(ctx, models.OutboundMessageRequest{To: s.recipient, Message: body})
	if err != nil {
		return err
	}
	s.logger.Debug("whatsapp message accepted", zap.String("message_id", resp.MessageID()))
	return nil
}

// FormatHighDefectRate renders the alert text for an entry.
func FormatHighDefectRate(entry models.ProductionEntry, threshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "High defect rate on machine %s (entry #%d)\n", entry.MachineNo, entry.ID)
	fmt.Fprintf(&b, "Date %s, shift %d, model %d, size %s\n", entry.Date, entry.Shift, entry.ModelNo, entry.SizeNo)
	fmt.Fprintf(&b, "General error rate %s (threshold %s)\n",
		metrics.RateFromPercent(entry.GeneralErrorRate), metrics.RateFromPercent(threshold))
	fmt.Fprintf(&b, "Defects %d: measurement %d, knitting %d, toe %d, other %d",
		entry.TotalDefects, entry.MeasurementError, entry.KnittingError, entry.ToeDefect, entry.OtherDefect)
	return b.String()
}

// FormatSummary renders the production summary report.
func FormatSummary(s models.ProductionSummary) string {
	var b strings.Builder
	b.WriteString("Production summary")
	if !s.CalculatedAt.IsZero() {
		fmt.Fprintf(&b, " (%s)", s.CalculatedAt.Format("2006-01-02 15:04"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Table count %d (%.2f dozen)\n", s.TotalTableCount, s.TotalTableCountDozen)
	fmt.Fprintf(&b, "Errors %d (%.2f dozen), overall %s\n", s.TotalErrorCount, s.TotalErrorCountDozen, metrics.RateFromPercent(s.OverallErrorRate))
	fmt.Fprintf(&b, "Measurement %d %s\n", s.MeasurementErrorCount, metrics.RateFromPercent(s.MeasurementErrorRate))
	fmt.Fprintf(&b, "Knitting %d %s\n", s.KnittingErrorCount, metrics.RateFromPercent(s.KnittingErrorRate))
	fmt.Fprintf(&b, "Toe %d %s\n", s.ToeDefectCount, metrics.RateFromPercent(s.ToeDefectRate))
	fmt.Fprintf(&b, "Other %d %s", s.OtherDefectCount, metrics.RateFromPercent(s.OtherDefectRate))
	return b.String()
}
