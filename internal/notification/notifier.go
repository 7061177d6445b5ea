// Package notification delivers trading alerts to external channels
// (ntfy.sh, Telegram).
package notification

import (
	"context"
	"fmt"
	"log"

	"trade-assistant/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// SignalAlert formats an actionable verdict as a trading alert.
func SignalAlert(v model.SignalVerdict) Alert {
	return Alert{
		Level: AlertInfo,
		Title: "Trading Alert",
		Message: fmt.Sprintf("%s signal on %s at ₹%.2f. Target: ₹%.2f, SL: ₹%.2f. %s",
			v.Signal, v.Symbol, v.EntryPrice, v.Target, v.StopLoss, v.Notes),
	}
}

// LogNotifier logs alerts instead of delivering them (development use).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to several notifiers, returning the first error
// after attempting all of them.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var firstErr error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
