// Package notification delivers run-completed alerts to external channels:
// logs, webhooks, Telegram, Redis Pub/Sub and Kafka.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trading-backtestv1/internal/model"
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
	Level   AlertLevel     `json:"level"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Key     string         `json:"key,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
	Time    time.Time      `json:"ts"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// RunCompleted builds the alert sent after a backtest finishes. A losing run
// is raised to WARNING.
func RunCompleted(strategyName string, res model.BacktestResult) Alert {
	level := AlertInfo
	if res.TotalReturn < 0 {
		level = AlertWarning
	}
	return Alert{
		Level: level,
		Title: fmt.Sprintf("Backtest %s %s/%s", strategyName, res.Symbol, res.Timeframe),
		Message: fmt.Sprintf("%d trades, win rate %.1f%%, profit factor %.2f, max drawdown %.2f%%, return %+.2f%%",
			res.TotalTrades, res.WinRate*100, res.ProfitFactor, res.MaxDrawdown, res.TotalReturn),
		Key: res.RunID,
		Fields: map[string]any{
			"run_id":        res.RunID,
			"strategy_id":   res.StrategyID,
			"symbol":        res.Symbol,
			"timeframe":     res.Timeframe,
			"total_trades":  res.TotalTrades,
			"win_rate":      res.WinRate,
			"profit_factor": res.ProfitFactor,
			"max_drawdown":  res.MaxDrawdown,
			"final_equity":  res.FinalEquity,
		},
		Time: time.Now().UTC(),
	}
}

// LogNotifier logs alerts; it is the default when nothing else is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-based notifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	level := slog.LevelInfo
	switch alert.Level {
	case AlertWarning:
		level = slog.LevelWarn
	case AlertCritical:
		level = slog.LevelError
	}
	n.logger.Log(ctx, level, alert.Title, "message", alert.Message, "key", alert.Key)
	return nil
}

// Multi fans an alert out to every registered notifier. One failing backend
// does not stop the others; the errors are joined.
type Multi struct {
	names     []string
	notifiers []Notifier

	// OnResult, when set, is called once per backend after each Send.
	OnResult func(name string, err error)
}

// NewMulti creates an empty fan-out notifier.
func NewMulti() *Multi {
	return &Multi{}
}

// Add registers a named backend.
func (m *Multi) Add(name string, n Notifier) *Multi {
	m.names = append(m.names, name)
	m.notifiers = append(m.notifiers, n)
	return m
}

// Len reports the number of registered backends.
func (m *Multi) Len() int { return len(m.notifiers) }

func (m *Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for i, n := range m.notifiers {
		err := n.Send(ctx, alert)
		if m.OnResult != nil {
			m.OnResult(m.names[i], err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.names[i], err))
		}
	}
	return errors.Join(errs...)
}
