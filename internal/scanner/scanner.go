// Package scanner drives the watchlist scan: fetch indicators, decide,
// then log and alert actionable verdicts, one symbol at a time.
//
// A fault on one symbol never aborts the scan. Fetch failures are
// recorded in the report with an explicit marker instead of being
// silently dropped; log and alert failures are best-effort and leave
// the verdict in the results.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trade-assistant/internal/logger"
	"trade-assistant/internal/metrics"
	"trade-assistant/internal/model"
	"trade-assistant/internal/notification"
	"trade-assistant/internal/signal"
	"trade-assistant/internal/watchlist"
)

// ErrUnknownSymbol is returned by Evaluate for symbols not on the watchlist.
var ErrUnknownSymbol = errors.New("symbol not in watchlist")

const defaultSymbolTimeout = 10 * time.Second

// MarketData supplies indicator snapshots for watchlist entries.
type MarketData interface {
	FetchSnapshot(ctx context.Context, entry model.WatchlistEntry) (model.IndicatorSnapshot, error)
}

// TradeLogger persists actionable verdicts.
type TradeLogger interface {
	Append(ctx context.Context, e model.TradeLogEntry) error
}

// Stage identifies where in the per-symbol pipeline a failure occurred.
type Stage string

const (
	StageFetch Stage = "fetch"
	StageLog   Stage = "log"
	StageAlert Stage = "alert"
)

// Failure records one per-symbol fault with its pipeline stage.
type Failure struct {
	Symbol string `json:"symbol"`
	Stage  Stage  `json:"stage"`
	Err    string `json:"error"`
}

// Report is the outcome of one full watchlist scan. Verdicts preserve
// watchlist order and contain only symbols whose indicator+decision
// pipeline completed; every fault appears in Failures.
type Report struct {
	Verdicts  []model.SignalVerdict `json:"results"`
	Failures  []Failure             `json:"failures,omitempty"`
	Processed int                   `json:"processed"`
	Duration  time.Duration         `json:"-"`
}

// Config wires the scanner's collaborators. TradeLog, Notifier and
// Metrics may be nil; the scan then skips the corresponding side effect.
type Config struct {
	Watchlist *watchlist.Store
	Market    MarketData
	TradeLog  TradeLogger
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics

	// SymbolTimeout bounds the market data fetch per symbol.
	SymbolTimeout time.Duration
}

// Scanner sequences indicator computation, decision-making, persistence
// and notification across the watchlist.
type Scanner struct {
	cfg Config

	// OnReport, when set, receives every completed scan report.
	// Used for live streaming and health bookkeeping.
	OnReport func(Report)
}

// New creates a Scanner. Watchlist and Market are required.
func New(cfg Config) *Scanner {
	if cfg.SymbolTimeout <= 0 {
		cfg.SymbolTimeout = defaultSymbolTimeout
	}
	return &Scanner{cfg: cfg}
}

// Snapshot fetches the current indicator snapshot for one watchlist
// symbol without deciding on it.
func (s *Scanner) Snapshot(ctx context.Context, symbol string) (model.IndicatorSnapshot, error) {
	var entry model.WatchlistEntry
	found := false
	for _, e := range s.cfg.Watchlist.List() {
		if e.Symbol == symbol {
			entry = e
			found = true
			break
		}
	}
	if !found {
		return model.IndicatorSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return s.fetch(ctx, entry)
}

// Evaluate fetches indicators and produces a verdict for one symbol,
// without logging or alerting.
func (s *Scanner) Evaluate(ctx context.Context, symbol string) (model.SignalVerdict, error) {
	snap, err := s.Snapshot(ctx, symbol)
	if err != nil {
		return model.SignalVerdict{}, err
	}
	return signal.Decide(snap), nil
}

// ScanAll evaluates every watchlist entry in order. Runs to completion
// over the snapshot taken at call time; concurrent watchlist mutation
// does not disturb the iteration.
func (s *Scanner) ScanAll(ctx context.Context) Report {
	start := time.Now()
	entries := s.cfg.Watchlist.Snapshot()

	report := Report{}
	for _, entry := range entries {
		scanCtx := logger.WithTraceID(ctx, logger.GenerateTraceID(entry.Symbol, start))
		s.scanOne(scanCtx, entry, &report)
	}

	report.Duration = time.Since(start)
	if m := s.cfg.Metrics; m != nil {
		m.ScansTotal.Inc()
		m.ScanDuration.Observe(report.Duration.Seconds())
	}
	slog.Info("scan complete",
		slog.Int("watchlist", len(entries)),
		slog.Int("processed", report.Processed),
		slog.Int("failures", len(report.Failures)),
		slog.Duration("took", report.Duration),
	)

	if s.OnReport != nil {
		s.OnReport(report)
	}
	return report
}

// scanOne runs the fetch → decide → log → alert pipeline for one entry,
// appending to the report. Faults are recorded, never propagated.
func (s *Scanner) scanOne(ctx context.Context, entry model.WatchlistEntry, report *Report) {
	snap, err := s.fetch(ctx, entry)
	if err != nil {
		s.recordFailure(ctx, report, entry.Symbol, StageFetch, err)
		return
	}

	verdict := signal.Decide(snap)
	report.Verdicts = append(report.Verdicts, verdict)
	report.Processed++

	if m := s.cfg.Metrics; m != nil {
		m.SymbolsScanned.Inc()
		m.SignalsTotal.WithLabelValues(string(verdict.Signal)).Inc()
	}

	if !verdict.Actionable() {
		return
	}
	slog.Info("actionable signal",
		append([]any{
			slog.String("symbol", verdict.Symbol),
			slog.String("signal", string(verdict.Signal)),
			slog.Float64("entry", verdict.EntryPrice),
			slog.Float64("target", verdict.Target),
			slog.Float64("stop", verdict.StopLoss),
		}, logger.LogWithTrace(ctx)...)...,
	)

	// Log first, then alert; each best-effort.
	if s.cfg.TradeLog != nil {
		if err := s.cfg.TradeLog.Append(ctx, model.FromVerdict(verdict)); err != nil {
			s.recordFailure(ctx, report, entry.Symbol, StageLog, err)
		} else if s.cfg.Metrics != nil {
			s.cfg.Metrics.TradeLogAppends.Inc()
		}
	}
	if s.cfg.Notifier != nil {
		if err := s.cfg.Notifier.Send(ctx, notification.SignalAlert(verdict)); err != nil {
			s.recordFailure(ctx, report, entry.Symbol, StageAlert, err)
		} else if s.cfg.Metrics != nil {
			s.cfg.Metrics.AlertsSent.Inc()
		}
	}
}

func (s *Scanner) fetch(ctx context.Context, entry model.WatchlistEntry) (model.IndicatorSnapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.SymbolTimeout)
	defer cancel()

	start := time.Now()
	snap, err := s.cfg.Market.FetchSnapshot(fetchCtx, entry)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	return snap, err
}

func (s *Scanner) recordFailure(ctx context.Context, report *Report, symbol string, stage Stage, err error) {
	report.Failures = append(report.Failures, Failure{
		Symbol: symbol,
		Stage:  stage,
		Err:    err.Error(),
	})
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ScanFailures.WithLabelValues(string(stage)).Inc()
	}
	slog.Warn("scan fault",
		append([]any{
			slog.String("symbol", symbol),
			slog.String("stage", string(stage)),
			slog.String("err", err.Error()),
		}, logger.LogWithTrace(ctx)...)...,
	)
}
