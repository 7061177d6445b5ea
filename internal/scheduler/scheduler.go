// Package scheduler drives recurring scans on IST cron schedules:
// a pre-market warmup, interval scans while the session is open, and an
// end-of-day summary.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"trade-assistant/internal/markethours"
	"trade-assistant/internal/metrics"
	"trade-assistant/internal/notification"
	"trade-assistant/internal/scanner"
)

// Default cron specs, evaluated in IST.
const (
	DefaultPremarketSpec = "0 9 * * 1-5"      // 09:00, before open
	DefaultLiveSpec      = "*/5 9-15 * * 1-5" // every 5 min across the session
	DefaultEODSpec       = "45 15 * * 1-5"    // 15:45, after close
)

// TradeCounter reports trades logged since a point in time, for the
// end-of-day summary.
type TradeCounter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// Config wires the scheduler. Notifier, TradeLog and Health are optional.
type Config struct {
	Scanner  *scanner.Scanner
	Notifier notification.Notifier
	TradeLog TradeCounter
	Health   *metrics.HealthStatus

	PremarketSpec string
	LiveSpec      string
	EODSpec       string
}

// Scheduler owns the cron instance and the three recurring jobs.
type Scheduler struct {
	cfg  Config
	cron *cron.Cron

	// now is stubbed in tests.
	now func() time.Time
}

// New builds a Scheduler with jobs registered but not yet running.
func New(cfg Config) (*Scheduler, error) {
	if cfg.PremarketSpec == "" {
		cfg.PremarketSpec = DefaultPremarketSpec
	}
	if cfg.LiveSpec == "" {
		cfg.LiveSpec = DefaultLiveSpec
	}
	if cfg.EODSpec == "" {
		cfg.EODSpec = DefaultEODSpec
	}

	s := &Scheduler{
		cfg:  cfg,
		cron: cron.New(cron.WithLocation(markethours.IST)),
		now:  time.Now,
	}

	jobs := []struct {
		spec string
		name string
		run  func()
	}{
		{cfg.PremarketSpec, "premarket", s.runPremarket},
		{cfg.LiveSpec, "live", s.runLive},
		{cfg.EODSpec, "eod", s.runEOD},
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, j.run); err != nil {
			return nil, fmt.Errorf("register %s job (%q): %w", j.name, j.spec, err)
		}
	}
	return s, nil
}

// Start launches the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[scheduler] started: premarket=%q live=%q eod=%q",
		s.cfg.PremarketSpec, s.cfg.LiveSpec, s.cfg.EODSpec)
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[scheduler] stopped")
}

// runPremarket does one warmup scan before the session opens so the
// broker session and first signals are ready at the bell.
func (s *Scheduler) runPremarket() {
	now := s.now()
	if !markethours.IsTradingDay(now) {
		log.Println("[scheduler] premarket: not a trading day, skipping")
		return
	}
	log.Println("[scheduler] premarket scan starting")
	report := s.scan()
	s.notify(notification.AlertInfo, "Pre-market scan",
		fmt.Sprintf("Scanned %d symbols, %d actionable, %d failures. %s",
			report.Processed, actionableCount(report), len(report.Failures),
			markethours.StatusString(now)))
}

// runLive scans on the configured interval, but only while the market
// is actually open; the cron spec alone overshoots the session edges.
func (s *Scheduler) runLive() {
	now := s.now()
	if !markethours.IsMarketOpen(now) {
		return
	}
	s.scan()
}

// runEOD sends the day's summary after close.
func (s *Scheduler) runEOD() {
	now := s.now()
	if !markethours.IsTradingDay(now) {
		return
	}

	ist := now.In(markethours.IST)
	sessionStart := time.Date(ist.Year(), ist.Month(), ist.Day(),
		markethours.OpenHour, markethours.OpenMinute, 0, 0, markethours.IST)

	trades := 0
	if s.cfg.TradeLog != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := s.cfg.TradeLog.CountSince(ctx, sessionStart)
		if err != nil {
			log.Printf("[scheduler] eod: trade count failed: %v", err)
		} else {
			trades = n
		}
	}
	s.notify(notification.AlertInfo, "End of day",
		fmt.Sprintf("Session done. %d trade ideas logged today. %s",
			trades, markethours.StatusString(now)))
}

func (s *Scheduler) scan() scanner.Report {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report := s.cfg.Scanner.ScanAll(ctx)
	if s.cfg.Health != nil {
		s.cfg.Health.SetLastScanAt(s.now())
	}
	return report
}

func (s *Scheduler) notify(level notification.AlertLevel, title, message string) {
	if s.cfg.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.cfg.Notifier.Send(ctx, notification.Alert{
		Level:   level,
		Title:   title,
		Message: message,
	}); err != nil {
		log.Printf("[scheduler] notify failed: %v", err)
	}
}

func actionableCount(r scanner.Report) int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Actionable() {
			n++
		}
	}
	return n
}
