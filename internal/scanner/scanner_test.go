package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-assistant/internal/model"
	"trade-assistant/internal/notification"
	"trade-assistant/internal/watchlist"
)

// fakeMarket serves canned snapshots and fails selected symbols.
type fakeMarket struct {
	snaps map[string]model.IndicatorSnapshot
	fail  map[string]error
	calls []string
}

func (f *fakeMarket) FetchSnapshot(ctx context.Context, entry model.WatchlistEntry) (model.IndicatorSnapshot, error) {
	f.calls = append(f.calls, entry.Symbol)
	if err, ok := f.fail[entry.Symbol]; ok {
		return model.IndicatorSnapshot{}, err
	}
	return f.snaps[entry.Symbol], nil
}

type fakeTradeLog struct {
	entries []model.TradeLogEntry
	err     error
}

func (f *fakeTradeLog) Append(ctx context.Context, e model.TradeLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

type fakeNotifier struct {
	alerts []notification.Alert
	err    error
}

func (f *fakeNotifier) Send(ctx context.Context, a notification.Alert) error {
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, a)
	return nil
}

func buySnapshot(symbol string) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Symbol:    symbol,
		RSI:       25,
		VWAP:      100,
		Pivot:     102,
		BC:        95,
		TC:        105,
		LTP:       110,
		Timestamp: time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC),
	}
}

func holdSnapshot(symbol string) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Symbol:    symbol,
		RSI:       50,
		VWAP:      100,
		Pivot:     100,
		BC:        99,
		TC:        101,
		LTP:       100,
		Timestamp: time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC),
	}
}

func newTestWatchlist(t *testing.T, symbols ...string) *watchlist.Store {
	t.Helper()
	entries := make([]model.WatchlistEntry, 0, len(symbols))
	for i, s := range symbols {
		entries = append(entries, model.WatchlistEntry{Symbol: s, InstrumentToken: string(rune('1' + i))})
	}
	return watchlist.NewStore(nil, entries)
}

func TestScanAll_FaultIsolation(t *testing.T) {
	market := &fakeMarket{
		snaps: map[string]model.IndicatorSnapshot{
			"RELIANCE": holdSnapshot("RELIANCE"),
			"INFY":     holdSnapshot("INFY"),
		},
		fail: map[string]error{
			"TCS": errors.New("upstream timeout"),
		},
	}
	s := New(Config{
		Watchlist: newTestWatchlist(t, "RELIANCE", "TCS", "INFY"),
		Market:    market,
	})

	report := s.ScanAll(context.Background())

	if report.Processed != 2 {
		t.Fatalf("processed = %d, want 2", report.Processed)
	}
	if len(report.Verdicts) != 2 {
		t.Fatalf("verdicts = %d, want 2", len(report.Verdicts))
	}
	// Watchlist order preserved, failed symbol skipped.
	if report.Verdicts[0].Symbol != "RELIANCE" || report.Verdicts[1].Symbol != "INFY" {
		t.Errorf("verdict order wrong: %s, %s", report.Verdicts[0].Symbol, report.Verdicts[1].Symbol)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(report.Failures))
	}
	f := report.Failures[0]
	if f.Symbol != "TCS" || f.Stage != StageFetch {
		t.Errorf("failure = %+v, want TCS at fetch", f)
	}
	// All three symbols were attempted despite the middle one failing.
	if len(market.calls) != 3 {
		t.Errorf("fetch calls = %d, want 3", len(market.calls))
	}
}

func TestScanAll_ActionableVerdictLogsAndAlerts(t *testing.T) {
	tlog := &fakeTradeLog{}
	notif := &fakeNotifier{}
	s := New(Config{
		Watchlist: newTestWatchlist(t, "RELIANCE"),
		Market:    &fakeMarket{snaps: map[string]model.IndicatorSnapshot{"RELIANCE": buySnapshot("RELIANCE")}},
		TradeLog:  tlog,
		Notifier:  notif,
	})

	report := s.ScanAll(context.Background())

	if len(report.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}
	if len(tlog.entries) != 1 {
		t.Fatalf("trade log entries = %d, want 1", len(tlog.entries))
	}
	e := tlog.entries[0]
	if e.Symbol != "RELIANCE" || e.Signal != model.SignalBuy || e.Status != model.TradeStatusOpen {
		t.Errorf("unexpected trade log entry %+v", e)
	}
	if len(notif.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(notif.alerts))
	}
}

func TestScanAll_HoldSkipsSideEffects(t *testing.T) {
	tlog := &fakeTradeLog{}
	notif := &fakeNotifier{}
	s := New(Config{
		Watchlist: newTestWatchlist(t, "TCS"),
		Market:    &fakeMarket{snaps: map[string]model.IndicatorSnapshot{"TCS": holdSnapshot("TCS")}},
		TradeLog:  tlog,
		Notifier:  notif,
	})

	report := s.ScanAll(context.Background())

	if len(report.Verdicts) != 1 || report.Verdicts[0].Signal != model.SignalHold {
		t.Fatalf("expected one HOLD verdict, got %+v", report.Verdicts)
	}
	if len(tlog.entries) != 0 || len(notif.alerts) != 0 {
		t.Error("HOLD verdicts must not log or alert")
	}
}

func TestScanAll_LogFailureStillAlerts(t *testing.T) {
	tlog := &fakeTradeLog{err: errors.New("disk full")}
	notif := &fakeNotifier{}
	s := New(Config{
		Watchlist: newTestWatchlist(t, "RELIANCE"),
		Market:    &fakeMarket{snaps: map[string]model.IndicatorSnapshot{"RELIANCE": buySnapshot("RELIANCE")}},
		TradeLog:  tlog,
		Notifier:  notif,
	})

	report := s.ScanAll(context.Background())

	// Verdict survives, log failure is recorded, alert still goes out.
	if len(report.Verdicts) != 1 {
		t.Fatalf("verdicts = %d, want 1", len(report.Verdicts))
	}
	if len(report.Failures) != 1 || report.Failures[0].Stage != StageLog {
		t.Fatalf("expected one log-stage failure, got %+v", report.Failures)
	}
	if len(notif.alerts) != 1 {
		t.Error("alert must still be attempted after log failure")
	}
}

func TestScanAll_OnReportHook(t *testing.T) {
	s := New(Config{
		Watchlist: newTestWatchlist(t, "TCS"),
		Market:    &fakeMarket{snaps: map[string]model.IndicatorSnapshot{"TCS": holdSnapshot("TCS")}},
	})

	var got *Report
	s.OnReport = func(r Report) { got = &r }

	s.ScanAll(context.Background())
	if got == nil {
		t.Fatal("OnReport not invoked")
	}
	if got.Processed != 1 {
		t.Errorf("hook report processed = %d, want 1", got.Processed)
	}
}

func TestEvaluate(t *testing.T) {
	s := New(Config{
		Watchlist: newTestWatchlist(t, "RELIANCE"),
		Market:    &fakeMarket{snaps: map[string]model.IndicatorSnapshot{"RELIANCE": buySnapshot("RELIANCE")}},
	})

	v, err := s.Evaluate(context.Background(), "RELIANCE")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if v.Signal != model.SignalBuy {
		t.Errorf("signal = %s, want BUY", v.Signal)
	}

	if _, err := s.Evaluate(context.Background(), "NOSUCH"); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("expected ErrUnknownSymbol, got %v", err)
	}
}
