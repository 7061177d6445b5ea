// Package marketdata turns Angel One SmartAPI quotes and candles into
// indicator snapshots for the scanner.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"trade-assistant/internal/indicator"
	"trade-assistant/internal/markethours"
	"trade-assistant/internal/model"
	"trade-assistant/pkg/smartconnect"
)

var (
	// ErrNoCandles means the candle query returned an empty series.
	ErrNoCandles = errors.New("no candle data returned")
	// ErrNoPriorSession means no completed daily bar exists before today.
	ErrNoPriorSession = errors.New("no prior session candle available")
	// ErrScripNotFound means token resolution found no match.
	ErrScripNotFound = errors.New("scrip not found")
)

const (
	defaultExchange  = "NSE"
	defaultInterval  = "FIVE_MINUTE"
	defaultRSIPeriod = indicator.DefaultRSIPeriod

	// apiTimeFormat is the exchange-local timestamp format the candle API expects.
	apiTimeFormat = "2006-01-02 15:04"

	// dailyLookbackDays bounds the ONE_DAY query used for the prior
	// session band; wide enough to cross any holiday cluster.
	dailyLookbackDays = 10
)

// Config configures the market data client.
type Config struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string

	Exchange  string // default NSE
	Interval  string // candle interval, default FIVE_MINUTE
	RSIPeriod int    // default 14
}

// Client fetches quotes and candles from SmartAPI and computes indicator
// snapshots. Login happens lazily and is re-done after a TokenException.
type Client struct {
	cfg Config
	sc  *smartconnect.SmartConnect

	mu       sync.Mutex
	loggedIn bool

	// now is stubbed in tests.
	now func() time.Time
}

// New creates a Client around an existing SmartConnect instance. Pass
// nil to construct one from the config.
func New(cfg Config, sc *smartconnect.SmartConnect) *Client {
	if cfg.Exchange == "" {
		cfg.Exchange = defaultExchange
	}
	if cfg.Interval == "" {
		cfg.Interval = defaultInterval
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = defaultRSIPeriod
	}
	if sc == nil {
		sc = smartconnect.NewSmartConnect(smartconnect.Config{APIKey: cfg.APIKey})
	}

	c := &Client{cfg: cfg, sc: sc, now: time.Now}
	sc.SessionExpiryHook = func() {
		c.mu.Lock()
		c.loggedIn = false
		c.mu.Unlock()
		log.Printf("[marketdata] session expired, will re-login on next request")
	}
	return c
}

// SessionOK reports whether a broker session is currently held.
func (c *Client) SessionOK() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// EnsureSession logs in if no session is held. The TOTP code is derived
// from the configured secret at call time.
func (c *Client) EnsureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}

	code, err := totp.GenerateCode(c.cfg.TOTPSecret, c.now())
	if err != nil {
		return fmt.Errorf("generate totp: %w", err)
	}
	if _, err := c.sc.GenerateSession(ctx, c.cfg.ClientCode, c.cfg.Password, code); err != nil {
		return fmt.Errorf("broker login: %w", err)
	}
	c.loggedIn = true
	log.Printf("[marketdata] broker session established for %s", c.cfg.ClientCode)
	return nil
}

// Logout terminates the broker session.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return nil
	}
	c.loggedIn = false
	_, err := c.sc.TerminateSession(ctx, c.cfg.ClientCode)
	return err
}

// FetchSnapshot assembles a full indicator snapshot for one watchlist
// entry: live price, intraday candles for RSI/VWAP, and the prior
// session's daily bar for the CPR band.
func (c *Client) FetchSnapshot(ctx context.Context, entry model.WatchlistEntry) (model.IndicatorSnapshot, error) {
	if err := c.EnsureSession(ctx); err != nil {
		return model.IndicatorSnapshot{}, err
	}

	ltp, err := c.sc.LTP(ctx, c.cfg.Exchange, entry.Symbol, entry.InstrumentToken)
	if err != nil {
		return model.IndicatorSnapshot{}, fmt.Errorf("ltp %s: %w", entry.Symbol, err)
	}

	now := c.now()
	from, to := intradayWindow(now)
	intraday, err := c.sc.GetCandleData(ctx, smartconnect.CandleRequest{
		Exchange:    c.cfg.Exchange,
		SymbolToken: entry.InstrumentToken,
		Interval:    c.cfg.Interval,
		From:        from.Format(apiTimeFormat),
		To:          to.Format(apiTimeFormat),
	})
	if err != nil {
		return model.IndicatorSnapshot{}, fmt.Errorf("intraday candles %s: %w", entry.Symbol, err)
	}
	if len(intraday) == 0 {
		return model.IndicatorSnapshot{}, fmt.Errorf("%w: %s intraday", ErrNoCandles, entry.Symbol)
	}

	daily, err := c.sc.GetCandleData(ctx, smartconnect.CandleRequest{
		Exchange:    c.cfg.Exchange,
		SymbolToken: entry.InstrumentToken,
		Interval:    "ONE_DAY",
		From:        now.In(markethours.IST).AddDate(0, 0, -dailyLookbackDays).Format(apiTimeFormat),
		To:          to.Format(apiTimeFormat),
	})
	if err != nil {
		return model.IndicatorSnapshot{}, fmt.Errorf("daily candles %s: %w", entry.Symbol, err)
	}
	band, err := priorSessionBand(daily, now)
	if err != nil {
		return model.IndicatorSnapshot{}, fmt.Errorf("%s: %w", entry.Symbol, err)
	}

	return buildSnapshot(entry.Symbol, ltp.LTP, intraday, band, c.cfg.RSIPeriod, now), nil
}

// ResolveToken finds the instrument token for a trading symbol. An exact
// symbol or symbol-EQ match wins; otherwise the first result is used.
func (c *Client) ResolveToken(ctx context.Context, symbol string) (model.WatchlistEntry, error) {
	if err := c.EnsureSession(ctx); err != nil {
		return model.WatchlistEntry{}, err
	}
	matches, err := c.sc.SearchScrip(ctx, c.cfg.Exchange, symbol)
	if err != nil {
		return model.WatchlistEntry{}, fmt.Errorf("search %s: %w", symbol, err)
	}
	if len(matches) == 0 {
		return model.WatchlistEntry{}, fmt.Errorf("%w: %s", ErrScripNotFound, symbol)
	}
	best := matches[0]
	for _, m := range matches {
		if m.TradingSymbol == symbol || m.TradingSymbol == symbol+"-EQ" {
			best = m
			break
		}
	}
	return model.WatchlistEntry{Symbol: symbol, InstrumentToken: best.SymbolToken}, nil
}

// intradayWindow returns the candle query window for RSI/VWAP. During a
// trading session this is open→now; outside one it is the most recent
// session's full open→close.
func intradayWindow(now time.Time) (time.Time, time.Time) {
	ist := now.In(markethours.IST)
	open := time.Date(ist.Year(), ist.Month(), ist.Day(),
		markethours.OpenHour, markethours.OpenMinute, 0, 0, markethours.IST)

	if markethours.IsTradingDay(ist) && ist.After(open) {
		if markethours.IsMarketOpen(ist) {
			return open, ist
		}
		// After close on a trading day: use today's full session.
		return open, markethours.TodayClose(ist)
	}

	// Before open, weekend or holiday: walk back to the last trading day.
	d := ist.AddDate(0, 0, -1)
	for i := 0; i < 10; i++ {
		if markethours.IsTradingDay(d) {
			break
		}
		d = d.AddDate(0, 0, -1)
	}
	from := time.Date(d.Year(), d.Month(), d.Day(),
		markethours.OpenHour, markethours.OpenMinute, 0, 0, markethours.IST)
	to := time.Date(d.Year(), d.Month(), d.Day(),
		markethours.CloseHour, markethours.CloseMinute, 0, 0, markethours.IST)
	return from, to
}

// priorSessionBand picks the latest daily candle strictly before today
// (IST) and returns its high/low/close.
func priorSessionBand(daily []smartconnect.Candle, now time.Time) (model.SessionBand, error) {
	ist := now.In(markethours.IST)
	today := time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, markethours.IST)

	for i := len(daily) - 1; i >= 0; i-- {
		if daily[i].Timestamp.In(markethours.IST).Before(today) {
			return model.SessionBand{
				High:  daily[i].High,
				Low:   daily[i].Low,
				Close: daily[i].Close,
			}, nil
		}
	}
	return model.SessionBand{}, ErrNoPriorSession
}

func buildSnapshot(symbol string, ltp float64, intraday []smartconnect.Candle, band model.SessionBand, rsiPeriod int, ts time.Time) model.IndicatorSnapshot {
	closes := make([]float64, len(intraday))
	volumes := make([]float64, len(intraday))
	for i, c := range intraday {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	cpr := indicator.CPRFromSession(band)
	return model.IndicatorSnapshot{
		Symbol:    symbol,
		RSI:       indicator.RSI(closes, rsiPeriod),
		VWAP:      indicator.VWAP(closes, volumes),
		Pivot:     cpr.Pivot,
		BC:        cpr.BC,
		TC:        cpr.TC,
		LTP:       ltp,
		Timestamp: ts.UTC(),
	}
}
