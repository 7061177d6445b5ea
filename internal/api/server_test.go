package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"trade-assistant/internal/model"
	"trade-assistant/internal/scanner"
	"trade-assistant/internal/watchlist"
)

type fakeMarket struct {
	snaps map[string]model.IndicatorSnapshot
}

func (f *fakeMarket) FetchSnapshot(ctx context.Context, entry model.WatchlistEntry) (model.IndicatorSnapshot, error) {
	return f.snaps[entry.Symbol], nil
}

type fakeTradeLog struct {
	entries []model.TradeLogEntry
}

func (f *fakeTradeLog) Recent(ctx context.Context, limit int) ([]model.TradeLogEntry, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

type fakeResolver struct{}

func (fakeResolver) ResolveToken(ctx context.Context, symbol string) (model.WatchlistEntry, error) {
	return model.WatchlistEntry{Symbol: symbol, InstrumentToken: "999"}, nil
}

func newTestServer(t *testing.T) (*Server, *watchlist.Store) {
	t.Helper()
	store := watchlist.NewStore(nil, []model.WatchlistEntry{
		{Symbol: "RELIANCE", InstrumentToken: "2885"},
	})
	market := &fakeMarket{snaps: map[string]model.IndicatorSnapshot{
		"RELIANCE": {
			Symbol: "RELIANCE",
			RSI:    25, VWAP: 100, Pivot: 102, BC: 95, TC: 105, LTP: 110,
			Timestamp: time.Date(2026, 4, 7, 10, 0, 0, 0, time.UTC),
		},
	}}
	sc := scanner.New(scanner.Config{Watchlist: store, Market: market})
	return NewServer(Config{
		Scanner:   sc,
		Watchlist: store,
		TradeLog:  &fakeTradeLog{entries: []model.TradeLogEntry{{Symbol: "TCS", Signal: model.SignalSell}}},
		Resolver:  fakeResolver{},
	}), store
}

func TestWatchlistGet(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watchlist", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Watchlist []model.WatchlistEntry `json:"watchlist"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Watchlist) != 1 || body.Watchlist[0].Symbol != "RELIANCE" {
		t.Errorf("unexpected watchlist %+v", body.Watchlist)
	}
}

func TestWatchlistMutation(t *testing.T) {
	srv, store := newTestServer(t)
	payload := `{"add":[{"symbol":"TCS","instrument_token":"11536"}],"remove":["RELIANCE"]}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/watchlist", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	entries := store.List()
	if len(entries) != 1 || entries[0].Symbol != "TCS" {
		t.Errorf("unexpected watchlist after mutation: %+v", entries)
	}
}

func TestWatchlistAddResolvesMissingToken(t *testing.T) {
	srv, store := newTestServer(t)
	payload := `{"add":[{"symbol":"INFY"}]}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/watchlist", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	for _, e := range store.List() {
		if e.Symbol == "INFY" {
			if e.InstrumentToken != "999" {
				t.Errorf("token not resolved: %+v", e)
			}
			return
		}
	}
	t.Error("INFY not added")
}

func TestIndicators(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/indicators?symbol=RELIANCE", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap model.IndicatorSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.RSI != 25 || snap.LTP != 110 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/indicators", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing symbol: status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/indicators?symbol=NOSUCH", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown symbol: status = %d, want 404", rec.Code)
	}
}

func TestSignal(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/signal", strings.NewReader(`{"symbol":"RELIANCE"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var v model.SignalVerdict
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v.Signal != model.SignalBuy {
		t.Errorf("signal = %s, want BUY", v.Signal)
	}
	if v.Target != 111.1 || v.StopLoss != 109.45 {
		t.Errorf("levels = %v/%v, want 111.1/109.45", v.Target, v.StopLoss)
	}
}

func TestScanAll(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan-all", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var report scanner.Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Processed != 1 || len(report.Verdicts) != 1 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestTradeLog(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trade-log?limit=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Entries []model.TradeLogEntry `json:"entries"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Entries) != 1 || body.Entries[0].Symbol != "TCS" {
		t.Errorf("unexpected entries %+v", body.Entries)
	}
}

func TestWSStreamsScanReports(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the hub to register the client before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv.Hub().BroadcastReport(scanner.Report{Processed: 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var envelope struct {
		Type   string         `json:"type"`
		Report scanner.Report `json:"report"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Type != "scan_report" || envelope.Report.Processed != 3 {
		t.Errorf("unexpected envelope %s", msg)
	}
}
