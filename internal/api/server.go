// Package api exposes the assistant's HTTP surface: watchlist CRUD,
// on-demand indicator and signal evaluation, full scans, the trade log
// and a WebSocket stream of scan reports.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"trade-assistant/internal/metrics"
	"trade-assistant/internal/model"
	"trade-assistant/internal/scanner"
	"trade-assistant/internal/watchlist"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// setCORS sets CORS headers for REST endpoints.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// TradeLogReader reads back persisted trade ideas.
type TradeLogReader interface {
	Recent(ctx context.Context, limit int) ([]model.TradeLogEntry, error)
}

// TokenResolver maps a trading symbol to its instrument token. Optional;
// without it watchlist additions must carry an explicit token.
type TokenResolver interface {
	ResolveToken(ctx context.Context, symbol string) (model.WatchlistEntry, error)
}

// Config wires the API server's collaborators.
type Config struct {
	Addr      string
	Scanner   *scanner.Scanner
	Watchlist *watchlist.Store
	TradeLog  TradeLogReader
	Resolver  TokenResolver
	Health    *metrics.HealthStatus
	Hub       *Hub
}

// Server is the assistant's HTTP front end.
type Server struct {
	cfg Config
	srv *http.Server
}

// NewServer builds the server and its routes.
func NewServer(cfg Config) *Server {
	if cfg.Hub == nil {
		cfg.Hub = NewHub()
	}
	s := &Server{cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/watchlist", s.handleWatchlist)
	mux.HandleFunc("/api/indicators", s.handleIndicators)
	mux.HandleFunc("/api/signal", s.handleSignal)
	mux.HandleFunc("/api/scan-all", s.handleScanAll)
	mux.HandleFunc("/api/trade-log", s.handleTradeLog)
	if cfg.Health != nil {
		mux.Handle("/api/health", cfg.Health)
	}
	mux.HandleFunc("/ws", s.handleWS)

	s.srv = &http.Server{Addr: cfg.Addr, Handler: mux}
	return s
}

// Handler exposes the routed mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Hub returns the WebSocket hub for wiring into the scanner.
func (s *Server) Hub() *Hub { return s.cfg.Hub }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[api] server listening on %s", s.cfg.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// watchlistMutation is the POST /api/watchlist body. Additions without a
// token are resolved via the broker's scrip search when available.
type watchlistMutation struct {
	Add    []model.WatchlistEntry `json:"add,omitempty"`
	Remove []string               `json:"remove,omitempty"`
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	switch r.Method {
	case http.MethodOptions:
		return
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"watchlist": s.cfg.Watchlist.List()})
	case http.MethodPost:
		var req watchlistMutation
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		add := make([]model.WatchlistEntry, 0, len(req.Add))
		for _, e := range req.Add {
			if e.Symbol == "" {
				writeError(w, http.StatusBadRequest, "entry missing symbol")
				return
			}
			if e.InstrumentToken == "" {
				if s.cfg.Resolver == nil {
					writeError(w, http.StatusBadRequest, "entry missing token: "+e.Symbol)
					return
				}
				resolved, err := s.cfg.Resolver.ResolveToken(r.Context(), e.Symbol)
				if err != nil {
					writeError(w, http.StatusBadGateway, "resolve "+e.Symbol+": "+err.Error())
					return
				}
				e = resolved
			}
			add = append(add, e)
		}
		added := s.cfg.Watchlist.Add(add...)
		removed := s.cfg.Watchlist.Remove(req.Remove...)
		writeJSON(w, http.StatusOK, map[string]any{
			"added":     added,
			"removed":   removed,
			"watchlist": s.cfg.Watchlist.List(),
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol parameter")
		return
	}
	snap, err := s.cfg.Scanner.Snapshot(r.Context(), symbol)
	if err != nil {
		s.scanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "body must carry a symbol")
		return
	}
	verdict, err := s.cfg.Scanner.Evaluate(r.Context(), req.Symbol)
	if err != nil {
		s.scanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleScanAll(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	report := s.cfg.Scanner.ScanAll(r.Context())
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleTradeLog(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cfg.TradeLog == nil {
		writeError(w, http.StatusServiceUnavailable, "trade log not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.cfg.TradeLog.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[api] ws upgrade error: %v", err)
		return
	}
	s.cfg.Hub.handleConn(conn)
}

func (s *Server) scanError(w http.ResponseWriter, err error) {
	if errors.Is(err, scanner.ErrUnknownSymbol) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}
