// Package smartconnect is a minimal Go client for the Angel One SmartAPI
// REST endpoints used by the scan pipeline: session management, LTP
// quotes, historical candles and scrip search. It mirrors the official
// SDK's routes and headers.
package smartconnect

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ---- Config & client ----

type Config struct {
	APIKey       string
	AccessToken  string
	RefreshToken string
	FeedToken    string
	UserID       string

	RootURL    string        // default: https://apiconnect.angelone.in
	Debug      bool
	Timeout    time.Duration // default: 7s
	ProxyURL   string        // optional HTTP proxy URL
	DisableSSL bool          // if true, InsecureSkipVerify

	ClientPublicIP string // defaults resolved from interfaces, else placeholder
	ClientLocalIP  string
	ClientMAC      string
}

type SmartConnect struct {
	apiKey       string
	accessToken  string
	refreshToken string
	feedToken    string
	userID       string

	rootURL string
	debug   bool

	httpClient *http.Client

	clientPublicIP string
	clientLocalIP  string
	clientMAC      string

	// SessionExpiryHook is invoked on a 403 TokenException so the owner
	// can re-login and retry.
	SessionExpiryHook func()
}

const defaultRoot = "https://apiconnect.angelone.in"

var routes = map[string]string{
	"api.login":        "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.logout":       "/rest/secure/angelbroking/user/v1/logout",
	"api.token":        "/rest/auth/angelbroking/jwt/v1/generateTokens",
	"api.user.profile": "/rest/secure/angelbroking/user/v1/getProfile",

	"api.ltp.data":     "/rest/secure/angelbroking/order/v1/getLtpData",
	"api.candle.data":  "/rest/secure/angelbroking/historical/v1/getCandleData",
	"api.search.scrip": "/rest/secure/angelbroking/order/v1/searchScrip",
}

// localIP finds a non-loopback IPv4 address of this host.
func localIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, address := range addrs {
		if ipNet, ok := address.(*net.IPNet); ok && !ipNet.IP.IsLoopback() {
			if ipNet.IP.To4() != nil {
				return ipNet.IP.String(), nil
			}
		}
	}
	return "", fmt.Errorf("no local IP found")
}

func macAddress() string {
	ifs, _ := net.Interfaces()
	for _, ifc := range ifs {
		if len(ifc.HardwareAddr) > 0 {
			return ifc.HardwareAddr.String()
		}
	}
	return "00:11:22:33:44:55"
}

// NewSmartConnect initializes the client.
func NewSmartConnect(cfg Config) *SmartConnect {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	if cfg.ClientLocalIP == "" {
		ip, err := localIP()
		if err != nil {
			ip = "127.0.0.1"
		}
		cfg.ClientLocalIP = ip
	}
	if cfg.ClientPublicIP == "" {
		// The API only requires the header to be present.
		cfg.ClientPublicIP = cfg.ClientLocalIP
	}
	if cfg.ClientMAC == "" {
		cfg.ClientMAC = macAddress()
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.DisableSSL,
		},
	}
	if cfg.ProxyURL != "" {
		if purl, err := url.Parse(cfg.ProxyURL); err == nil {
			tr.Proxy = http.ProxyURL(purl)
		}
	}

	return &SmartConnect{
		apiKey:         cfg.APIKey,
		accessToken:    cfg.AccessToken,
		refreshToken:   cfg.RefreshToken,
		feedToken:      cfg.FeedToken,
		userID:         cfg.UserID,
		rootURL:        strings.TrimRight(cfg.RootURL, "/"),
		debug:          cfg.Debug,
		httpClient:     &http.Client{Transport: tr, Timeout: cfg.Timeout},
		clientPublicIP: cfg.ClientPublicIP,
		clientLocalIP:  cfg.ClientLocalIP,
		clientMAC:      cfg.ClientMAC,
	}
}

// ---- Helpers ----

func (sc *SmartConnect) requestHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-ClientLocalIP", sc.clientLocalIP)
	h.Set("X-ClientPublicIP", sc.clientPublicIP)
	h.Set("X-MACAddress", sc.clientMAC)
	h.Set("X-PrivateKey", sc.apiKey)
	h.Set("X-UserType", "USER")
	h.Set("X-SourceID", "WEB")
	if sc.accessToken != "" {
		h.Set("Authorization", "Bearer "+sc.accessToken)
	}
	return h
}

func (sc *SmartConnect) doRequest(ctx context.Context, method, route string, params map[string]any) (map[string]any, error) {
	uri, ok := routes[route]
	if !ok {
		return nil, fmt.Errorf("unknown route: %s", route)
	}
	reqURL := sc.rootURL + uri

	var body io.Reader
	if method == http.MethodGet {
		if len(params) > 0 {
			q := url.Values{}
			for k, v := range params {
				q.Set(k, toString(v))
			}
			reqURL += "?" + q.Encode()
		}
	} else {
		if params == nil {
			params = map[string]any{}
		}
		b, _ := json.Marshal(params)
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, err
	}
	req.Header = sc.requestHeaders()

	if sc.debug {
		log.Printf("[smartconnect] request: %s %s params=%v", method, reqURL, params)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if sc.debug {
		log.Printf("[smartconnect] response: code=%d body=%s", resp.StatusCode, string(raw))
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	// API errors arrive as {"error_type": "TokenException", "message": "..."}
	if et, ok := out["error_type"].(string); ok && et != "" {
		if sc.SessionExpiryHook != nil && resp.StatusCode == http.StatusForbidden && et == "TokenException" {
			sc.SessionExpiryHook()
		}
		msg, _ := out["message"].(string)
		return out, fmt.Errorf("%s: %s", et, msg)
	}
	if st, ok := out["status"].(bool); ok && !st {
		msg, _ := out["message"].(string)
		return out, fmt.Errorf("api request failed: %s", msg)
	}
	return out, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func (sc *SmartConnect) get(ctx context.Context, route string, params map[string]any) (map[string]any, error) {
	return sc.doRequest(ctx, http.MethodGet, route, params)
}
func (sc *SmartConnect) post(ctx context.Context, route string, params map[string]any) (map[string]any, error) {
	return sc.doRequest(ctx, http.MethodPost, route, params)
}

// ---- Setters/Getters ----

func (sc *SmartConnect) SetUserID(id string)      { sc.userID = id }
func (sc *SmartConnect) GetUserID() string        { return sc.userID }
func (sc *SmartConnect) SetAccessToken(t string)  { sc.accessToken = t }
func (sc *SmartConnect) SetRefreshToken(t string) { sc.refreshToken = t }
func (sc *SmartConnect) SetFeedToken(t string)    { sc.feedToken = t }
func (sc *SmartConnect) GetFeedToken() string     { return sc.feedToken }

// ---- Session ----

// GenerateSession logs in with clientCode, password and the current TOTP
// code, stores the returned tokens and fetches the user profile.
func (sc *SmartConnect) GenerateSession(ctx context.Context, clientCode, password, totp string) (map[string]any, error) {
	params := map[string]any{"clientcode": clientCode, "password": password, "totp": totp}
	res, err := sc.post(ctx, "api.login", params)
	if err != nil {
		return res, err
	}

	data, ok := res["data"].(map[string]any)
	if !ok {
		return res, errors.New("unexpected login response format")
	}

	jwtToken, _ := data["jwtToken"].(string)
	refreshToken, _ := data["refreshToken"].(string)
	feedToken, _ := data["feedToken"].(string)

	sc.SetAccessToken(jwtToken)
	sc.SetRefreshToken(refreshToken)
	sc.SetFeedToken(feedToken)

	user, err := sc.GetProfile(ctx, refreshToken)
	if err != nil {
		return user, err
	}
	if udata, ok := user["data"].(map[string]any); ok {
		if cc, _ := udata["clientcode"].(string); cc != "" {
			sc.SetUserID(cc)
		}
	}
	return user, nil
}

func (sc *SmartConnect) TerminateSession(ctx context.Context, clientCode string) (map[string]any, error) {
	return sc.post(ctx, "api.logout", map[string]any{"clientcode": clientCode})
}

// GenerateToken refreshes the access token from a refresh token.
func (sc *SmartConnect) GenerateToken(ctx context.Context, refreshToken string) (map[string]any, error) {
	res, err := sc.post(ctx, "api.token", map[string]any{"refreshToken": refreshToken})
	if err != nil {
		return res, err
	}
	if data, ok := res["data"].(map[string]any); ok {
		if jwt, _ := data["jwtToken"].(string); jwt != "" {
			sc.SetAccessToken(jwt)
		}
		if ft, _ := data["feedToken"].(string); ft != "" {
			sc.SetFeedToken(ft)
		}
	}
	return res, nil
}

func (sc *SmartConnect) GetProfile(ctx context.Context, refreshToken string) (map[string]any, error) {
	return sc.get(ctx, "api.user.profile", map[string]any{"refreshToken": refreshToken})
}

// ---- Market data ----

// LTPData is the last traded price payload for one instrument.
type LTPData struct {
	Exchange      string  `json:"exchange"`
	TradingSymbol string  `json:"tradingsymbol"`
	SymbolToken   string  `json:"symboltoken"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	LTP           float64 `json:"ltp"`
}

// LTP fetches the last traded price for one instrument.
func (sc *SmartConnect) LTP(ctx context.Context, exchange, tradingSymbol, symbolToken string) (LTPData, error) {
	res, err := sc.post(ctx, "api.ltp.data", map[string]any{
		"exchange":      exchange,
		"tradingsymbol": tradingSymbol,
		"symboltoken":   symbolToken,
	})
	if err != nil {
		return LTPData{}, err
	}
	data, ok := res["data"].(map[string]any)
	if !ok {
		return LTPData{}, errors.New("unexpected ltp response format")
	}
	out := LTPData{
		Exchange:      asString(data["exchange"]),
		TradingSymbol: asString(data["tradingsymbol"]),
		SymbolToken:   asString(data["symboltoken"]),
		Open:          asFloat(data["open"]),
		High:          asFloat(data["high"]),
		Low:           asFloat(data["low"]),
		Close:         asFloat(data["close"]),
		LTP:           asFloat(data["ltp"]),
	}
	return out, nil
}

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// CandleRequest describes a historical candle query. Interval uses the
// API's names: ONE_MINUTE, FIVE_MINUTE, ONE_DAY, etc. From/To use the
// exchange-local "2006-01-02 15:04" format.
type CandleRequest struct {
	Exchange    string
	SymbolToken string
	Interval    string
	From        string
	To          string
}

// GetCandleData fetches historical OHLCV bars. The API returns rows of
// [timestamp, open, high, low, close, volume].
func (sc *SmartConnect) GetCandleData(ctx context.Context, req CandleRequest) ([]Candle, error) {
	res, err := sc.post(ctx, "api.candle.data", map[string]any{
		"exchange":    req.Exchange,
		"symboltoken": req.SymbolToken,
		"interval":    req.Interval,
		"fromdate":    req.From,
		"todate":      req.To,
	})
	if err != nil {
		return nil, err
	}
	rows, ok := res["data"].([]any)
	if !ok {
		return nil, errors.New("unexpected candle response format")
	}
	return ParseCandles(rows)
}

// ParseCandles decodes the API's row format into Candle values. Rows
// that are too short or carry an unparseable timestamp are rejected.
func ParseCandles(rows []any) ([]Candle, error) {
	candles := make([]Candle, 0, len(rows))
	for i, r := range rows {
		row, ok := r.([]any)
		if !ok || len(row) < 6 {
			return nil, fmt.Errorf("candle row %d: malformed", i)
		}
		ts, err := time.Parse("2006-01-02T15:04:05-07:00", asString(row[0]))
		if err != nil {
			return nil, fmt.Errorf("candle row %d: %w", i, err)
		}
		candles = append(candles, Candle{
			Timestamp: ts,
			Open:      asFloat(row[1]),
			High:      asFloat(row[2]),
			Low:       asFloat(row[3]),
			Close:     asFloat(row[4]),
			Volume:    asFloat(row[5]),
		})
	}
	return candles, nil
}

// ScripMatch is one search result from SearchScrip.
type ScripMatch struct {
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"tradingsymbol"`
	SymbolToken   string `json:"symboltoken"`
}

// SearchScrip looks up instruments by symbol text on an exchange.
func (sc *SmartConnect) SearchScrip(ctx context.Context, exchange, searchscrip string) ([]ScripMatch, error) {
	res, err := sc.post(ctx, "api.search.scrip", map[string]any{
		"exchange":    exchange,
		"searchscrip": searchscrip,
	})
	if err != nil {
		return nil, err
	}
	rows, ok := res["data"].([]any)
	if !ok {
		return nil, errors.New("unexpected search response format")
	}
	matches := make([]ScripMatch, 0, len(rows))
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		matches = append(matches, ScripMatch{
			Exchange:      asString(row["exchange"]),
			TradingSymbol: asString(row["tradingsymbol"]),
			SymbolToken:   asString(row["symboltoken"]),
		})
	}
	return matches, nil
}

// ---- Utils ----

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}
