package model

// WatchlistEntry is one symbol under scan, with its broker instrument token.
type WatchlistEntry struct {
	Symbol          string `json:"symbol" yaml:"symbol"`
	InstrumentToken string `json:"instrument_token" yaml:"instrument_token"`
}
