package watchlist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trade-assistant/internal/model"
)

// DefaultEntries is the built-in NSE watchlist used when no seed file or
// persisted copy exists.
func DefaultEntries() []model.WatchlistEntry {
	return []model.WatchlistEntry{
		{Symbol: "RELIANCE", InstrumentToken: "2885"},
		{Symbol: "TCS", InstrumentToken: "11536"},
		{Symbol: "INFY", InstrumentToken: "1594"},
		{Symbol: "HDFCBANK", InstrumentToken: "1333"},
		{Symbol: "ICICIBANK", InstrumentToken: "4963"},
	}
}

type seedFile struct {
	Entries []model.WatchlistEntry `yaml:"entries"`
}

// LoadSeed reads a YAML seed file of the form:
//
//	entries:
//	  - symbol: RELIANCE
//	    instrument_token: "2885"
//
// A missing path is not an error; the built-in defaults are returned.
func LoadSeed(path string) ([]model.WatchlistEntry, error) {
	if path == "" {
		return DefaultEntries(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultEntries(), nil
		}
		return nil, fmt.Errorf("watchlist seed: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("watchlist seed parse: %w", err)
	}
	if len(f.Entries) == 0 {
		return DefaultEntries(), nil
	}
	return f.Entries, nil
}
