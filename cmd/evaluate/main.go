// cmd/evaluate runs the indicator and signal pipeline once over a CSV
// candle file, without broker credentials. Useful for dry runs and for
// checking a setup against recorded data.
//
// The CSV carries one close,volume pair per row. The prior session's
// high/low/close arrive as flags.
//
// Usage:
//
//	go run ./cmd/evaluate --csv=candles.csv --symbol=RELIANCE \
//	    --ltp=2885.5 --high=2900 --low=2850 --close=2880
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"trade-assistant/internal/indicator"
	"trade-assistant/internal/model"
	"trade-assistant/internal/signal"
)

func main() {
	csvPath := flag.String("csv", "", "CSV file with close,volume rows")
	symbol := flag.String("symbol", "OFFLINE", "Symbol label for the verdict")
	ltp := flag.Float64("ltp", 0, "Live price to evaluate (default: last close)")
	high := flag.Float64("high", 0, "Prior session high")
	low := flag.Float64("low", 0, "Prior session low")
	prevClose := flag.Float64("close", 0, "Prior session close")
	period := flag.Int("period", indicator.DefaultRSIPeriod, "RSI period")
	asJSON := flag.Bool("json", false, "Print the verdict as JSON")
	flag.Parse()

	if *csvPath == "" {
		log.Fatal("[evaluate] --csv is required")
	}
	if *high == 0 || *low == 0 || *prevClose == 0 {
		log.Fatal("[evaluate] --high, --low and --close are required")
	}

	series, err := readCandles(*csvPath)
	if err != nil {
		log.Fatalf("[evaluate] %v", err)
	}
	if len(series) == 0 {
		log.Fatal("[evaluate] no rows in CSV")
	}

	price := *ltp
	if price == 0 {
		price = series[len(series)-1].Price
	}

	cpr := indicator.ComputeCPR(*high, *low, *prevClose)
	snap := model.IndicatorSnapshot{
		Symbol:    *symbol,
		RSI:       indicator.RSI(series.Prices(), *period),
		VWAP:      indicator.VWAP(series.Prices(), series.Volumes()),
		Pivot:     cpr.Pivot,
		BC:        cpr.BC,
		TC:        cpr.TC,
		LTP:       price,
		Timestamp: time.Now().UTC(),
	}
	verdict := signal.Decide(snap)

	if *asJSON {
		out, _ := json.MarshalIndent(map[string]any{
			"indicators": snap,
			"verdict":    verdict,
		}, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("%s  (%d candles)\n", *symbol, len(series))
	fmt.Printf("  RSI %.2f  VWAP %.2f  Pivot %.2f  BC %.2f  TC %.2f  LTP %.2f\n",
		snap.RSI, snap.VWAP, snap.Pivot, snap.BC, snap.TC, snap.LTP)
	fmt.Printf("  %s  entry %.2f  target %.2f  stop %.2f\n",
		verdict.Signal, verdict.EntryPrice, verdict.Target, verdict.StopLoss)
	fmt.Printf("  %s\n", verdict.Notes)
}

// readCandles parses close,volume rows; a header row is skipped.
func readCandles(path string) (model.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var series model.PriceSeries
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: want close,volume", i+1)
		}
		c, errC := strconv.ParseFloat(row[0], 64)
		v, errV := strconv.ParseFloat(row[1], 64)
		if errC != nil || errV != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("row %d: non-numeric values", i+1)
		}
		series = append(series, model.Sample{Price: c, Volume: v})
	}
	return series, nil
}
