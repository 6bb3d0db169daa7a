package backtest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"trading-backtestv1/internal/model"
)

// WriteTradesCSV writes one row per trade with a header line.
func WriteTradesCSV(w io.Writer, trades []model.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"entry_index", "exit_index", "entry_time", "exit_time",
		"entry_price", "exit_price", "pnl_percent", "reason",
	}); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write([]string{
			strconv.Itoa(t.EntryIndex), strconv.Itoa(t.ExitIndex),
			strconv.FormatInt(t.EntryTime, 10), strconv.FormatInt(t.ExitTime, 10),
			formatF(t.EntryPrice), formatF(t.ExitPrice), formatF(t.PnLPercent),
			string(t.Reason),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// ReadCandlesCSV parses time,open,high,low,close[,volume] rows. A header row
// is skipped when its first cell is not a timestamp. Times are unix seconds
// or RFC 3339. Rows are returned in file order; validation is left to
// model.NewCandleStore.
func ReadCandlesCSV(r io.Reader) ([]model.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []model.Candle
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		if line == 1 && !isTimestamp(rec[0]) {
			continue
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("csv line %d: want at least 5 columns, got %d", line, len(rec))
		}
		c, err := parseCandle(rec)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseCandle(rec []string) (model.Candle, error) {
	ts, err := parseTime(rec[0])
	if err != nil {
		return model.Candle{}, err
	}
	var v [5]float64
	for i := 1; i < len(rec) && i <= 5; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		v[i-1] = f
	}
	return model.Candle{Time: ts, Open: v[0], High: v[1], Low: v[2], Close: v[3], Volume: v[4]}, nil
}

func parseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("time %q: not unix seconds or RFC 3339", s)
	}
	return t.Unix(), nil
}

func isTimestamp(s string) bool {
	_, err := parseTime(s)
	return err == nil
}
