package store

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// csvColumns is the required header, in any order.
var csvColumns = []string{"symbol", "date", "open", "high", "low", "close", "volume"}

// ReadObservationsCSV parses a price-cache CSV into observations. The file
// must have a header row naming symbol, date, open, high, low, close and
// volume columns. Dates are either YYYY-MM-DD or unix seconds.
func ReadObservationsCSV(path string) ([]model.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: open csv %s", path)
	}
	defer f.Close()
	return parseObservations(f)
}

func parseObservations(r io.Reader) ([]model.Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "store: read csv header")
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("store: csv missing column %q", col)
		}
	}

	var obs []model.Observation
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "store: read csv line %d", line)
		}

		o := model.Observation{Symbol: strings.ToUpper(rec[idx["symbol"]])}
		if o.Timestamp, err = parseDate(rec[idx["date"]]); err != nil {
			return nil, eris.Wrapf(err, "store: csv line %d", line)
		}
		if o.Open, err = strconv.ParseFloat(rec[idx["open"]], 64); err != nil {
			return nil, eris.Wrapf(err, "store: csv line %d open", line)
		}
		if o.High, err = strconv.ParseFloat(rec[idx["high"]], 64); err != nil {
			return nil, eris.Wrapf(err, "store: csv line %d high", line)
		}
		if o.Low, err = strconv.ParseFloat(rec[idx["low"]], 64); err != nil {
			return nil, eris.Wrapf(err, "store: csv line %d low", line)
		}
		if o.Close, err = strconv.ParseFloat(rec[idx["close"]], 64); err != nil {
			return nil, eris.Wrapf(err, "store: csv line %d close", line)
		}
		if o.Volume, err = strconv.ParseInt(rec[idx["volume"]], 10, 64); err != nil {
			return nil, eris.Wrapf(err, "store: csv line %d volume", line)
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(ts, 0).UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse date %q", s)
	}
	return t, nil
}
