// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package download

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/multiprice/db"
	"github.com/stockparfait/multiprice/table"
)

// DefaultStart is the start date used when none is given.
var DefaultStart = db.NewDate(1900, 1, 1)

// Header of a downloaded price file.
var Header = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

// Bar is a single daily price record. Missing values are NaN.
type Bar struct {
	Date     db.Date
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

var _ table.Row = Bar{}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSV implements table.Row, in the order of Header.
func (b Bar) CSV() []string {
	return []string{
		b.Date.String(),
		formatValue(b.Open),
		formatValue(b.High),
		formatValue(b.Low),
		formatValue(b.Close),
		formatValue(b.AdjClose),
		formatValue(b.Volume),
	}
}

// SortBars sorts bars by date in place, preserving the order of equal dates.
func SortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
}

// Source of daily prices.
type Source interface {
	// Prices of the ticker in the inclusive date range. A zero end means the
	// latest available date.
	Prices(ctx context.Context, ticker string, start, end db.Date) ([]Bar, error)
}

// WriteCSV writes bars in the price file format readable by db.ReadPriceCSV.
func WriteCSV(w io.Writer, bars []Bar) error {
	t := table.NewTable(Header...)
	for _, b := range bars {
		t.AddRow(b)
	}
	return t.WriteCSV(w, table.Params{})
}

// writeFile writes bars to a temporary file next to path and renames it, so
// that path is never left partially written.
func writeFile(path string, bars []Bar) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Annotate(err, "failed to create directory '%s'", dir)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Annotate(err, "failed to create a temporary file in '%s'", dir)
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()
	if err = WriteCSV(f, bars); err != nil {
		f.Close()
		return errors.Annotate(err, "failed to write '%s'", f.Name())
	}
	if err = f.Close(); err != nil {
		return errors.Annotate(err, "failed to close '%s'", f.Name())
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return errors.Annotate(err, "failed to rename '%s' to '%s'", f.Name(), path)
	}
	return nil
}

// Download fetches the ticker's prices from src and saves them as a CSV file
// at path, replacing any existing file. A zero start means DefaultStart, and
// a zero end means the latest available date.
func Download(ctx context.Context, src Source, ticker, path string, start, end db.Date) error {
	if start.IsZero() {
		start = DefaultStart
	}
	if !end.IsZero() && end.Before(start) {
		return errors.Reason("end date %s is before start date %s", end, start)
	}
	bars, err := src.Prices(ctx, ticker, start, end)
	if err != nil {
		return errors.Annotate(err, "failed to fetch prices for %s", ticker)
	}
	if len(bars) == 0 {
		return errors.Reason("no prices for %s in [%s, %s]", ticker, start, end)
	}
	SortBars(bars)
	if err := writeFile(path, bars); err != nil {
		return errors.Annotate(err, "failed to save prices for %s", ticker)
	}
	logging.Debugf(ctx, "saved %d prices for %s to %s", len(bars), ticker, path)
	return nil
}

// Downloader saves prices of multiple tickers into the configured data
// directory.
type Downloader struct {
	Source Source
	Config *db.Config
	// Workers is the number of concurrent downloads; 0 means 2*NumCPU.
	Workers int
	// OnProgress, when not nil, is called after each ticker completes, with a
	// nil error on success. Calls are sequential.
	OnProgress func(ticker string, err error)
}

type result struct {
	ticker string
	err    error
}

// DownloadAll downloads all the tickers, continuing past failures. Failed
// tickers are logged and reported in the returned error.
func (d *Downloader) DownloadAll(ctx context.Context, tickers []string, start, end db.Date) error {
	if d.Source == nil {
		return errors.Reason("no price source")
	}
	if d.Config == nil {
		return errors.Reason("no config")
	}
	workers := d.Workers
	if workers <= 0 {
		workers = 2 * runtime.NumCPU()
	}
	f := func(ticker string) result {
		err := Download(ctx, d.Source, ticker, d.Config.PricePath(ticker), start, end)
		return result{ticker: ticker, err: err}
	}
	pm := iterator.ParallelMap(ctx, workers, iterator.FromSlice(tickers), f)
	defer pm.Close()

	failed := iterator.Reduce[result, []string](pm, nil, func(r result, acc []string) []string {
		if d.OnProgress != nil {
			d.OnProgress(r.ticker, r.err)
		}
		if r.err != nil {
			logging.Warningf(ctx, "%s", r.err.Error())
			return append(acc, r.ticker)
		}
		return acc
	})
	if len(failed) > 0 {
		sort.Strings(failed)
		return errors.Reason("failed to download %d of %d tickers: %s",
			len(failed), len(tickers), strings.Join(failed, ", "))
	}
	logging.Infof(ctx, "downloaded %d tickers", len(tickers))
	return nil
}
