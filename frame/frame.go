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

package frame

import (
	"math"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/multiprice/db"
	"github.com/stockparfait/multiprice/stats"
	"github.com/stockparfait/multiprice/table"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Frame is a table of one price column for several tickers, indexed by date.
// Dates are unique and ascending, columns are lower-cased tickers in the
// requested order. A NaN cell means the ticker has no price on that date, and
// no row is entirely NaN.
type Frame struct {
	dates   []db.Date
	tickers []string
	rows    [][]float64 // rows[i][j] is the price of tickers[j] on dates[i]
}

// Dates of the Frame in ascending order.
func (f *Frame) Dates() []db.Date { return f.dates }

// Tickers are the column labels, lower-cased.
func (f *Frame) Tickers() []string { return f.tickers }

// Len is the number of rows.
func (f *Frame) Len() int { return len(f.dates) }

// Row returns the values of all tickers on the i'th date. The result must not
// be modified.
func (f *Frame) Row(i int) []float64 { return f.rows[i] }

// Value of the ticker's column on the i'th date.
func (f *Frame) Value(i, col int) float64 { return f.rows[i][col] }

func (f *Frame) columnIndex(ticker string) int {
	return slices.Index(f.tickers, strings.ToLower(ticker))
}

// Column copies out the ticker's values aligned with Dates().
func (f *Frame) Column(ticker string) ([]float64, error) {
	j := f.columnIndex(ticker)
	if j < 0 {
		return nil, &db.ColumnNotFoundError{Column: strings.ToLower(ticker)}
	}
	res := make([]float64, len(f.rows))
	for i, r := range f.rows {
		res[i] = r[j]
	}
	return res, nil
}

// Timeseries of the ticker's prices, with missing dates dropped.
func (f *Frame) Timeseries(ticker string) (*stats.Timeseries, error) {
	data, err := f.Column(ticker)
	if err != nil {
		return nil, err
	}
	return stats.NewTimeseries(f.dates, data).DropNaN(), nil
}

// Range restricts the Frame to the inclusive date interval. A zero bound is
// open. The result shares the data with the original Frame.
func (f *Frame) Range(start, end db.Date) *Frame {
	s, e := 0, len(f.dates)
	for s < e && !f.dates[s].InRange(start, end) {
		s++
	}
	for e > s && !f.dates[e-1].InRange(start, end) {
		e--
	}
	return &Frame{dates: f.dates[s:e], tickers: f.tickers, rows: f.rows[s:e]}
}

type frameRow struct {
	date      db.Date
	values    []float64
	precision int
}

var _ table.Row = frameRow{}

func (r frameRow) CSV() []string {
	res := make([]string, len(r.values)+1)
	res[0] = r.date.String()
	for i, v := range r.values {
		if math.IsNaN(v) {
			res[i+1] = "NaN"
			continue
		}
		res[i+1] = strconv.FormatFloat(v, 'f', r.precision, 64)
	}
	return res
}

// Table converts the Frame for printing, with the date in the first column.
// The values are printed with the given number of decimal places; a negative
// precision uses the smallest number of digits that represents the value
// exactly.
func (f *Frame) Table(precision int) *table.Table {
	t := table.NewTable(append([]string{"Date"}, f.tickers...)...)
	for i, d := range f.dates {
		t.AddRow(frameRow{date: d, values: f.rows[i], precision: precision})
	}
	return t
}

// accumulator collects per-ticker price columns into fixed-width rows keyed by
// date.
type accumulator struct {
	width int
	rows  map[db.Date][]float64
}

func newAccumulator(width int) *accumulator {
	return &accumulator{width: width, rows: make(map[db.Date][]float64)}
}

// add scatters the j'th ticker's values into the rows, creating the rows of
// previously unseen dates.
func (a *accumulator) add(j int, dates []db.Date, values []float64) {
	for i, d := range dates {
		r, ok := a.rows[d]
		if !ok {
			r = make([]float64, a.width)
			for k := range r {
				r[k] = math.NaN()
			}
			a.rows[d] = r
		}
		r[j] = values[i]
	}
}

// frame drops all-NaN rows and sorts the remaining ones by date.
func (a *accumulator) frame(tickers []string) *Frame {
	for d, r := range a.rows {
		if allNaN(r) {
			delete(a.rows, d)
		}
	}
	dates := maps.Keys(a.rows)
	slices.SortFunc(dates, func(x, y db.Date) bool { return x.Before(y) })
	rows := make([][]float64, len(dates))
	for i, d := range dates {
		rows[i] = a.rows[d]
	}
	return &Frame{dates: dates, tickers: tickers, rows: rows}
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// MakePriceFrame loads the price file of each ticker and outer-joins their
// priceCol columns by date. An empty priceCol means db.DefaultPriceColumn.
//
// Tickers are processed in order, and the first error is returned as is:
// *db.FileNotFoundError and *db.ParseError from loading, or
// *db.ColumnNotFoundError when a ticker lacks priceCol. Dates on which no
// ticker has a price are dropped.
func MakePriceFrame(c *db.Config, tickers []string, priceCol string) (*Frame, error) {
	if len(tickers) == 0 {
		return nil, errors.Reason("no tickers")
	}
	if priceCol == "" {
		priceCol = db.DefaultPriceColumn
	}
	labels := make([]string, len(tickers))
	for i, t := range tickers {
		labels[i] = strings.ToLower(t)
		if slices.Index(labels[:i], labels[i]) >= 0 {
			return nil, errors.Reason("duplicate ticker %s", t)
		}
	}
	acc := newAccumulator(len(tickers))
	for j, t := range tickers {
		prices, err := db.LoadPrices(c, t)
		if err != nil {
			return nil, err
		}
		values, err := prices.Column(priceCol)
		if err != nil {
			return nil, err
		}
		acc.add(j, prices.Dates(), values)
	}
	return acc.frame(labels), nil
}
