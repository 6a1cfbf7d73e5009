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

package db

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
)

// parseValue parses a numeric cell. Empty and null-like cells are NaN.
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "na", "n/a":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// mapHeader finds the date column and standardizes the remaining headers.
// cols[i] is the position of the i'th value column in the raw row.
func mapHeader(header []string, c *Config) (dateCol int, names []string, cols []int, err error) {
	dateCol = -1
	seen := make(map[string]int)
	dateName := StandardName(c.DateColumn)
	for i, h := range header {
		if dateCol < 0 && (h == c.DateColumn || StandardName(h) == dateName) {
			dateCol = i
			continue
		}
		name := c.StandardName(h)
		if name == "" {
			err = errors.Reason("column %d has an empty name", i+1)
			return
		}
		if j, ok := seen[name]; ok {
			err = errors.Reason("columns '%s' and '%s' both map to '%s'",
				header[j], h, name)
			return
		}
		seen[name] = i
		names = append(names, name)
		cols = append(cols, i)
	}
	if dateCol < 0 {
		err = errors.Reason("missing date column '%s'", c.DateColumn)
	}
	return
}

// ReadPriceCSV parses a price CSV with a header row into a PriceTable.
//
// The header must contain the date column (Config.DateColumn). All other
// columns are renamed by Config.StandardName and parsed as numbers, where an
// empty or "NaN" cell is a missing value. Rows may come in any order; the
// result is sorted by date. Any malformed input results in *ParseError.
func ReadPriceCSV(r io.Reader, c *Config) (*PriceTable, error) {
	csvReader := csv.NewReader(r)
	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, &ParseError{Err: errors.Reason("missing header")}
	}
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	// Strip UTF-8 byte order mark left by some spreadsheet exports.
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	header = append([]string(nil), header...)

	dateCol, names, cols, err := mapHeader(header, c)
	if err != nil {
		return nil, &ParseError{Line: 1, Err: err}
	}

	type rawRow struct {
		line int
		date Date
		vals []float64
	}
	var rows []rawRow
	for {
		rec, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		line, _ := csvReader.FieldPos(0)
		row := rawRow{line: line, vals: make([]float64, len(cols))}
		if row.date, err = NewDateFromString(rec[dateCol]); err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		for i, col := range cols {
			if row.vals[i], err = parseValue(rec[col]); err != nil {
				return nil, &ParseError{Line: line, Err: errors.Annotate(
					err, "bad value for '%s'", header[col])}
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	dates := make([]Date, len(rows))
	values := make([][]float64, len(cols))
	for i := range values {
		values[i] = make([]float64, len(rows))
	}
	for i, row := range rows {
		if i > 0 && row.date == rows[i-1].date {
			return nil, &ParseError{Line: row.line, Err: errors.Reason(
				"duplicate date %s, first seen on line %d", row.date, rows[i-1].line)}
		}
		dates[i] = row.date
		for j, v := range row.vals {
			values[j][i] = v
		}
	}
	t, err := NewPriceTable("", dates, names, values)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return t, nil
}

// LoadPrices reads the price file of the ticker from the configured data
// directory. It returns *FileNotFoundError when the file doesn't exist and
// *ParseError when its content is malformed.
func LoadPrices(c *Config, ticker string) (*PriceTable, error) {
	path := c.PricePath(ticker)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &FileNotFoundError{Ticker: ticker, Path: path}
		}
		return nil, errors.Annotate(err, "failed to open '%s'", path)
	}
	defer f.Close()

	t, err := ReadPriceCSV(f, c)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Source = path
		}
		return nil, err
	}
	t.ticker = ticker
	return t, nil
}
