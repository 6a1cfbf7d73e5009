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
	"github.com/stockparfait/errors"
)

// PriceTable is a date-indexed table of a single ticker's prices. Dates are
// unique and sorted in ascending order. Each column has a standardized name
// (open, high, low, close, adj_close, volume, ...) and one value per date;
// NaN marks a missing value.
//
// A PriceTable is not modified after construction.
type PriceTable struct {
	ticker  string
	dates   []Date
	columns []string
	values  [][]float64 // values[column][row]
	index   map[string]int
}

// NewPriceTable validates and creates a PriceTable. The slices are used as
// is, not copied.
func NewPriceTable(ticker string, dates []Date, columns []string, values [][]float64) (*PriceTable, error) {
	if len(columns) != len(values) {
		return nil, errors.Reason("len(columns) [%d] != len(values) [%d]",
			len(columns), len(values))
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := index[c]; ok {
			return nil, errors.Reason("duplicate column '%s'", c)
		}
		index[c] = i
		if len(values[i]) != len(dates) {
			return nil, errors.Reason("column '%s' has %d values for %d dates",
				c, len(values[i]), len(dates))
		}
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i-1].Before(dates[i]) {
			return nil, errors.Reason("dates[%d] = %s >= dates[%d] = %s",
				i-1, dates[i-1], i, dates[i])
		}
	}
	return &PriceTable{
		ticker:  ticker,
		dates:   dates,
		columns: columns,
		values:  values,
		index:   index,
	}, nil
}

// Ticker the table was loaded for, if known.
func (t *PriceTable) Ticker() string { return t.ticker }

// Dates of the table in ascending order.
func (t *PriceTable) Dates() []Date { return t.dates }

// Columns are the standardized column names in the order of the source file.
func (t *PriceTable) Columns() []string { return t.columns }

// Len is the number of rows.
func (t *PriceTable) Len() int { return len(t.dates) }

// HasColumn checks for the presence of a column.
func (t *PriceTable) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the values of the named column aligned with Dates(). The
// result must not be modified.
func (t *PriceTable) Column(name string) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, &ColumnNotFoundError{Ticker: t.ticker, Column: name}
	}
	return t.values[i], nil
}
