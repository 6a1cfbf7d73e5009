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

package stats

import (
	"math"
	"sort"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/multiprice/db"
)

// Timeseries stores numeric values along with their dates. The dates are
// always sorted in ascending order.
type Timeseries struct {
	dates []db.Date
	data  []float64
}

// NewTimeseries creates a new Timeseries. The dates are expected to be sorted
// in ascending order (not checked). It panics if dates and data have different
// lengths. The argument slices are used as is, not copied.
func NewTimeseries(dates []db.Date, data []float64) *Timeseries {
	if len(dates) != len(data) {
		panic(errors.Reason("len(dates) [%d] != len(data) [%d]",
			len(dates), len(data)))
	}
	return &Timeseries{dates: dates, data: data}
}

// NewTimeseriesFromTable extracts a column of a PriceTable. Missing values
// remain NaN; use DropNaN to remove them.
func NewTimeseriesFromTable(t *db.PriceTable, column string) (*Timeseries, error) {
	data, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	return NewTimeseries(t.Dates(), data), nil
}

// Dates of the Timeseries.
func (t *Timeseries) Dates() []db.Date { return t.dates }

// Data of the Timeseries.
func (t *Timeseries) Data() []float64 { return t.data }

// Len is the number of samples.
func (t *Timeseries) Len() int { return len(t.dates) }

// Copy makes a deep copy of the Timeseries.
func (t *Timeseries) Copy() *Timeseries {
	dates := append([]db.Date(nil), t.dates...)
	data := append([]float64(nil), t.data...)
	return NewTimeseries(dates, data)
}

// Check that the dates are strictly ascending.
func (t *Timeseries) Check() error {
	if len(t.dates) != len(t.data) {
		return errors.Reason("len(dates) [%d] != len(data) [%d]",
			len(t.dates), len(t.data))
	}
	for i := 1; i < len(t.dates); i++ {
		if !t.dates[i-1].Before(t.dates[i]) {
			return errors.Reason("dates[%d] = %s >= dates[%d] = %s",
				i-1, t.dates[i-1], i, t.dates[i])
		}
	}
	return nil
}

// Range extracts the sub-series in the inclusive date interval. A zero bound
// is open. It may return an empty Timeseries, but never nil.
func (t *Timeseries) Range(start, end db.Date) *Timeseries {
	s := 0
	if !start.IsZero() {
		s = sort.Search(len(t.dates), func(i int) bool { return !t.dates[i].Before(start) })
	}
	e := len(t.dates)
	if !end.IsZero() {
		e = sort.Search(len(t.dates), func(i int) bool { return t.dates[i].After(end) })
	}
	if s >= e {
		return NewTimeseries(nil, nil)
	}
	if s == 0 && e == len(t.dates) {
		return t
	}
	return NewTimeseries(t.dates[s:e], t.data[s:e])
}

// DropNaN removes the samples with missing values. It returns self when
// nothing is missing.
func (t *Timeseries) DropNaN() *Timeseries {
	n := 0
	for _, v := range t.data {
		if !math.IsNaN(v) {
			n++
		}
	}
	if n == len(t.data) {
		return t
	}
	dates := make([]db.Date, 0, n)
	data := make([]float64, 0, n)
	for i, v := range t.data {
		if !math.IsNaN(v) {
			dates = append(dates, t.dates[i])
			data = append(data, v)
		}
	}
	return NewTimeseries(dates, data)
}

// LogProfits computes a new Timeseries of log-profits {log(x[t+n]) -
// log(x[t])}. The associated log-profit date is t+n.
func (t *Timeseries) LogProfits(n int) *Timeseries {
	if n < 1 {
		panic(errors.Reason("n=%d must be >= 1", n))
	}
	if n >= len(t.data) {
		return NewTimeseries(nil, nil)
	}
	deltas := make([]float64, len(t.data)-n)
	for i := range deltas {
		deltas[i] = math.Log(t.data[i+n]) - math.Log(t.data[i])
	}
	return NewTimeseries(t.dates[n:], deltas)
}
