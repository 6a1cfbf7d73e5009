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

// Package polygon is a daily price source backed by Polygon.io aggregates.
package polygon

import (
	"context"
	"math"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/multiprice/db"
	"github.com/stockparfait/multiprice/download"
)

// maxLimit is the largest page size accepted by the aggregates endpoint.
const maxLimit = 50000

// Source of daily prices from Polygon.io. Close is the unadjusted close, and
// AdjClose is the split-adjusted one.
type Source struct {
	client *polygon.Client
}

var _ download.Source = &Source{}

// NewSource creates a Source authenticated with the API key.
func NewSource(apiKey string) (*Source, error) {
	if apiKey == "" {
		return nil, errors.Reason("Polygon API key is required")
	}
	return &Source{client: polygon.New(apiKey)}, nil
}

func (s *Source) aggs(ctx context.Context, ticker string, start, end db.Date, adjusted bool) ([]models.Agg, error) {
	params := models.ListAggsParams{
		Ticker:     strings.ToUpper(ticker),
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(start.ToTime()),
		To:         models.Millis(end.ToTime()),
	}.WithLimit(maxLimit).WithAdjusted(adjusted)

	it := s.client.ListAggs(ctx, params)
	var res []models.Agg
	for it.Next() {
		res = append(res, it.Item())
	}
	if err := it.Err(); err != nil {
		return nil, errors.Annotate(err, "failed to list aggregates for %s", ticker)
	}
	return res, nil
}

// Prices implements download.Source.
func (s *Source) Prices(ctx context.Context, ticker string, start, end db.Date) ([]download.Bar, error) {
	if ticker == "" {
		return nil, errors.Reason("empty ticker")
	}
	if end.IsZero() {
		end = db.NewDateFromTime(time.Now())
	}
	raw, err := s.aggs(ctx, ticker, start, end, false)
	if err != nil {
		return nil, err
	}
	adj, err := s.aggs(ctx, ticker, start, end, true)
	if err != nil {
		return nil, err
	}
	bars := joinAggs(raw, adj)
	logging.Debugf(ctx, "Polygon: fetched %d prices for %s", len(bars), ticker)
	return bars, nil
}

func aggDate(a models.Agg) db.Date {
	return db.NewDateFromTime(time.Time(a.Timestamp).UTC())
}

// joinAggs merges unadjusted and adjusted daily aggregates by date into bars
// sorted by date. A date present in only one of them gets NaN for the missing
// values.
func joinAggs(raw, adj []models.Agg) []download.Bar {
	nan := math.NaN()
	byDate := make(map[db.Date]int)
	var res []download.Bar
	get := func(d db.Date) *download.Bar {
		if i, ok := byDate[d]; ok {
			return &res[i]
		}
		byDate[d] = len(res)
		res = append(res, download.Bar{
			Date: d, Open: nan, High: nan, Low: nan, Close: nan, AdjClose: nan, Volume: nan,
		})
		return &res[len(res)-1]
	}
	for _, a := range raw {
		b := get(aggDate(a))
		b.Open = a.Open
		b.High = a.High
		b.Low = a.Low
		b.Close = a.Close
		b.Volume = a.Volume
	}
	for _, a := range adj {
		get(aggDate(a)).AdjClose = a.Close
	}
	download.SortBars(res)
	return res
}
