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

// Package yahoo is a daily price source backed by the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/multiprice/db"
	"github.com/stockparfait/multiprice/download"
)

// URL is the default base URL of the server. It may be overwritten in tests
// before creating a new Source.
var URL = "https://query1.finance.yahoo.com"

// Source of daily prices from Yahoo Finance. The HTTP client is taken from
// the context, see fetch.UseClient.
type Source struct {
	baseURL string
}

var _ download.Source = &Source{}

// NewSource creates a Source using the current URL.
func NewSource() *Source {
	return &Source{baseURL: URL}
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type quote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type adjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote    []quote    `json:"quote"`
		AdjClose []adjClose `json:"adjclose"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

// value of the i'th element, or NaN when it's null or missing.
func value(xs []*float64, i int) float64 {
	if i >= len(xs) || xs[i] == nil {
		return math.NaN()
	}
	return *xs[i]
}

// bars converts the chart result into daily bars in the [start, end] range,
// keeping the last record of each exchange-local date.
func (r *chartResult) bars(start, end db.Date) []download.Bar {
	var q quote
	if len(r.Indicators.Quote) > 0 {
		q = r.Indicators.Quote[0]
	}
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	} else {
		adj = q.Close
	}
	res := []download.Bar{}
	for i, ts := range r.Timestamp {
		date := db.NewDateFromTime(time.Unix(ts+r.Meta.GMTOffset, 0).UTC())
		if !date.InRange(start, end) {
			continue
		}
		b := download.Bar{
			Date:     date,
			Open:     value(q.Open, i),
			High:     value(q.High, i),
			Low:      value(q.Low, i),
			Close:    value(q.Close, i),
			AdjClose: value(adj, i),
			Volume:   value(q.Volume, i),
		}
		if n := len(res); n > 0 && res[n-1].Date == date {
			res[n-1] = b
			continue
		}
		res = append(res, b)
	}
	return res
}

// Prices implements download.Source.
func (s *Source) Prices(ctx context.Context, ticker string, start, end db.Date) ([]download.Bar, error) {
	if ticker == "" {
		return nil, errors.Reason("empty ticker")
	}
	period2 := time.Now().Unix()
	if !end.IsZero() {
		period2 = end.ToTime().AddDate(0, 0, 1).Unix()
	}
	query := url.Values{
		"period1":  []string{strconv.FormatInt(start.ToTime().Unix(), 10)},
		"period2":  []string{strconv.FormatInt(period2, 10)},
		"interval": []string{"1d"},
		"events":   []string{"history"},
	}
	uri := s.baseURL + "/v8/finance/chart/" + url.PathEscape(strings.ToUpper(ticker))

	var resp chartResponse
	if err := fetch.FetchJSON(ctx, uri, &resp, query, nil); err != nil {
		return nil, errors.Annotate(err, "failed to fetch chart for %s", ticker)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, errors.Reason("chart for %s: %s: %s", ticker, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, errors.Reason("no chart for %s", ticker)
	}
	bars := resp.Chart.Result[0].bars(start, end)
	logging.Debugf(ctx, "Yahoo: fetched %d prices for %s", len(bars), ticker)
	return bars, nil
}
