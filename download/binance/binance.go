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

// Package binance is a daily price source backed by Binance spot klines.
package binance

import (
	"context"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/multiprice/db"
	"github.com/stockparfait/multiprice/download"
)

// pageSize is the number of klines requested at once; the API maximum.
const pageSize = 1000

// URL is the default base URL of the server. It may be overwritten in tests
// before creating a new Source.
var URL = "https://api.binance.com"

// Source of daily prices of a trading pair such as BTCUSDT. Crypto prices
// are never adjusted, so AdjClose is the same as Close. Public market data
// doesn't need API keys.
type Source struct {
	client *binance.Client
}

var _ download.Source = &Source{}

// NewSource creates a Source using the current URL.
func NewSource() *Source {
	c := binance.NewClient("", "")
	c.BaseURL = URL
	return &Source{client: c}
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Annotate(err, "invalid number '%s'", s)
	}
	return v, nil
}

func klineBar(k *binance.Kline) (download.Bar, error) {
	b := download.Bar{Date: db.NewDateFromTime(time.UnixMilli(k.OpenTime).UTC())}
	var err error
	for _, f := range []struct {
		v *float64
		s string
	}{
		{&b.Open, k.Open},
		{&b.High, k.High},
		{&b.Low, k.Low},
		{&b.Close, k.Close},
		{&b.Volume, k.Volume},
	} {
		if *f.v, err = parseValue(f.s); err != nil {
			return download.Bar{}, errors.Annotate(err, "bad kline for %s", b.Date)
		}
	}
	b.AdjClose = b.Close
	return b, nil
}

// Prices implements download.Source.
func (s *Source) Prices(ctx context.Context, ticker string, start, end db.Date) ([]download.Bar, error) {
	if ticker == "" {
		return nil, errors.Reason("empty ticker")
	}
	symbol := strings.ToUpper(ticker)
	from := start.ToTime().UnixMilli()
	to := time.Now().UnixMilli()
	if !end.IsZero() {
		to = end.ToTime().AddDate(0, 0, 1).UnixMilli() - 1
	}
	var res []download.Bar
	for page := 1; from <= to; page++ {
		klines, err := s.client.NewKlinesService().
			Symbol(symbol).
			Interval("1d").
			StartTime(from).
			EndTime(to).
			Limit(pageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Annotate(err, "failed to fetch klines for %s", symbol)
		}
		logging.Debugf(ctx, "Binance: fetched page %d with %d klines for %s",
			page, len(klines), symbol)
		for _, k := range klines {
			b, err := klineBar(k)
			if err != nil {
				return nil, errors.Annotate(err, "failed to parse klines for %s", symbol)
			}
			res = append(res, b)
		}
		if len(klines) < pageSize {
			break
		}
		from = klines[len(klines)-1].CloseTime + 1
	}
	return res, nil
}
