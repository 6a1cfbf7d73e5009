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

package main

import (
	"context"
	"flag"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/multiprice/db"
	"github.com/stockparfait/multiprice/frame"
	"github.com/stockparfait/multiprice/table"
)

type Flags struct {
	DataDir  string // default: ~/.multiprice
	Config   string // optional TOML config
	LogLevel logging.Level
	// Exactly one of ticker or tickers must be present.
	Ticker    string   // print all columns of one ticker
	Tickers   []string // print one column of several tickers
	Column    string   // column for -tickers; default: adj_close
	Start     db.Date
	End       db.Date
	Rows      int `validate:"gte=0"`
	Tail      int `validate:"gte=0"`
	Precision int
	CSV       bool // dump CSV format; default: text.
}

func parseDate(s string) (db.Date, error) {
	if s == "" {
		return db.Date{}, nil
	}
	return db.NewDateFromString(s)
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	var tickers, start, end string
	fs := flag.NewFlagSet("prc-table", flag.ExitOnError)
	fs.StringVar(&flags.DataDir, "data",
		filepath.Join(os.Getenv("HOME"), ".multiprice"),
		"directory with <ticker>_prc.csv files")
	fs.StringVar(&flags.Config, "config", "", "TOML config file")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.StringVar(&flags.Ticker, "ticker", "", "ticker to print all prices for")
	fs.StringVar(&tickers, "tickers", "", "comma-separated tickers to join")
	fs.StringVar(&flags.Column, "col", db.DefaultPriceColumn, "price column for -tickers")
	fs.StringVar(&start, "start", "", "first date to print, YYYY-MM-DD")
	fs.StringVar(&end, "end", "", "last date to print, YYYY-MM-DD")
	fs.IntVar(&flags.Rows, "rows", 0, "print at most this many leading rows; 0 = all")
	fs.IntVar(&flags.Tail, "tail", 0, "with -rows, also print this many trailing rows")
	fs.IntVar(&flags.Precision, "precision", -1,
		"decimal places; negative = as many as needed")
	fs.BoolVar(&flags.CSV, "csv", false, "print table in CSV format; default: text")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	for _, t := range strings.Split(tickers, ",") {
		if t = strings.TrimSpace(t); t != "" {
			flags.Tickers = append(flags.Tickers, t)
		}
	}
	if (flags.Ticker == "") == (len(flags.Tickers) == 0) {
		return nil, errors.Reason("expected exactly one of -ticker or -tickers")
	}
	if flags.Start, err = parseDate(start); err != nil {
		return nil, errors.Annotate(err, "invalid -start")
	}
	if flags.End, err = parseDate(end); err != nil {
		return nil, errors.Annotate(err, "invalid -end")
	}
	if err := validator.New().Struct(&flags); err != nil {
		return nil, errors.Annotate(err, "invalid flags")
	}
	return &flags, nil
}

func config(flags *Flags) (*db.Config, error) {
	if flags.Config == "" {
		return db.NewConfig(flags.DataDir), nil
	}
	return db.ReadConfig(flags.Config, flags.DataDir)
}

// pricesRow is a row of all the columns of a single ticker.
type pricesRow struct {
	date      db.Date
	values    []float64
	precision int
}

var _ table.Row = pricesRow{}

func (r pricesRow) CSV() []string {
	res := []string{r.date.String()}
	for _, v := range r.values {
		if math.IsNaN(v) {
			res = append(res, "NaN")
			continue
		}
		res = append(res, strconv.FormatFloat(v, 'f', r.precision, 64))
	}
	return res
}

func pricesTable(ctx context.Context, c *db.Config, flags *Flags) (*table.Table, error) {
	prices, err := db.LoadPrices(c, flags.Ticker)
	if err != nil {
		return nil, err
	}
	cols := prices.Columns()
	values := make([][]float64, len(cols))
	for j, col := range cols {
		if values[j], err = prices.Column(col); err != nil {
			return nil, err
		}
	}
	tbl := table.NewTable(append([]string{"Date"}, cols...)...)
	for i, d := range prices.Dates() {
		if !d.InRange(flags.Start, flags.End) {
			continue
		}
		row := pricesRow{date: d, values: make([]float64, len(cols)), precision: flags.Precision}
		for j := range cols {
			row.values[j] = values[j][i]
		}
		tbl.AddRow(row)
	}
	logging.Debugf(ctx, "loaded %d rows for %s", prices.Len(), flags.Ticker)
	return tbl, nil
}

func frameTable(ctx context.Context, c *db.Config, flags *Flags) (*table.Table, error) {
	f, err := frame.MakePriceFrame(c, flags.Tickers, flags.Column)
	if err != nil {
		return nil, err
	}
	logging.Debugf(ctx, "joined %d tickers into %d rows", len(flags.Tickers), f.Len())
	return f.Range(flags.Start, flags.End).Table(flags.Precision), nil
}

func printData(ctx context.Context, flags *Flags, w io.Writer) error {
	c, err := config(flags)
	if err != nil {
		return errors.Annotate(err, "failed to load config")
	}
	var tbl *table.Table
	if flags.Ticker != "" {
		if tbl, err = pricesTable(ctx, c, flags); err != nil {
			return errors.Annotate(err, "failed to read prices for %s", flags.Ticker)
		}
	} else {
		if tbl, err = frameTable(ctx, c, flags); err != nil {
			return errors.Annotate(err, "failed to join prices for %s",
				strings.Join(flags.Tickers, ","))
		}
	}
	p := table.Params{Rows: flags.Rows, Tail: flags.Tail}
	if flags.CSV {
		if err := tbl.WriteCSV(w, p); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := tbl.WriteText(w, p); err != nil {
		return errors.Annotate(err, "failed to print text")
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := printData(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
