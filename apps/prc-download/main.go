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
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/multiprice/db"
	"github.com/stockparfait/multiprice/download"
	"github.com/stockparfait/multiprice/download/binance"
	"github.com/stockparfait/multiprice/download/polygon"
	"github.com/stockparfait/multiprice/download/yahoo"
)

type Flags struct {
	DataDir  string // default: ~/.multiprice
	Config   string // optional TOML config
	LogLevel logging.Level
	Tickers  []string `validate:"required"`
	Source   string   `validate:"oneof=yahoo polygon binance"` // default: yahoo
	Start    db.Date
	End      db.Date
	Workers  int `validate:"gte=0"` // 0 = 2*NumCPU
	Progress bool
}

// Keys are the API credentials read from the [keys] section of the config.
type Keys struct {
	Polygon string `toml:"polygon"`
}

type keysConfig struct {
	Keys Keys `toml:"keys"`
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
	fs := flag.NewFlagSet("prc-download", flag.ExitOnError)
	fs.StringVar(&flags.DataDir, "data",
		filepath.Join(os.Getenv("HOME"), ".multiprice"),
		"directory to save <ticker>_prc.csv files to")
	fs.StringVar(&flags.Config, "config", "", "TOML config file")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.StringVar(&tickers, "tickers", "", "comma-separated tickers to download (required)")
	fs.StringVar(&flags.Source, "source", "yahoo", "price source: yahoo, polygon or binance")
	fs.StringVar(&start, "start", "", "first date, YYYY-MM-DD; default: 1900-01-01")
	fs.StringVar(&end, "end", "", "last date, YYYY-MM-DD; default: latest")
	fs.IntVar(&flags.Workers, "workers", 0, "concurrent downloads; 0 = 2*CPUs")
	fs.BoolVar(&flags.Progress, "progress", true, "show a progress bar")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	for _, t := range strings.Split(tickers, ",") {
		if t = strings.TrimSpace(t); t != "" {
			flags.Tickers = append(flags.Tickers, t)
		}
	}
	if err := validator.New().Struct(&flags); err != nil {
		return nil, errors.Annotate(err, "invalid flags")
	}
	if flags.Start, err = parseDate(start); err != nil {
		return nil, errors.Annotate(err, "invalid -start")
	}
	if flags.End, err = parseDate(end); err != nil {
		return nil, errors.Annotate(err, "invalid -end")
	}
	if !flags.Start.IsZero() && !flags.End.IsZero() && flags.End.Before(flags.Start) {
		return nil, errors.Reason("-end %s is before -start %s", flags.End, flags.Start)
	}
	return &flags, nil
}

// readKeys reads API keys from the config file, if any. The POLYGON_API_KEY
// environment variable overrides the file.
func readKeys(fileName string) (*Keys, error) {
	var c keysConfig
	if fileName != "" {
		f, err := os.Open(fileName)
		if err != nil {
			return nil, errors.Annotate(err, "failed to open config file '%s'", fileName)
		}
		defer f.Close()
		if err := toml.NewDecoder(f).Decode(&c); err != nil {
			return nil, errors.Annotate(err, "failed to decode config file '%s'", fileName)
		}
	}
	if k := os.Getenv("POLYGON_API_KEY"); k != "" {
		c.Keys.Polygon = k
	}
	return &c.Keys, nil
}

func config(flags *Flags) (*db.Config, error) {
	if flags.Config == "" {
		return db.NewConfig(flags.DataDir), nil
	}
	return db.ReadConfig(flags.Config, flags.DataDir)
}

func source(flags *Flags, keys *Keys) (download.Source, error) {
	switch flags.Source {
	case "polygon":
		return polygon.NewSource(keys.Polygon)
	case "binance":
		return binance.NewSource(), nil
	default:
		return yahoo.NewSource(), nil
	}
}

func newProgressBar(n int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(w))
}

func downloadAll(ctx context.Context, flags *Flags, src download.Source, progress io.Writer) error {
	c, err := config(flags)
	if err != nil {
		return errors.Annotate(err, "failed to load config")
	}
	d := &download.Downloader{
		Source:  src,
		Config:  c,
		Workers: flags.Workers,
	}
	if progress != nil {
		bar := newProgressBar(len(flags.Tickers), progress)
		d.OnProgress = func(string, error) { bar.Add(1) }
		defer bar.Finish()
	}
	return d.DownloadAll(ctx, flags.Tickers, flags.Start, flags.End)
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

	keys, err := readKeys(flags.Config)
	if err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
	src, err := source(flags, keys)
	if err != nil {
		logging.Errorf(ctx, "failed to create source: %s", err.Error())
		os.Exit(1)
	}
	var progress io.Writer
	if flags.Progress {
		progress = os.Stderr
	}
	if err := downloadAll(ctx, flags, src, progress); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
