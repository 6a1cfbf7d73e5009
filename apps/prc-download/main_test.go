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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/multiprice/db"
	"github.com/stockparfait/multiprice/download/yahoo"
	"github.com/stockparfait/multiprice/frame"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

const testChart = `{"chart":{"result":[{
  "meta":{"gmtoffset":-18000},
  "timestamp":[1577975400,1578061800],
  "indicators":{
    "quote":[{"open":[1,3],"high":[2,4],"low":[0.5,2.5],"close":[1.5,3.5],"volume":[100,300]}],
    "adjclose":[{"adjclose":[1.25,3.25]}]}}]}}`

func TestMain(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_prc_download")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("parseFlags", t, func() {
		Convey("all flags", func() {
			flags, err := parseFlags([]string{
				"-data", "path/to/data", "-tickers", "aapl,msft", "-source", "polygon",
				"-start", "2020-01-01", "-end", "2020-12-31", "-workers", "3",
				"-log-level", "warning", "-progress=false"})
			So(err, ShouldBeNil)
			So(flags.DataDir, ShouldEqual, "path/to/data")
			So(flags.Tickers, ShouldResemble, []string{"aapl", "msft"})
			So(flags.Source, ShouldEqual, "polygon")
			So(flags.Start, ShouldResemble, db.NewDate(2020, 1, 1))
			So(flags.End, ShouldResemble, db.NewDate(2020, 12, 31))
			So(flags.Workers, ShouldEqual, 3)
			So(flags.LogLevel, ShouldEqual, logging.Warning)
			So(flags.Progress, ShouldBeFalse)
		})

		Convey("defaults", func() {
			flags, err := parseFlags([]string{"-tickers", "aapl"})
			So(err, ShouldBeNil)
			So(flags.Source, ShouldEqual, "yahoo")
			So(flags.Start.IsZero(), ShouldBeTrue)
			So(flags.End.IsZero(), ShouldBeTrue)
			So(flags.Progress, ShouldBeTrue)
		})

		Convey("bad flags", func() {
			_, err := parseFlags([]string{})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{"-tickers", "a", "-source", "nope"})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{"-tickers", "a", "-workers", "-1"})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{"-tickers", "a", "-start", "bad"})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{"-tickers", "a",
				"-start", "2020-02-01", "-end", "2020-01-01"})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("readKeys and source", t, func() {
		cfg := filepath.Join(tmpdir, "keys.toml")
		So(testutil.WriteFile(cfg, `
data_dir = "/some/dir"

[keys]
polygon = "secret"
`), ShouldBeNil)

		keys, err := readKeys(cfg)
		So(err, ShouldBeNil)
		So(keys.Polygon, ShouldEqual, "secret")

		flags, err := parseFlags([]string{"-tickers", "a", "-source", "polygon", "-config", cfg})
		So(err, ShouldBeNil)
		_, err = source(flags, keys)
		So(err, ShouldBeNil)
		_, err = source(flags, &Keys{})
		So(err, ShouldNotBeNil)

		flags.Source = "binance"
		_, err = source(flags, &Keys{})
		So(err, ShouldBeNil)

		c, err := config(flags)
		So(err, ShouldBeNil)
		So(c.DataDir, ShouldEqual, "/some/dir")

		_, err = readKeys(filepath.Join(tmpdir, "missing.toml"))
		So(err, ShouldNotBeNil)
	})

	Convey("downloadAll works", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		server.ResponseBody = []string{testChart}

		ctx := fetch.UseClient(context.Background(), server.Client())
		yahoo.URL = server.URL()
		dataDir := filepath.Join(tmpdir, "data")

		flags, err := parseFlags([]string{"-data", dataDir, "-tickers", "TIC1",
			"-start", "2020-01-01", "-workers", "1"})
		So(err, ShouldBeNil)
		src, err := source(flags, &Keys{})
		So(err, ShouldBeNil)

		var progress bytes.Buffer
		So(downloadAll(ctx, flags, src, &progress), ShouldBeNil)
		So(progress.String(), ShouldContainSubstring, "Downloading")

		f, err := frame.MakePriceFrame(db.NewConfig(dataDir), []string{"tic1"}, "")
		So(err, ShouldBeNil)
		So(f.Dates(), ShouldResemble, []db.Date{db.NewDate(2020, 1, 2), db.NewDate(2020, 1, 3)})
		col, err := f.Column("tic1")
		So(err, ShouldBeNil)
		So(col, ShouldResemble, []float64{1.25, 3.25})
	})
}
