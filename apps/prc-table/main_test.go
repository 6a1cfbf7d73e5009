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

	"github.com/stockparfait/logging"
	"github.com/stockparfait/multiprice/db"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_prc_table")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("parseFlags", t, func() {
		Convey("with -tickers", func() {
			flags, err := parseFlags([]string{
				"-data", "path/to/data", "-tickers", "a, B,,c",
				"-col", "close", "-log-level", "warning", "-start", "2020-01-02"})
			So(err, ShouldBeNil)
			So(flags.DataDir, ShouldEqual, "path/to/data")
			So(flags.Tickers, ShouldResemble, []string{"a", "B", "c"})
			So(flags.Column, ShouldEqual, "close")
			So(flags.LogLevel, ShouldEqual, logging.Warning)
			So(flags.Start, ShouldResemble, db.NewDate(2020, 1, 2))
			So(flags.End, ShouldResemble, db.Date{})
			So(flags.Precision, ShouldEqual, -1)
		})

		Convey("with -ticker", func() {
			flags, err := parseFlags([]string{"-ticker", "aapl", "-rows", "3"})
			So(err, ShouldBeNil)
			So(flags.Ticker, ShouldEqual, "aapl")
			So(flags.Column, ShouldEqual, "adj_close")
			So(flags.Rows, ShouldEqual, 3)
		})

		Convey("bad flags", func() {
			_, err := parseFlags([]string{})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{"-ticker", "a", "-tickers", "b"})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{"-ticker", "a", "-rows", "-2"})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{"-ticker", "a", "-end", "yesterday"})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("printData works", t, func() {
		So(testutil.WriteFile(filepath.Join(tmpdir, "tic1_prc.csv"), `Date,Close,Adj Close
2020-01-02,1.5,1.0
`), ShouldBeNil)
		So(testutil.WriteFile(filepath.Join(tmpdir, "tic2_prc.csv"), `Date,Close,Adj Close
2020-03-10,,
2020-01-10,2.5,2.0
`), ShouldBeNil)
		ctx := context.Background()

		Convey("one ticker", func() {
			flags, err := parseFlags([]string{"-data", tmpdir, "-ticker", "TIC2", "-csv"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
Date,close,adj_close
2020-01-10,2.5,2
2020-03-10,NaN,NaN
`)
		})

		Convey("joined tickers", func() {
			flags, err := parseFlags([]string{"-data", tmpdir, "-tickers", "tic1,tic2"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
      Date | tic1 | tic2
---------- | ---- | ----
2020-01-02 |    1 |  NaN
2020-01-10 |  NaN |    2
`)
		})

		Convey("joined tickers with a range and a config", func() {
			cfg := filepath.Join(tmpdir, "config.toml")
			So(testutil.WriteFile(cfg, `
[rename]
"Close" = "last"
`), ShouldBeNil)
			flags, err := parseFlags([]string{"-data", tmpdir, "-config", cfg,
				"-tickers", "tic1,tic2", "-col", "last", "-start", "2020-01-05",
				"-precision", "2", "-csv"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
Date,tic1,tic2
2020-01-10,NaN,2.50
`)
		})

		Convey("errors", func() {
			flags, err := parseFlags([]string{"-data", tmpdir, "-tickers", "tic1,nope"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldNotBeNil)

			flags, err = parseFlags([]string{"-data", tmpdir, "-tickers", "tic1", "-col", "open"})
			So(err, ShouldBeNil)
			So(printData(ctx, flags, &buf), ShouldNotBeNil)

			flags, err = parseFlags([]string{"-data", tmpdir, "-ticker", "tic1",
				"-config", filepath.Join(tmpdir, "missing.toml")})
			So(err, ShouldBeNil)
			So(printData(ctx, flags, &buf), ShouldNotBeNil)
		})
	})
}
