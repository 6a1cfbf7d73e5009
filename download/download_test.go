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

package download

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stockparfait/multiprice/db"

	. "github.com/smartystreets/goconvey/convey"
)

type testSource struct {
	mu   sync.Mutex
	bars map[string][]Bar
	// the last requested range
	start, end db.Date
}

var _ Source = &testSource{}

func (s *testSource) Prices(ctx context.Context, ticker string, start, end db.Date) ([]Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start, s.end = start, end
	bars, ok := s.bars[ticker]
	if !ok {
		return nil, fmt.Errorf("unknown ticker %s", ticker)
	}
	return append([]Bar(nil), bars...), nil
}

func TestDownload(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_download")
	defer os.RemoveAll(tmpdir)

	Convey("Test setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	nan := math.NaN()
	bars := []Bar{
		{db.NewDate(2020, 1, 3), 3, 3.5, 2.5, 3.25, 3.1, 300},
		{db.NewDate(2020, 1, 2), 1, 1.5, 0.5, 1.25, 1.1, 100},
		{db.NewDate(2020, 1, 6), nan, nan, nan, nan, nan, nan},
	}
	src := &testSource{bars: map[string][]Bar{
		"AAPL": bars,
		"MSFT": bars[:1],
		"NONE": nil,
	}}
	ctx := context.Background()

	Convey("WriteCSV works", t, func() {
		var buf bytes.Buffer
		So(WriteCSV(&buf, bars[:1]), ShouldBeNil)
		So(buf.String(), ShouldEqual, `Date,Open,High,Low,Close,Adj Close,Volume
2020-01-03,3,3.5,2.5,3.25,3.1,300
`)
		buf.Reset()
		So(WriteCSV(&buf, bars[2:]), ShouldBeNil)
		So(buf.String(), ShouldEqual, `Date,Open,High,Low,Close,Adj Close,Volume
2020-01-06,,,,,,
`)
	})

	Convey("Download works", t, func() {
		c := db.NewConfig(tmpdir)

		Convey("writes a file the loader reads back", func() {
			path := filepath.Join(tmpdir, "sub", "aapl_prc.csv")
			So(Download(ctx, src, "AAPL", path, db.Date{}, db.Date{}), ShouldBeNil)
			So(src.start, ShouldResemble, DefaultStart)
			So(src.end, ShouldResemble, db.Date{})

			c.DataDir = filepath.Join(tmpdir, "sub")
			tbl, err := db.LoadPrices(c, "AAPL")
			So(err, ShouldBeNil)
			So(tbl.Dates(), ShouldResemble, []db.Date{
				db.NewDate(2020, 1, 2), db.NewDate(2020, 1, 3), db.NewDate(2020, 1, 6)})
			So(tbl.Columns(), ShouldResemble, []string{
				"open", "high", "low", "close", "adj_close", "volume"})
			adj, err := tbl.Column("adj_close")
			So(err, ShouldBeNil)
			So(adj[:2], ShouldResemble, []float64{1.1, 3.1})
			So(math.IsNaN(adj[2]), ShouldBeTrue)

			entries, err := os.ReadDir(c.DataDir)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 1)
		})

		Convey("passes the date range", func() {
			start := db.NewDate(2020, 1, 1)
			end := db.NewDate(2020, 2, 1)
			So(Download(ctx, src, "MSFT", c.PricePath("MSFT"), start, end), ShouldBeNil)
			So(src.start, ShouldResemble, start)
			So(src.end, ShouldResemble, end)
		})

		Convey("fails on bad input", func() {
			path := c.PricePath("x")
			So(Download(ctx, src, "XYZ", path, db.Date{}, db.Date{}), ShouldNotBeNil)
			So(Download(ctx, src, "NONE", path, db.Date{}, db.Date{}), ShouldNotBeNil)
			So(Download(ctx, src, "AAPL", path,
				db.NewDate(2020, 2, 1), db.NewDate(2020, 1, 1)), ShouldNotBeNil)
			_, err := os.Stat(path)
			So(os.IsNotExist(err), ShouldBeTrue)
		})
	})

	Convey("Downloader works", t, func() {
		dir := filepath.Join(tmpdir, "all")
		var done []string
		d := &Downloader{
			Source:  src,
			Config:  db.NewConfig(dir),
			Workers: 2,
			OnProgress: func(ticker string, err error) {
				done = append(done, ticker)
			},
		}

		Convey("all tickers succeed", func() {
			So(d.DownloadAll(ctx, []string{"AAPL", "MSFT"}, db.Date{}, db.Date{}), ShouldBeNil)
			sort.Strings(done)
			So(done, ShouldResemble, []string{"AAPL", "MSFT"})
			_, err := os.Stat(filepath.Join(dir, "aapl_prc.csv"))
			So(err, ShouldBeNil)
			_, err = os.Stat(filepath.Join(dir, "msft_prc.csv"))
			So(err, ShouldBeNil)
		})

		Convey("failures are reported after all tickers", func() {
			err := d.DownloadAll(ctx, []string{"XYZ", "AAPL", "NONE"}, db.Date{}, db.Date{})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "2 of 3")
			So(err.Error(), ShouldContainSubstring, "NONE, XYZ")
			So(len(done), ShouldEqual, 3)
		})

		Convey("requires a source and a config", func() {
			So((&Downloader{Config: d.Config}).DownloadAll(ctx, nil, db.Date{}, db.Date{}),
				ShouldNotBeNil)
			So((&Downloader{Source: src}).DownloadAll(ctx, nil, db.Date{}, db.Date{}),
				ShouldNotBeNil)
		})
	})
}
