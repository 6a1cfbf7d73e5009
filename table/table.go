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

package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/stockparfait/errors"
)

// Row interface that a table row representation must implement.
type Row interface {
	CSV() []string // an encoding/csv compatible row representation
}

// Table container.
//
// A typical use:
//   type PriceRow struct {
//     Date  db.Date
//     Close float64
//   }
//
//   func (r PriceRow) CSV() []string {
//     return []string{r.Date.String(), fmt.Sprintf("%g", r.Close)}
//   }
//   t := NewTable("Date", "Close")
//   t.AddRow(PriceRow{db.NewDate(2020, 1, 2), 1.0})
type Table struct {
	Header []string // optional, may be nil
	Rows   []Row
}

// NewTable creates a new Table instance with optional column headers. When
// present, the number of headers is expected to match the size of each Row.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// AddRow adds one or more rows to the table.
func (t *Table) AddRow(rows ...Row) {
	t.Rows = append(t.Rows, rows...)
}

// Params are parameters for pretty-printing or CSV export of Table data.
type Params struct {
	Rows        int  // max. number of leading rows to write; 0 = unlimited (default)
	Tail        int  // with Rows > 0, also write this many trailing rows
	NoHeader    bool // whether to print the header, default - yes
	MaxColWidth int  // for WriteText only; 0 = unlimited, otherwise must be >= 4
}

// selectRows applies the Rows and Tail limits. skipped is the number of rows
// left out between the head and the tail.
func (t *Table) selectRows(p Params) (head, tail []Row, skipped int) {
	if p.Rows <= 0 || p.Rows+p.Tail >= len(t.Rows) {
		return t.Rows, nil, 0
	}
	head = t.Rows[:p.Rows]
	if p.Tail > 0 {
		tail = t.Rows[len(t.Rows)-p.Tail:]
	}
	return head, tail, len(t.Rows) - len(head) - len(tail)
}

// WriteCSV writes the table to w in CSV format. Rows skipped between the head
// and the tail are simply omitted.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	head, tail, _ := t.selectRows(p)
	for _, rows := range [][]Row{head, tail} {
		for _, r := range rows {
			if err := cw.Write(r.CSV()); err != nil {
				return errors.Annotate(err, "failed to write row")
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// textWriter lays out rows in right-aligned columns.
type textWriter struct {
	w        io.Writer
	maxWidth int
	widths   []int
}

func (tw *textWriter) update(row []string) error {
	if len(row) == 0 {
		return errors.Reason("row size = 0")
	}
	if tw.widths == nil {
		tw.widths = make([]int, len(row))
	}
	if len(row) != len(tw.widths) {
		return errors.Reason("row size [%d] != expected size [%d]",
			len(row), len(tw.widths))
	}
	for i, s := range row {
		l := len([]rune(s))
		if tw.maxWidth > 0 && l > tw.maxWidth {
			l = tw.maxWidth
		}
		if l > tw.widths[i] {
			tw.widths[i] = l
		}
	}
	return nil
}

func (tw *textWriter) write(row []string) error {
	cells := make([]string, len(row))
	for i, s := range row {
		if r := []rune(s); len(r) > tw.widths[i] {
			s = string(r[:tw.widths[i]-2]) + ".."
		}
		cells[i] = fmt.Sprintf("%*s", tw.widths[i], s)
	}
	_, err := fmt.Fprintln(tw.w, strings.Join(cells, " | "))
	return err
}

// filler is a row of the column width made of c.
func (tw *textWriter) filler(c string) []string {
	row := make([]string, len(tw.widths))
	for i, w := range tw.widths {
		row[i] = strings.Repeat(c, w)
	}
	return row
}

// WriteText writes the table as a text formatted for ease of reading. When a
// tail is requested, the rows skipped before it are marked by a row of dots.
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	tw := &textWriter{w: w, maxWidth: p.MaxColWidth}
	withHeader := !p.NoHeader && len(t.Header) > 0
	head, tail, skipped := t.selectRows(p)

	if withHeader {
		if err := tw.update(t.Header); err != nil {
			return errors.Annotate(err, "failed to update header widths")
		}
	}
	for _, rows := range [][]Row{head, tail} {
		for _, r := range rows {
			if err := tw.update(r.CSV()); err != nil {
				return errors.Annotate(err, "failed to update row widths")
			}
		}
	}
	if tw.widths == nil {
		return nil
	}

	if withHeader {
		if err := tw.write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
		if err := tw.write(tw.filler("-")); err != nil {
			return errors.Annotate(err, "failed to write header separator")
		}
	}
	for _, r := range head {
		if err := tw.write(r.CSV()); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	if skipped > 0 && len(tail) > 0 {
		if err := tw.write(tw.filler(".")); err != nil {
			return errors.Annotate(err, "failed to write skipped rows marker")
		}
	}
	for _, r := range tail {
		if err := tw.write(r.CSV()); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	return nil
}
