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

package db

import (
	"fmt"
)

// FileNotFoundError is returned when a ticker's price file does not exist.
type FileNotFoundError struct {
	Ticker string
	Path   string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("price file for %s not found: '%s'", e.Ticker, e.Path)
}

// ParseError is returned for a malformed price CSV: missing or bad date
// column, unparseable numbers, duplicate dates or columns.
type ParseError struct {
	Source string // file path or other description of the input
	Line   int    // 1-based CSV line, 0 when not applicable
	Err    error
}

func (e *ParseError) Error() string {
	src := e.Source
	if src == "" {
		src = "CSV"
	}
	if e.Line > 0 {
		return fmt.Sprintf("failed to parse %s, line %d: %s", src, e.Line, e.Err)
	}
	return fmt.Sprintf("failed to parse %s: %s", src, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Err }

// ColumnNotFoundError is returned when a requested price column is absent
// from a PriceTable.
type ColumnNotFoundError struct {
	Ticker string // may be empty when the table isn't associated with a ticker
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("column '%s' not found", e.Column)
	}
	return fmt.Sprintf("column '%s' not found for %s", e.Column, e.Ticker)
}
