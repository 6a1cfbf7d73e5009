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
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/stockparfait/errors"

	toml "github.com/pelletier/go-toml/v2"
)

// Default values of Config fields.
const (
	DefaultDateColumn = "Date"
	DefaultFileSuffix = "_prc.csv"
	// DefaultPriceColumn is the standardized name of the adjusted close.
	DefaultPriceColumn = "adj_close"
)

// Config locates price files and standardizes their column names. It is
// passed explicitly to the loader.
//
// A TOML config file may look like:
//
//   data_dir = "/path/to/data"
//   [rename]
//   "Adj. Close" = "adj_close"
type Config struct {
	DataDir    string            `toml:"data_dir" validate:"required"`
	DateColumn string            `toml:"date_column" validate:"required"`            // default: "Date"
	FileSuffix string            `toml:"file_suffix" validate:"required,excludes=/"` // default: "_prc.csv"
	// Raw header -> standard name.
	Rename map[string]string `toml:"rename" validate:"dive,keys,required,endkeys,required"`
}

// NewConfig creates a Config with default settings for the data directory.
func NewConfig(dataDir string) *Config {
	c := &Config{DataDir: dataDir}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.DateColumn == "" {
		c.DateColumn = DefaultDateColumn
	}
	if c.FileSuffix == "" {
		c.FileSuffix = DefaultFileSuffix
	}
}

// Validate checks that the Config can locate price files.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Annotate(err, "invalid config")
	}
	return nil
}

// DecodeConfig reads and validates a TOML config. Missing fields are set to
// their defaults; an empty data_dir is replaced by dataDir.
func DecodeConfig(r io.Reader, dataDir string) (*Config, error) {
	var c Config
	if err := toml.NewDecoder(r).Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to decode config")
	}
	if c.DataDir == "" {
		c.DataDir = dataDir
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReadConfig reads a TOML config file, see DecodeConfig.
func ReadConfig(fileName, dataDir string) (*Config, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file '%s'", fileName)
	}
	defer f.Close()

	c, err := DecodeConfig(f, dataDir)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read config file '%s'", fileName)
	}
	return c, nil
}

// PricePath is the location of the ticker's price file. The ticker is
// lower-cased; the file system lookup itself stays case-sensitive.
func (c *Config) PricePath(ticker string) string {
	return filepath.Join(c.DataDir, strings.ToLower(ticker)+c.FileSuffix)
}

// StandardName maps a raw CSV header to its canonical lower_snake_case name,
// e.g. "Adj Close" -> "adj_close". Explicit Rename entries take precedence.
func (c *Config) StandardName(raw string) string {
	if name, ok := c.Rename[raw]; ok {
		return name
	}
	return StandardName(raw)
}

// StandardName is the default header standardization: words are lower-cased
// and joined by underscores. Spaces, dashes, dots and existing underscores
// separate words.
func StandardName(raw string) string {
	words := strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-' || r == '.'
	})
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}
