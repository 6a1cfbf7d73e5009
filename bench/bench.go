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

// Package bench times function calls.
package bench

import (
	"fmt"
	"sort"
	"time"

	"github.com/stockparfait/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Params are named parameters passed to a timed function.
type Params map[string]any

// Func is a function being timed.
type Func func(p Params)

// TimeIt returns the wall-clock time of a single f(params) call in
// microseconds.
func TimeIt(f Func, params Params) int64 {
	start := time.Now()
	f(params)
	return time.Since(start).Microseconds()
}

// Summary of repeated timings, all in microseconds.
type Summary struct {
	Runs   int
	Mean   float64
	StdDev float64 // 0 for a single run
	Median float64
	Min    float64
	Max    float64
}

func (s Summary) String() string {
	return fmt.Sprintf("runs=%d mean=%.1fus stddev=%.1fus median=%.1fus min=%.0fus max=%.0fus",
		s.Runs, s.Mean, s.StdDev, s.Median, s.Min, s.Max)
}

// Profile times runs calls of f(params) and summarizes them.
func Profile(f Func, params Params, runs int) (Summary, error) {
	if runs < 1 {
		return Summary{}, errors.Reason("runs=%d must be >= 1", runs)
	}
	xs := make([]float64, runs)
	for i := range xs {
		xs[i] = float64(TimeIt(f, params))
	}
	sort.Float64s(xs)
	s := Summary{
		Runs:   runs,
		Mean:   stat.Mean(xs, nil),
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
		Min:    floats.Min(xs),
		Max:    floats.Max(xs),
	}
	if runs > 1 {
		s.StdDev = stat.StdDev(xs, nil)
	}
	return s, nil
}
