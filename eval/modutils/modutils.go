// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
// Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package modutils

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var dataset2modelRegexp = regexp.MustCompile(`^(.+?)(\.v\d+)?\.(csv|tsv|txt)$`)

// Params is a single assignment of hyperparameter values
// (e.g. max_depth=5). All values are stored as float64, integer
// parameters are expected to be whole numbers.
type Params map[string]float64

// Float returns a value of a parameter or a default one
// in case the parameter is not set.
func (p Params) Float(name string, dflt float64) float64 {
	v, ok := p[name]
	if !ok {
		return dflt
	}
	return v
}

// Int returns an integer value of a parameter. It fails if the value
// is not a whole number.
func (p Params) Int(name string, dflt int) (int, error) {
	v, ok := p[name]
	if !ok {
		return dflt, nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("parameter %s must be an integer, found %v", name, v)
	}
	return int(v), nil
}

// Keys returns parameter names in a stable (sorted) order
func (p Params) Keys() []string {
	ans := make([]string, 0, len(p))
	for k := range p {
		ans = append(ans, k)
	}
	slices.Sort(ans)
	return ans
}

// Clone creates an independent copy of the params
func (p Params) Clone() Params {
	ans := make(Params, len(p))
	for k, v := range p {
		ans[k] = v
	}
	return ans
}

func (p Params) String() string {
	items := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		items = append(items, k+"="+strconv.FormatFloat(p[k], 'g', -1, 64))
	}
	return strings.Join(items, ", ")
}

// ModelFileName creates a name of a model file based on the dataset
// file it was trained on and on the model family, e.g.
// `/data/games.csv` + `random_forest` => `games.model.random_forest.json`.
// The file is placed into the `dir` directory.
func ModelFileName(dir, datasetPath, family string) string {
	base := dataset2modelRegexp.ReplaceAllString(filepath.Base(datasetPath), "$1")
	return filepath.Join(dir, fmt.Sprintf("%s.model.%s.json", base, family))
}
