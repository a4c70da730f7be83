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

package eval

import (
	"context"
	"errors"
	"slices"

	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/czcorpus/vgsales/eval/predict"
)

var (
	ErrEmptySearchSpace = errors.New("empty search space")
	ErrNoSuchFamily     = errors.New("no such model family")
	ErrAllFailed        = errors.New("all candidates failed")
	ErrNoResult         = errors.New("no successful evaluation result")
)

// Classifier is a generalization of a binary classifier predicting
// commercial success of a game from its feature vector.
type Classifier interface {

	// Fit trains the classifier. The method should not keep
	// references to the provided data after it returns.
	Fit(ctx context.Context, X [][]float64, y []int) error

	Predict(x []float64) predict.Prediction
	GetInfo() string
	SaveToFile(string) error
}

// Family describes a kind of classifier which can be instantiated
// with different hyperparameters.
type Family struct {
	Name string

	// Rank orders families by their inherent complexity. It is used
	// to break ties between families with the same validation score
	// (lower wins).
	Rank int

	New func(params modutils.Params) (Classifier, error)

	// Complexity orders hyperparameter assignments of the family
	// (lower = simpler model).
	Complexity func(params modutils.Params) float64
}

// Registry provides model families by their names
type Registry map[string]Family

func (r Registry) Lookup(name string) (Family, bool) {
	f, ok := r[name]
	return f, ok
}

// Names returns registered family names ordered by their rank
func (r Registry) Names() []string {
	ans := make([]string, 0, len(r))
	for k := range r {
		ans = append(ans, k)
	}
	slices.SortFunc(ans, func(a, b string) int {
		return r[a].Rank - r[b].Rank
	})
	return ans
}

// ----------------------------

// SearchSpace maps each hyperparameter name to an ordered
// list of values to try.
type SearchSpace map[string][]float64

// Axes returns hyperparameter names in a stable order
func (s SearchSpace) Axes() []string {
	ans := make([]string, 0, len(s))
	for k := range s {
		ans = append(ans, k)
	}
	slices.Sort(ans)
	return ans
}

// Size returns number of all combinations of values
func (s SearchSpace) Size() int {
	if len(s) == 0 {
		return 0
	}
	ans := 1
	for _, v := range s {
		ans *= len(v)
	}
	return ans
}

// Candidates returns the cartesian product of all axes. The order
// is deterministic, the last axis (by name) changes the fastest.
func (s SearchSpace) Candidates() []modutils.Params {
	size := s.Size()
	if size == 0 {
		return []modutils.Params{}
	}
	axes := s.Axes()
	ans := make([]modutils.Params, size)
	for i := range ans {
		params := make(modutils.Params, len(axes))
		rest := i
		for j := len(axes) - 1; j >= 0; j-- {
			values := s[axes[j]]
			params[axes[j]] = values[rest%len(values)]
			rest /= len(values)
		}
		ans[i] = params
	}
	return ans
}
