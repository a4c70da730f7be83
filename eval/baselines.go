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
	"github.com/czcorpus/vgsales/eval/baseline"
	"github.com/czcorpus/vgsales/split"
)

// BaselineScore is a score of a constant classifier
type BaselineScore struct {
	Name      string    `json:"name" msgpack:"name"`
	Score     float64   `json:"score" msgpack:"score"`
	Confusion Confusion `json:"confusion" msgpack:"confusion"`
}

// Baselines scores trivial constant classifiers on a partition so
// trained models can be compared with a guess.
func Baselines(p *split.Partition, scorer Scorer) []BaselineScore {
	models := []struct {
		name  string
		model Classifier
	}{
		{"always_successful", baseline.AlwaysSuccessful()},
		{"never_successful", baseline.NeverSuccessful()},
	}
	ans := make([]BaselineScore, len(models))
	for i, m := range models {
		conf := Evaluate(m.model, p.X, p.Y)
		ans[i] = BaselineScore{Name: m.name, Score: scorer.Score(conf), Confusion: conf}
	}
	return ans
}
