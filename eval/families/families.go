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

package families

import (
	"github.com/czcorpus/vgsales/eval"
	"github.com/czcorpus/vgsales/eval/dt"
	"github.com/czcorpus/vgsales/eval/lr"
	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/czcorpus/vgsales/eval/nn"
	"github.com/czcorpus/vgsales/eval/rf"
)

// LogisticRegression, DecisionTree, RandomForest and NeuralNetwork are
// ordered by their ranks (i.e. by preference in case of a tie).
var (
	LogisticRegression = eval.Family{
		Name: lr.FamilyName,
		Rank: 1,
		New: func(params modutils.Params) (eval.Classifier, error) {
			return lr.NewModel(params)
		},
		Complexity: lr.Complexity,
	}

	DecisionTree = eval.Family{
		Name: dt.FamilyName,
		Rank: 2,
		New: func(params modutils.Params) (eval.Classifier, error) {
			return dt.NewModel(params)
		},
		Complexity: dt.Complexity,
	}

	RandomForest = eval.Family{
		Name: rf.FamilyName,
		Rank: 3,
		New: func(params modutils.Params) (eval.Classifier, error) {
			return rf.NewModel(params)
		},
		Complexity: rf.Complexity,
	}

	NeuralNetwork = eval.Family{
		Name: nn.FamilyName,
		Rank: 4,
		New: func(params modutils.Params) (eval.Classifier, error) {
			return nn.NewModel(params)
		},
		Complexity: nn.Complexity,
	}
)

// Default returns a registry with all the supported families
func Default() eval.Registry {
	ans := make(eval.Registry)
	for _, f := range []eval.Family{LogisticRegression, DecisionTree, RandomForest, NeuralNetwork} {
		ans[f.Name] = f
	}
	return ans
}

// LoadModel loads a model previously stored by SaveToFile
func LoadModel(family, path string) (eval.Classifier, error) {
	switch family {
	case lr.FamilyName:
		return lr.LoadFromFile(path)
	case dt.FamilyName:
		return dt.LoadFromFile(path)
	case rf.FamilyName:
		return rf.LoadFromFile(path)
	case nn.FamilyName:
		return nn.LoadFromFile(path)
	}
	return nil, eval.ErrNoSuchFamily
}
