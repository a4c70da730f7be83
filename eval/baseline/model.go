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

package baseline

import (
	"context"
	"fmt"

	"github.com/czcorpus/vgsales/eval/predict"
)

// Model is a constant classifier which ignores its input and
// always predicts the same class. It serves as a reference point
// for trained models.
type Model struct {
	Class int
}

// AlwaysSuccessful returns a classifier predicting class 1 for any input
func AlwaysSuccessful() *Model {
	return &Model{Class: 1}
}

// NeverSuccessful returns a classifier predicting class 0 for any input
func NeverSuccessful() *Model {
	return &Model{Class: 0}
}

func (m *Model) Fit(ctx context.Context, X [][]float64, y []int) error {
	return ctx.Err()
}

func (m *Model) Predict(x []float64) predict.Prediction {
	if m.Class == 1 {
		return predict.Prediction{
			Votes:          []float64{0, 1},
			PredictedClass: 1,
		}
	}
	return predict.Prediction{
		Votes:          []float64{1, 0},
		PredictedClass: 0,
	}
}

func (m *Model) SaveToFile(string) error {
	return fmt.Errorf("cannot save constant model")
}

func (m *Model) GetInfo() string {
	return fmt.Sprintf("Constant classifier model (always %d)", m.Class)
}
