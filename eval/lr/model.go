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

package lr

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/czcorpus/vgsales/eval/predict"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

const (
	FamilyName = "logistic_regression"

	ParamC       = "C"
	ParamMaxIter = "max_iter"

	defaultC       = 1.0
	defaultMaxIter = 100
)

// Model is a L2-regularized logistic regression. The objective
// 0.5*|w|^2 + C*sum(logloss) is minimized using L-BFGS, the intercept
// is not penalized. Features are standardized using the training data.
type Model struct {
	Weights   []float64       `json:"weights"`
	Intercept float64         `json:"intercept"`
	Means     []float64       `json:"means"`
	Scales    []float64       `json:"scales"`
	C         float64         `json:"c"`
	MaxIter   int             `json:"maxIter"`
	Params    modutils.Params `json:"params"`
}

func NewModel(params modutils.Params) (*Model, error) {
	c := params.Float(ParamC, defaultC)
	if !(c > 0) || math.IsInf(c, 0) {
		return nil, fmt.Errorf("invalid regularization strength %s: %v", ParamC, c)
	}
	maxIter, err := params.Int(ParamMaxIter, defaultMaxIter)
	if err != nil {
		return nil, err
	}
	if maxIter < 1 {
		return nil, fmt.Errorf("invalid %s: %d", ParamMaxIter, maxIter)
	}
	return &Model{C: c, MaxIter: maxIter, Params: params.Clone()}, nil
}

// Complexity grows with C as larger C means weaker regularization
func Complexity(params modutils.Params) float64 {
	return params.Float(ParamC, defaultC)
}

func (m *Model) GetInfo() string {
	return fmt.Sprintf("logistic regression, C: %v, max. iterations: %d", m.C, m.MaxIter)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1 + ez)
}

// softplus computes log(1 + exp(z)) without overflow
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func (m *Model) standardize(x []float64) []float64 {
	ans := make([]float64, len(x))
	for i, v := range x {
		ans[i] = (v - m.Means[i]) / m.Scales[i]
	}
	return ans
}

func (m *Model) fitScaling(X [][]float64) {
	dim := len(X[0])
	m.Means = make([]float64, dim)
	m.Scales = make([]float64, dim)
	col := make([]float64, len(X))
	for j := 0; j < dim; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		m.Means[j] = mean
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.Scales[j] = std
	}
}

func (m *Model) Fit(ctx context.Context, X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("failed to train logistic regression - invalid training data size")
	}
	m.fitScaling(X)
	Z := make([][]float64, len(X))
	for i, x := range X {
		Z[i] = m.standardize(x)
	}
	dim := len(X[0])
	// params layout: weights..., intercept
	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			w, b := params[:dim], params[dim]
			loss := 0.5 * floats.Dot(w, w)
			for i, z := range Z {
				s := floats.Dot(w, z) + b
				loss += m.C * (softplus(s) - float64(y[i])*s)
			}
			return loss
		},
		Grad: func(grad, params []float64) {
			w, b := params[:dim], params[dim]
			copy(grad[:dim], w)
			grad[dim] = 0
			for i, z := range Z {
				d := m.C * (sigmoid(floats.Dot(w, z)+b) - float64(y[i]))
				floats.AddScaled(grad[:dim], d, z)
				grad[dim] += d
			}
		},
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	settings := &optimize.Settings{
		MajorIterations:   m.MaxIter,
		GradientThreshold: 1e-6,
	}
	result, err := optimize.Minimize(problem, make([]float64, dim+1), settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("failed to train logistic regression: %w", err)
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("failed to train logistic regression: optimization diverged")
		}
	}
	if err != nil {
		log.Debug().Err(err).Float64("C", m.C).Msg("logistic regression optimizer stopped early")
	}
	m.Weights = append([]float64{}, result.X[:dim]...)
	m.Intercept = result.X[dim]
	log.Debug().
		Int("dataSize", len(X)).
		Float64("C", m.C).
		Int("iterations", result.MajorIterations).
		Str("status", result.Status.String()).
		Msg("trained logistic regression")
	return nil
}

// Probability returns the estimated probability of the positive class
func (m *Model) Probability(x []float64) float64 {
	return sigmoid(floats.Dot(m.Weights, m.standardize(x)) + m.Intercept)
}

func (m *Model) Predict(x []float64) predict.Prediction {
	return predict.FromProbability(m.Probability(x))
}

func (m *Model) SaveToFile(filePath string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to save logistic regression to a file: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to save logistic regression to a file: %w", err)
	}
	return nil
}

func LoadFromFile(filePath string) (*Model, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load logistic regression from file %s: %w", filePath, err)
	}
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to load logistic regression from file %s: %w", filePath, err)
	}
	return &model, nil
}
