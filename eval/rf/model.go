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

package rf

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/czcorpus/vgsales/eval/predict"
	randomforest "github.com/malaschitz/randomForest"
	"github.com/rs/zerolog/log"
)

const (
	FamilyName = "random_forest"

	ParamNumTrees    = "n_estimators"
	ParamMaxDepth    = "max_depth"
	ParamLeafSize    = "leaf_size"
	ParamMaxFeatures = "max_features"
)

type jsonizedRFModel struct {
	Forest          json.RawMessage `json:"forest"`
	Params          modutils.Params `json:"params"`
	VotingThreshold float64         `json:"votingThreshold"`
}

// Model wraps a Random Forest classifier. Note that the underlying
// library draws bootstrap samples from the process-global random
// generator so two fits on the same data may differ.
type Model struct {
	Forest          *randomforest.Forest `json:"forest"`
	NumTrees        int                  `json:"numTrees"`
	MaxDepth        int                  `json:"maxDepth"`
	LeafSize        int                  `json:"leafSize"`
	MaxFeatures     int                  `json:"maxFeatures"`
	VotingThreshold float64              `json:"votingThreshold"`
	params          modutils.Params
}

// NewModel creates a new Random Forest model. Zero MaxDepth, LeafSize
// and MaxFeatures mean the library defaults.
func NewModel(params modutils.Params) (*Model, error) {
	numTrees, err := params.Int(ParamNumTrees, 100)
	if err != nil {
		return nil, err
	}
	if numTrees < 1 {
		return nil, fmt.Errorf("invalid %s: %d", ParamNumTrees, numTrees)
	}
	maxDepth, err := params.Int(ParamMaxDepth, 0)
	if err != nil {
		return nil, err
	}
	leafSize, err := params.Int(ParamLeafSize, 0)
	if err != nil {
		return nil, err
	}
	maxFeatures, err := params.Int(ParamMaxFeatures, 0)
	if err != nil {
		return nil, err
	}
	if maxDepth < 0 || leafSize < 0 || maxFeatures < 0 {
		return nil, fmt.Errorf("invalid random forest params: %s", params)
	}
	return &Model{
		Forest:          &randomforest.Forest{},
		NumTrees:        numTrees,
		MaxDepth:        maxDepth,
		LeafSize:        leafSize,
		MaxFeatures:     maxFeatures,
		VotingThreshold: 0.5,
		params:          params.Clone(),
	}, nil
}

// Complexity is the number of trees
func Complexity(params modutils.Params) float64 {
	return params.Float(ParamNumTrees, 100)
}

func (m *Model) GetInfo() string {
	return fmt.Sprintf("RF model, num. trees: %d, max. depth: %d", m.NumTrees, m.MaxDepth)
}

// Fit trains the forest. Training data must contain both classes.
func (m *Model) Fit(ctx context.Context, X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("failed to train RF model - invalid training data size")
	}
	if m.MaxFeatures > len(X[0]) {
		return fmt.Errorf(
			"failed to train RF model - %s %d exceeds num. of features %d",
			ParamMaxFeatures, m.MaxFeatures, len(X[0]))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var numPositive int
	for _, v := range y {
		numPositive += v
	}
	log.Debug().
		Int("numPositive", numPositive).
		Int("dataSize", len(X)).
		Int("numTrees", m.NumTrees).
		Msg("training random forest")

	m.Forest = &randomforest.Forest{
		Data: randomforest.ForestData{
			X:     X,
			Class: y,
		},
		MaxDepth:  m.MaxDepth,
		LeafSize:  m.LeafSize,
		MFeatures: m.MaxFeatures,
	}
	m.Forest.Train(m.NumTrees)
	if m.Forest.Classes < 2 {
		return fmt.Errorf("failed to train RF model - training data contain a single class")
	}
	return nil
}

// Predict returns class votes for a feature vector
func (m *Model) Predict(x []float64) predict.Prediction {
	votes := m.Forest.Vote(x)
	var ans int
	if len(votes) > 1 && votes[1] > m.VotingThreshold {
		ans = 1
	}
	return predict.Prediction{
		Votes:          votes,
		PredictedClass: ans,
	}
}

// SaveToFile saves the RF model to a file
func (m *Model) SaveToFile(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to save RF model to a file: %w", err)
	}
	defer file.Close()

	tmpModel := jsonizedRFModel{
		Params:          m.params,
		VotingThreshold: m.VotingThreshold,
	}
	bytes, err := json.Marshal(m.Forest)
	if err != nil {
		return fmt.Errorf("failed to save RF model to a file: %w", err)
	}
	tmpModel.Forest = bytes

	bytes, err = json.Marshal(tmpModel)
	if err != nil {
		return fmt.Errorf("failed to save RF model to a file: %w", err)
	}
	if _, err = file.Write(bytes); err != nil {
		return fmt.Errorf("failed to save RF model to a file: %w", err)
	}
	return nil
}

// LoadFromFile loads a model stored by SaveToFile
func LoadFromFile(filePath string) (*Model, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Random Forest model from file: %w", err)
	}
	var tmpModel jsonizedRFModel
	if err := json.Unmarshal(data, &tmpModel); err != nil {
		return nil, fmt.Errorf("failed to load Random Forest model from file: %w", err)
	}
	model, err := NewModel(tmpModel.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to load Random Forest model from file: %w", err)
	}
	var forest randomforest.Forest
	if err := json.Unmarshal(tmpModel.Forest, &forest); err != nil {
		return nil, fmt.Errorf("failed to load Random Forest model from file: %w", err)
	}
	model.Forest = &forest
	model.VotingThreshold = tmpModel.VotingThreshold
	return model, nil
}
