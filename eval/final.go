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
	"fmt"

	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/czcorpus/vgsales/split"
	"github.com/rs/zerolog/log"
)

// Misclassification is a test record the final model got wrong
type Misclassification struct {
	// Index is the position of the record in the source dataset
	Index        int     `json:"index" msgpack:"index"`
	Actual       int     `json:"actual" msgpack:"actual"`
	Predicted    int     `json:"predicted" msgpack:"predicted"`
	PositiveVote float64 `json:"positiveVote" msgpack:"positiveVote"`
}

// Type returns FP for false positives and FN for false negatives
func (m Misclassification) Type() string {
	if m.Predicted == 1 {
		return "FP"
	}
	return "FN"
}

// TestReport contains the one and only measurement
// performed on the test partition.
type TestReport struct {
	Family        string              `json:"family" msgpack:"family"`
	Params        modutils.Params     `json:"params" msgpack:"params"`
	Metric        Scorer              `json:"metric" msgpack:"metric"`
	Score         float64             `json:"score" msgpack:"score"`
	Precision     float64             `json:"precision" msgpack:"precision"`
	Recall        float64             `json:"recall" msgpack:"recall"`
	F1            float64             `json:"f1" msgpack:"f1"`
	Accuracy      float64             `json:"accuracy" msgpack:"accuracy"`
	Confusion     Confusion           `json:"confusion" msgpack:"confusion"`
	Size          int                 `json:"size" msgpack:"size"`
	Misclassified []Misclassification `json:"misclassified" msgpack:"misclassified"`
}

// FinalTest scores the validated model of the best result on the test
// partition. The holdout can be used only once per split so the test
// data can never take part in model selection.
func FinalTest(
	ctx context.Context,
	best *EvaluationResult,
	holdout *split.Holdout,
	scorer Scorer,
) (*TestReport, error) {
	if best == nil || !best.IsOK() || best.Model() == nil {
		return nil, ErrNoResult
	}
	if err := scorer.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	test, err := holdout.Use()
	if err != nil {
		return nil, fmt.Errorf("failed to run final test: %w", err)
	}
	model := best.Model()
	report := &TestReport{
		Family: best.Family,
		Params: best.Params,
		Metric: scorer,
		Size:   test.Len(),
	}
	for i, x := range test.X {
		pred := model.Predict(x)
		report.Confusion.Add(test.Y[i], pred.PredictedClass)
		if pred.PredictedClass != test.Y[i] {
			report.Misclassified = append(report.Misclassified, Misclassification{
				Index:        test.Indices[i],
				Actual:       test.Y[i],
				Predicted:    pred.PredictedClass,
				PositiveVote: pred.PositiveVote(),
			})
		}
	}
	report.Score = scorer.Score(report.Confusion)
	report.Precision = report.Confusion.Precision()
	report.Recall = report.Confusion.Recall()
	report.F1 = report.Confusion.F1()
	report.Accuracy = report.Confusion.Accuracy()
	log.Info().
		Str("family", report.Family).
		Str("params", report.Params.String()).
		Str("metric", string(scorer)).
		Float64("score", report.Score).
		Int("size", report.Size).
		Msg("final test finished")
	return report, nil
}
