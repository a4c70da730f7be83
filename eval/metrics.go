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
	"fmt"
)

// Confusion is a confusion matrix of a binary classifier
type Confusion struct {
	TP int `json:"tp" msgpack:"tp"`
	FP int `json:"fp" msgpack:"fp"`
	TN int `json:"tn" msgpack:"tn"`
	FN int `json:"fn" msgpack:"fn"`
}

func (c *Confusion) Add(actual, predicted int) {
	switch {
	case actual == 1 && predicted == 1:
		c.TP++
	case actual == 0 && predicted == 1:
		c.FP++
	case actual == 1 && predicted == 0:
		c.FN++
	default:
		c.TN++
	}
}

func (c Confusion) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func (c Confusion) Precision() float64 {
	return ratio(c.TP, c.TP+c.FP)
}

func (c Confusion) Recall() float64 {
	return ratio(c.TP, c.TP+c.FN)
}

func (c Confusion) Accuracy() float64 {
	return ratio(c.TP+c.TN, c.Total())
}

// FBeta returns the weighted harmonic mean of precision and recall
func (c Confusion) FBeta(beta float64) float64 {
	precision := c.Precision()
	recall := c.Recall()
	if precision+recall == 0 {
		return 0
	}
	betaSquared := beta * beta
	return (1 + betaSquared) * (precision * recall) / (betaSquared*precision + recall)
}

func (c Confusion) F1() float64 {
	return c.FBeta(1)
}

func (c Confusion) String() string {
	return fmt.Sprintf("TP: %d, FP: %d, TN: %d, FN: %d", c.TP, c.FP, c.TN, c.FN)
}

// ----------------------------

// Scorer names a metric used to compare models
type Scorer string

const (
	ScorerF1        Scorer = "f1"
	ScorerPrecision Scorer = "precision"
	ScorerRecall    Scorer = "recall"
	ScorerAccuracy  Scorer = "accuracy"
)

func (s Scorer) Validate() error {
	switch s {
	case ScorerF1, ScorerPrecision, ScorerRecall, ScorerAccuracy:
		return nil
	}
	return fmt.Errorf("unknown scoring metric '%s'", s)
}

func (s Scorer) Score(c Confusion) float64 {
	switch s {
	case ScorerPrecision:
		return c.Precision()
	case ScorerRecall:
		return c.Recall()
	case ScorerAccuracy:
		return c.Accuracy()
	default:
		return c.F1()
	}
}

// Evaluate applies a trained classifier to all the rows
// and collects a confusion matrix.
func Evaluate(model Classifier, X [][]float64, y []int) Confusion {
	var ans Confusion
	for i, x := range X {
		ans.Add(y[i], model.Predict(x).PredictedClass)
	}
	return ans
}
