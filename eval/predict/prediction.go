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

package predict

// Prediction is a result of a binary classifier applied to a single
// feature vector.
type Prediction struct {

	// Votes contains per-class support, index 0 = "not successful",
	// index 1 = "successful"
	Votes []float64

	PredictedClass int
}

// PositiveVote returns support for the "successful" class. Models
// which produced less than two votes (e.g. a forest trained on
// a single class) report zero.
func (p Prediction) PositiveVote() float64 {
	if len(p.Votes) < 2 {
		return 0
	}
	return p.Votes[1]
}

// FromProbability creates a prediction out of a probability
// of the positive class. The class is positive only if the probability
// is strictly above 0.5.
func FromProbability(prob float64) Prediction {
	ans := Prediction{Votes: []float64{1 - prob, prob}}
	if prob > 0.5 {
		ans.PredictedClass = 1
	}
	return ans
}
