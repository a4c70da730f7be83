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

package split

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// Fold is a single cross-validation round. Both fields contain
// positions within the partition the folds were created from.
type Fold struct {
	Train      []int
	Validation []int
}

// StratifiedKFold splits labels into k folds so that each fold
// preserves the class ratio. Each class must have at least k members.
func StratifiedKFold(labels []int, k int, seed uint64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("number of folds must be at least 2 (found %d)", k)
	}
	byClass := make([][]int, numClasses)
	for i, y := range labels {
		if y < 0 || y >= numClasses {
			return nil, fmt.Errorf("invalid label %d at position %d", y, i)
		}
		byClass[y] = append(byClass[y], i)
	}
	for c, members := range byClass {
		if len(members) < k {
			return nil, fmt.Errorf(
				"class %d has %d training records, %d folds requested: %w",
				c, len(members), k, ErrStratification)
		}
	}
	rng := rand.New(rand.NewPCG(seed, uint64(k)))
	assignment := make([]int, len(labels))
	next := 0
	for _, members := range byClass {
		idxs := slices.Clone(members)
		rng.Shuffle(len(idxs), func(i, j int) { idxs[i], idxs[j] = idxs[j], idxs[i] })
		for _, idx := range idxs {
			assignment[idx] = next % k
			next++
		}
	}
	folds := make([]Fold, k)
	for i, f := range assignment {
		for j := range folds {
			if j == f {
				folds[j].Validation = append(folds[j].Validation, i)

			} else {
				folds[j].Train = append(folds[j].Train, i)
			}
		}
	}
	return folds, nil
}
