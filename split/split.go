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
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync/atomic"

	"github.com/czcorpus/vgsales/dataset"
	"github.com/rs/zerolog/log"
)

const numClasses = 2

var (
	ErrStratification  = errors.New("stratification failed")
	ErrHoldoutConsumed = errors.New("test partition already used")
	ErrMissingValue    = errors.New("missing feature value")
)

// Conf configures partition sizes. Sizes are fractions of the whole
// dataset, the rest is used for training.
type Conf struct {
	ValidationSize float64 `json:"validationSize"`
	TestSize       float64 `json:"testSize"`
	Seed           uint64  `json:"seed"`

	// MinClassCount is the minimum number of members of each class
	// in each partition. Values <= 0 mean 1.
	MinClassCount int `json:"minClassCount"`
}

func (conf Conf) Validate() error {
	if conf.ValidationSize <= 0 || conf.ValidationSize >= 1 {
		return fmt.Errorf("invalid validation size %v", conf.ValidationSize)
	}
	if conf.TestSize <= 0 || conf.TestSize >= 1 {
		return fmt.Errorf("invalid test size %v", conf.TestSize)
	}
	if conf.ValidationSize+conf.TestSize >= 1 {
		return fmt.Errorf(
			"validation and test sizes must sum to less than 1 (found %v)",
			conf.ValidationSize+conf.TestSize)
	}
	return nil
}

func (conf Conf) minClassCount() int {
	if conf.MinClassCount <= 0 {
		return 1
	}
	return conf.MinClassCount
}

// ------------------------------------

// Partition is a set of encoded records along with their labels.
// Indices refer to records of the source dataset.
type Partition struct {
	Name    string
	X       [][]float64
	Y       []int
	Indices []int
}

func (p *Partition) Len() int {
	return len(p.Y)
}

func (p *Partition) NumPositive() int {
	var ans int
	for _, v := range p.Y {
		ans += v
	}
	return ans
}

func (p *Partition) PositiveRate() float64 {
	if len(p.Y) == 0 {
		return 0
	}
	return float64(p.NumPositive()) / float64(len(p.Y))
}

// Subset creates a new partition from rows with specified positions
// (positions within p, not dataset indices).
func (p *Partition) Subset(name string, rows []int) *Partition {
	ans := &Partition{
		Name:    name,
		X:       make([][]float64, len(rows)),
		Y:       make([]int, len(rows)),
		Indices: make([]int, len(rows)),
	}
	for i, r := range rows {
		ans.X[i] = p.X[r]
		ans.Y[i] = p.Y[r]
		ans.Indices[i] = p.Indices[r]
	}
	return ans
}

// ------------------------------------

// Holdout wraps the test partition so it can be accessed
// exactly once.
type Holdout struct {
	part *Partition
	used atomic.Bool
}

// Use returns the test partition. Any subsequent call
// returns ErrHoldoutConsumed.
func (h *Holdout) Use() (*Partition, error) {
	if !h.used.CompareAndSwap(false, true) {
		return nil, ErrHoldoutConsumed
	}
	log.Info().Int("size", h.part.Len()).Msg("test partition released")
	return h.part, nil
}

// Len returns the size of the test partition. It does not consume
// the holdout.
func (h *Holdout) Len() int {
	return h.part.Len()
}

// NumPositive returns the number of positive records in the test
// partition. It does not consume the holdout.
func (h *Holdout) NumPositive() int {
	return h.part.NumPositive()
}

func (h *Holdout) IsUsed() bool {
	return h.used.Load()
}

// ------------------------------------

type Splits struct {
	Train        *Partition
	Validation   *Partition
	Test         *Holdout
	FeatureNames []string

	// PositiveRate is the positive rate of the whole dataset
	PositiveRate float64
}

// Stratified splits a labeled dataset into train, validation and test
// partitions so that each of them preserves the positive rate of the
// whole dataset. The same seed always produces the same partitions.
func Stratified(ds *dataset.Dataset, features *dataset.FeatureSet, conf Conf) (*Splits, error) {
	if err := features.CheckColumns(ds); err != nil {
		return nil, err
	}
	if !ds.IsLabeled() {
		return nil, dataset.ErrNotLabeled
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if err := features.Fit(ds); err != nil {
		return nil, err
	}
	labels, err := ds.Labels()
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("empty dataset: %w", ErrStratification)
	}
	X := make([][]float64, ds.Len())
	for i := range ds.Records {
		X[i] = features.Encode(&ds.Records[i])
		for j, v := range X[i] {
			if math.IsNaN(v) {
				return nil, fmt.Errorf(
					"record %d (%s), feature %s: %w",
					i, ds.Records[i].Name, features.Names()[j], ErrMissingValue)
			}
		}
	}

	n := ds.Len()
	sizes := []int{
		0,
		int(math.Round(float64(n) * conf.ValidationSize)),
		int(math.Round(float64(n) * conf.TestSize)),
	}
	sizes[0] = n - sizes[1] - sizes[2]

	byClass := make([][]int, numClasses)
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	classCounts := []int{len(byClass[0]), len(byClass[1])}
	// quotas[partition][class]
	quotas := make([][]int, len(sizes))
	for p := 1; p < len(sizes); p++ {
		quotas[p] = classQuotas(sizes[p], classCounts, n)
	}
	quotas[0] = make([]int, numClasses)
	for c := 0; c < numClasses; c++ {
		quotas[0][c] = classCounts[c] - quotas[1][c] - quotas[2][c]
	}
	names := []string{"train", "validation", "test"}
	minCount := conf.minClassCount()
	for p, q := range quotas {
		for c, v := range q {
			if v < minCount {
				return nil, fmt.Errorf(
					"%s partition would contain %d records of class %d (min. %d): %w",
					names[p], v, c, minCount, ErrStratification)
			}
		}
	}

	rng := rand.New(rand.NewPCG(conf.Seed, conf.Seed^0x9e3779b97f4a7c15))
	members := make([][]int, len(sizes))
	for c := 0; c < numClasses; c++ {
		idxs := slices.Clone(byClass[c])
		rng.Shuffle(len(idxs), func(i, j int) { idxs[i], idxs[j] = idxs[j], idxs[i] })
		offset := 0
		for p := range sizes {
			members[p] = append(members[p], idxs[offset:offset+quotas[p][c]]...)
			offset += quotas[p][c]
		}
	}

	parts := make([]*Partition, len(sizes))
	for p, m := range members {
		slices.Sort(m)
		parts[p] = &Partition{
			Name:    names[p],
			X:       make([][]float64, len(m)),
			Y:       make([]int, len(m)),
			Indices: m,
		}
		for i, idx := range m {
			parts[p].X[i] = X[idx]
			parts[p].Y[i] = labels[idx]
		}
	}
	ans := &Splits{
		Train:        parts[0],
		Validation:   parts[1],
		Test:         &Holdout{part: parts[2]},
		FeatureNames: features.Names(),
		PositiveRate: ds.PositiveRate(),
	}
	log.Info().
		Uint64("seed", conf.Seed).
		Int("train", ans.Train.Len()).
		Int("validation", ans.Validation.Len()).
		Int("test", ans.Test.Len()).
		Float64("positiveRate", ans.PositiveRate).
		Msg("dataset split")
	return ans, nil
}

// classQuotas distributes a partition size among classes proportionally
// to class counts using the largest remainder method. Ties are resolved
// in favor of the lower class.
func classQuotas(size int, classCounts []int, total int) []int {
	ans := make([]int, len(classCounts))
	remainders := make([]float64, len(classCounts))
	assigned := 0
	for c, cnt := range classCounts {
		ideal := float64(size) * float64(cnt) / float64(total)
		ans[c] = int(math.Floor(ideal))
		remainders[c] = ideal - float64(ans[c])
		assigned += ans[c]
	}
	order := make([]int, len(classCounts))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if remainders[a] > remainders[b] {
			return -1

		} else if remainders[a] < remainders[b] {
			return 1
		}
		return 0
	})
	for i := 0; assigned < size; i++ {
		ans[order[i%len(order)]]++
		assigned++
	}
	return ans
}
