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
	"hash/fnv"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/czcorpus/vgsales/split"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

const scoreEpsilon = 1e-12

// CandidateScore is a cross-validation outcome of a single
// hyperparameter assignment.
type CandidateScore struct {
	Params     modutils.Params `json:"params" msgpack:"params"`
	Mean       float64         `json:"mean" msgpack:"mean"`
	Std        float64         `json:"std" msgpack:"std"`
	FoldScores []float64       `json:"foldScores" msgpack:"foldScores"`
	Complexity float64         `json:"complexity" msgpack:"complexity"`
	Err        string          `json:"err,omitempty" msgpack:"err,omitempty"`
}

func (cs CandidateScore) Failed() bool {
	return cs.Err != ""
}

// cvFold is a cross-validation round materialized
// as a pair of partitions
type cvFold struct {
	train      *split.Partition
	validation *split.Partition
}

func makeFolds(train *split.Partition, k int, seed uint64) ([]cvFold, error) {
	folds, err := split.StratifiedKFold(train.Y, k, seed)
	if err != nil {
		return nil, err
	}
	ans := make([]cvFold, len(folds))
	for i, f := range folds {
		ans[i] = cvFold{
			train:      train.Subset(fmt.Sprintf("fold-%d-train", i), f.Train),
			validation: train.Subset(fmt.Sprintf("fold-%d-validation", i), f.Validation),
		}
	}
	return ans, nil
}

// selectCandidates returns either the full grid or, if iterations is
// positive and smaller than the grid, a random sample of the grid
// (keeping the grid order).
func selectCandidates(space SearchSpace, iterations int, seed uint64, family string) []modutils.Params {
	all := space.Candidates()
	if iterations <= 0 || iterations >= len(all) {
		return all
	}
	h := fnv.New64a()
	h.Write([]byte(family))
	rng := rand.New(rand.NewPCG(seed, h.Sum64()))
	chosen := rng.Perm(len(all))[:iterations]
	slices.Sort(chosen)
	ans := make([]modutils.Params, len(chosen))
	for i, idx := range chosen {
		ans[i] = all[idx]
	}
	return ans
}

// fitAndScore trains a new instance of the family on the train partition
// and scores it on the test one. Panics are reported as errors.
func fitAndScore(
	ctx context.Context,
	family Family,
	params modutils.Params,
	train, test *split.Partition,
	scorer Scorer,
) (score float64, confusion Confusion, model Classifier, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s (%s) panicked: %v", family.Name, params, r)
		}
	}()
	model, err = family.New(params)
	if err != nil {
		return
	}
	if err = model.Fit(ctx, train.X, train.Y); err != nil {
		return
	}
	confusion = Evaluate(model, test.X, test.Y)
	score = scorer.Score(confusion)
	return
}

// crossValidate scores all candidates on all folds. Each (candidate, fold)
// pair is an independent task, results are stored into pre-indexed slots
// so the outcome does not depend on the degree of parallelism.
func crossValidate(
	ctx context.Context,
	family Family,
	candidates []modutils.Params,
	folds []cvFold,
	scorer Scorer,
	parallelism int,
	bar *progressbar.ProgressBar,
) ([]CandidateScore, error) {
	scores := make([][]float64, len(candidates))
	errs := make([][]error, len(candidates))
	for i := range candidates {
		scores[i] = make([]float64, len(folds))
		errs[i] = make([]error, len(folds))
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for ci := range candidates {
		for fi := range folds {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				score, _, _, err := fitAndScore(
					gctx, family, candidates[ci], folds[fi].train, folds[fi].validation, scorer)
				scores[ci][fi] = score
				errs[ci][fi] = err
				bar.Add(1)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ans := make([]CandidateScore, len(candidates))
	for ci, params := range candidates {
		ans[ci] = CandidateScore{
			Params:     params,
			FoldScores: scores[ci],
			Complexity: family.Complexity(params),
		}
		for _, err := range errs[ci] {
			if err != nil {
				ans[ci].Err = err.Error()
				break
			}
		}
		if ans[ci].Failed() {
			ans[ci].Mean = math.NaN()
			ans[ci].Std = math.NaN()
			continue
		}
		ans[ci].Mean, ans[ci].Std = stat.MeanStdDev(scores[ci], nil)
	}
	return ans, nil
}

// bestCandidate returns the index of the candidate with the highest
// mean score. Ties are resolved in favor of the lower complexity, then
// in favor of the earlier grid position. -1 is returned if all the
// candidates failed.
func bestCandidate(scores []CandidateScore) int {
	best := -1
	for i, cs := range scores {
		if cs.Failed() {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		curr := scores[best]
		if cs.Mean > curr.Mean+scoreEpsilon {
			best = i

		} else if math.Abs(cs.Mean-curr.Mean) <= scoreEpsilon && cs.Complexity < curr.Complexity {
			best = i
		}
	}
	return best
}
