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
	"io"
	"math"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/czcorpus/vgsales/split"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

const (
	DefaultFolds     = 5
	DefaultViableGap = 0.05
)

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Conf configures the hyperparameter search
type Conf struct {
	Folds int

	// SearchIterations limits the number of candidates per family
	// (randomly sampled from the grid). Zero means the full grid.
	SearchIterations int

	Seed uint64

	// Parallelism is the maximum number of concurrently trained
	// models. Values <= 0 mean GOMAXPROCS.
	Parallelism int

	Scoring   Scorer
	ViableGap float64

	ShowProgress bool
	ProgressOut  io.Writer
}

func (conf Conf) parallelism() int {
	if conf.Parallelism <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return conf.Parallelism
}

// FamilySpec is a family to evaluate along with its search space
type FamilySpec struct {
	Family string
	Space  SearchSpace
}

// EvaluationResult is the outcome of a hyperparameter search
// within a single family.
type EvaluationResult struct {
	Position        int              `json:"position" msgpack:"position"`
	Family          string           `json:"family" msgpack:"family"`
	FamilyRank      int              `json:"familyRank" msgpack:"familyRank"`
	Params          modutils.Params  `json:"params" msgpack:"params"`
	Complexity      float64          `json:"complexity" msgpack:"complexity"`
	CVScore         float64          `json:"cvScore" msgpack:"cvScore"`
	CVStd           float64          `json:"cvStd" msgpack:"cvStd"`
	ValidationScore float64          `json:"validationScore" msgpack:"validationScore"`
	Validation      Confusion        `json:"validation" msgpack:"validation"`
	Gap             float64          `json:"gap" msgpack:"gap"`
	Viable          bool             `json:"viable" msgpack:"viable"`
	NumCandidates   int              `json:"numCandidates" msgpack:"numCandidates"`
	NumFailed       int              `json:"numFailed" msgpack:"numFailed"`
	Candidates      []CandidateScore `json:"candidates" msgpack:"candidates"`
	Status          Status           `json:"status" msgpack:"status"`
	Errors          []string         `json:"errors,omitempty" msgpack:"errors,omitempty"`

	model Classifier
}

func (res *EvaluationResult) IsOK() bool {
	return res.Status == StatusOK
}

// Model returns the best model of the family trained on the whole
// train partition. For failed results, nil is returned.
func (res *EvaluationResult) Model() Classifier {
	return res.model
}

// ErrorSummary returns deduplicated error messages
func (res *EvaluationResult) ErrorSummary() string {
	uniq := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		if !slices.Contains(uniq, e) {
			uniq = append(uniq, e)
		}
	}
	return strings.Join(uniq, "; ")
}

func failedResult(family Family, numCandidates int, errs ...error) *EvaluationResult {
	ans := &EvaluationResult{
		Family:          family.Name,
		FamilyRank:      family.Rank,
		CVScore:         math.NaN(),
		CVStd:           math.NaN(),
		ValidationScore: math.NaN(),
		Gap:             math.NaN(),
		NumCandidates:   numCandidates,
		NumFailed:       numCandidates,
		Status:          StatusFailed,
	}
	for _, err := range errs {
		ans.Errors = append(ans.Errors, err.Error())
	}
	return ans
}

// ----------------------------

// Evaluator compares model families. It never gets access to the test
// partition, the final test is performed by FinalTest.
type Evaluator struct {
	registry Registry
	conf     Conf
}

func NewEvaluator(registry Registry, conf Conf) *Evaluator {
	if conf.Folds == 0 {
		conf.Folds = DefaultFolds
	}
	if conf.Scoring == "" {
		conf.Scoring = ScorerF1
	}
	if conf.ProgressOut == nil {
		conf.ProgressOut = os.Stderr
	}
	return &Evaluator{registry: registry, conf: conf}
}

// Run performs a cross-validated hyperparameter search for each of the
// specified families using the train partition only. The best candidate
// of each family is then refit on the whole train partition and scored
// once on the validation partition. Failing families produce failed
// results, other errors (e.g. too little data for the requested
// number of folds) are returned.
func (e *Evaluator) Run(
	ctx context.Context,
	train, validation *split.Partition,
	specs []FamilySpec,
) ([]*EvaluationResult, error) {
	if err := e.conf.Scoring.Validate(); err != nil {
		return nil, err
	}
	folds, err := makeFolds(train, e.conf.Folds, e.conf.Seed)
	if err != nil {
		return nil, fmt.Errorf("cannot cross-validate: %w", err)
	}

	candidates := make([][]modutils.Params, len(specs))
	var numTasks int
	for i, spec := range specs {
		candidates[i] = selectCandidates(spec.Space, e.conf.SearchIterations, e.conf.Seed, spec.Family)
		numTasks += len(candidates[i])*len(folds) + 1
	}
	bar := progressbar.NewOptions(
		numTasks,
		progressbar.OptionSetWriter(e.conf.ProgressOut),
		progressbar.OptionSetDescription("evaluating models"),
		progressbar.OptionSetVisibility(e.conf.ShowProgress),
	)
	log.Info().
		Int("families", len(specs)).
		Int("folds", len(folds)).
		Int("tasks", numTasks).
		Int("parallelism", e.conf.parallelism()).
		Str("scoring", string(e.conf.Scoring)).
		Msg("starting model evaluation")

	results := make([]*EvaluationResult, 0, len(specs))
	for i, spec := range specs {
		res, err := e.evaluateFamily(ctx, spec, candidates[i], folds, train, validation, bar)
		if err != nil {
			return nil, err
		}
		if res.IsOK() {
			log.Info().
				Str("family", res.Family).
				Str("params", res.Params.String()).
				Float64("cvScore", res.CVScore).
				Float64("validationScore", res.ValidationScore).
				Bool("viable", res.Viable).
				Msg("family evaluated")

		} else {
			log.Warn().
				Str("family", res.Family).
				Str("errors", res.ErrorSummary()).
				Msg("family evaluation failed")
		}
		results = append(results, res)
	}
	bar.Finish()
	RankResults(results)
	return results, nil
}

func (e *Evaluator) evaluateFamily(
	ctx context.Context,
	spec FamilySpec,
	candidates []modutils.Params,
	folds []cvFold,
	train, validation *split.Partition,
	bar *progressbar.ProgressBar,
) (*EvaluationResult, error) {
	family, ok := e.registry.Lookup(spec.Family)
	if !ok {
		bar.Add(len(candidates)*len(folds) + 1)
		return failedResult(
			Family{Name: spec.Family, Rank: math.MaxInt},
			len(candidates),
			fmt.Errorf("%s: %w", spec.Family, ErrNoSuchFamily),
		), nil
	}
	if len(candidates) == 0 {
		bar.Add(1)
		return failedResult(family, 0, fmt.Errorf("%s: %w", spec.Family, ErrEmptySearchSpace)), nil
	}

	scores, err := crossValidate(
		ctx, family, candidates, folds, e.conf.Scoring, e.conf.parallelism(), bar)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", family.Name, err)
	}
	var numFailed int
	var candidateErrs []error
	for _, cs := range scores {
		if cs.Failed() {
			numFailed++
			candidateErrs = append(candidateErrs, fmt.Errorf("%s", cs.Err))
		}
	}
	best := bestCandidate(scores)
	if best < 0 {
		bar.Add(1)
		ans := failedResult(
			family, len(candidates), append([]error{ErrAllFailed}, candidateErrs...)...)
		ans.Candidates = scores
		return ans, nil
	}

	params := scores[best].Params
	valScore, valConfusion, model, err := fitAndScore(
		ctx, family, params, train, validation, e.conf.Scoring)
	bar.Add(1)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		ans := failedResult(family, len(candidates), fmt.Errorf("refit on train data failed: %w", err))
		ans.Candidates = scores
		ans.NumFailed = numFailed
		return ans, nil
	}
	ans := &EvaluationResult{
		Family:          family.Name,
		FamilyRank:      family.Rank,
		Params:          params,
		Complexity:      scores[best].Complexity,
		CVScore:         scores[best].Mean,
		CVStd:           scores[best].Std,
		ValidationScore: valScore,
		Validation:      valConfusion,
		Gap:             scores[best].Mean - valScore,
		NumCandidates:   len(candidates),
		NumFailed:       numFailed,
		Candidates:      scores,
		Status:          StatusOK,
		model:           model,
	}
	for _, err := range candidateErrs {
		ans.Errors = append(ans.Errors, err.Error())
	}
	ans.Viable = ans.Gap <= e.conf.ViableGap
	return ans, nil
}

// RankResults sorts results by validation score (descending). Ties are
// resolved in favor of lower family rank and then lower complexity.
// Failed results are placed last. Positions are numbered from 1.
func RankResults(results []*EvaluationResult) {
	slices.SortStableFunc(results, func(r1, r2 *EvaluationResult) int {
		if r1.IsOK() != r2.IsOK() {
			if r1.IsOK() {
				return -1
			}
			return 1
		}
		if !r1.IsOK() {
			return strings.Compare(r1.Family, r2.Family)
		}
		if math.Abs(r1.ValidationScore-r2.ValidationScore) > scoreEpsilon {
			if r1.ValidationScore > r2.ValidationScore {
				return -1
			}
			return 1
		}
		if r1.FamilyRank != r2.FamilyRank {
			if r1.FamilyRank < r2.FamilyRank {
				return -1
			}
			return 1
		}
		if r1.Complexity < r2.Complexity {
			return -1

		} else if r1.Complexity > r2.Complexity {
			return 1
		}
		return 0
	})
	for i, r := range results {
		r.Position = i + 1
	}
}

// Best returns the top ranked successful result or nil
func Best(results []*EvaluationResult) *EvaluationResult {
	for _, r := range results {
		if r.IsOK() {
			return r
		}
	}
	return nil
}
