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

package report

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/czcorpus/vgsales/dataset"
	"github.com/czcorpus/vgsales/eval"
	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

// RunSummary is a complete, serializable outcome of a single run
type RunSummary struct {
	Created      time.Time                `msgpack:"created"`
	DatasetPath  string                   `msgpack:"datasetPath"`
	Seed         uint64                   `msgpack:"seed"`
	Cleaning     dataset.CleaningReport   `msgpack:"cleaning"`
	Target       dataset.TargetReport     `msgpack:"target"`
	FeatureNames []string                 `msgpack:"featureNames"`
	Sizes        map[string]int           `msgpack:"sizes"`
	Results      []*eval.EvaluationResult `msgpack:"results"`
	Baselines    []eval.BaselineScore     `msgpack:"baselines"`
	Test         *eval.TestReport         `msgpack:"test"`
}

func errorSize(m eval.Misclassification) float64 {
	return math.Abs(m.PositiveVote - 0.5)
}

// sortedMisclassified orders misclassified records by the size of the error
// (most confident mistakes first), ties are resolved by dataset index.
func sortedMisclassified(items []eval.Misclassification) []eval.Misclassification {
	ans := slices.Clone(items)
	slices.SortFunc(
		ans,
		func(v1, v2 eval.Misclassification) int {
			e1, e2 := errorSize(v1), errorSize(v2)
			if e1 > e2 {
				return -1

			} else if e1 < e2 {
				return 1
			}
			return v1.Index - v2.Index
		},
	)
	return ans
}

// SaveMisclassified writes misclassified test records into a TSV file.
// The dataset must be the one the splits were created from.
func (r *Reporter) SaveMisclassified(ds *dataset.Dataset, rep *eval.TestReport) error {
	if r.MisclassOutPath == "" {
		return fmt.Errorf("misclassOutPath is not set")
	}
	f, err := os.Create(r.MisclassOutPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", r.MisclassOutPath, err)
	}
	defer f.Close()
	wrt := bufio.NewWriter(f)
	fmt.Fprintln(wrt, "type\tvote\tactual\tpredicted\tname\tplatform\tyear")
	for _, item := range sortedMisclassified(rep.Misclassified) {
		if item.Index < 0 || item.Index >= ds.Len() {
			return fmt.Errorf("misclassified record index %d out of range", item.Index)
		}
		rec := ds.Records[item.Index]
		_, err := fmt.Fprintf(
			wrt, "%s\t%.2f\t%d\t%d\t%s\t%s\t%s\n",
			item.Type(), item.PositiveVote, item.Actual, item.Predicted,
			rec.Name, rec.Platform, fmtYear(rec.YearOfRelease))
		if err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
	}
	if err := wrt.Flush(); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	log.Info().
		Str("path", r.MisclassOutPath).
		Int("numItems", len(rep.Misclassified)).
		Msg("saved misclassified test records")
	return nil
}

func fmtYear(v float64) string {
	if dataset.IsMissing(v) {
		return ""
	}
	return fmt.Sprintf("%.0f", v)
}

// SaveResults stores the run summary as a msgpack file
func (r *Reporter) SaveResults(summary RunSummary) error {
	if r.ResultsOutPath == "" {
		return fmt.Errorf("resultsOutPath is not set")
	}
	data, err := msgpack.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize results: %w", err)
	}
	if err := os.WriteFile(r.ResultsOutPath, data, 0644); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	log.Info().Str("path", r.ResultsOutPath).Msg("saved run results")
	return nil
}

// LoadResults reads a run summary stored by SaveResults
func LoadResults(path string) (RunSummary, error) {
	var ans RunSummary
	data, err := os.ReadFile(path)
	if err != nil {
		return ans, fmt.Errorf("failed to load results: %w", err)
	}
	if err := msgpack.Unmarshal(data, &ans); err != nil {
		return ans, fmt.Errorf("failed to load results: %w", err)
	}
	return ans, nil
}

// SaveBestModel stores the model of the best result into ModelDir and
// returns the path of the created file.
func (r *Reporter) SaveBestModel(best *eval.EvaluationResult) (string, error) {
	if r.ModelDir == "" {
		return "", fmt.Errorf("modelDir is not set")
	}
	if best == nil || best.Model() == nil {
		return "", eval.ErrNoResult
	}
	if err := os.MkdirAll(r.ModelDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	path := modutils.ModelFileName(r.ModelDir, r.DatasetPath, best.Family)
	if err := best.Model().SaveToFile(path); err != nil {
		return "", fmt.Errorf("failed to save model: %w", err)
	}
	log.Info().Str("path", path).Str("family", best.Family).Msg("saved best model")
	return path, nil
}
