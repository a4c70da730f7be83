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

package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/czcorpus/vgsales/cnf"
	"github.com/czcorpus/vgsales/dataset"
	"github.com/czcorpus/vgsales/eval"
	"github.com/czcorpus/vgsales/eval/families"
	"github.com/czcorpus/vgsales/history"
	"github.com/czcorpus/vgsales/profile"
	"github.com/czcorpus/vgsales/report"
	"github.com/czcorpus/vgsales/split"
	"github.com/rs/zerolog/log"
)

// stageError is a fatal error of a pipeline stage. Each stage
// has its own exit code.
type stageError struct {
	stage    string
	exitCode int
	err      error
}

func (se *stageError) Error() string {
	return fmt.Sprintf("%s failed: %s", se.stage, se.err)
}

func (se *stageError) Unwrap() error {
	return se.err
}

func failStage(stage string, exitCode int, err error) error {
	return &stageError{stage: stage, exitCode: exitCode, err: err}
}

type runOutcome struct {
	dataset *dataset.Dataset
	results []*eval.EvaluationResult
	test    *eval.TestReport
	runID   int64
}

func newReporter(conf *cnf.Conf, out io.Writer) *report.Reporter {
	return &report.Reporter{
		Out:             out,
		DatasetPath:     conf.DatasetPath,
		MisclassOutPath: conf.MisclassOutPath,
		ResultsOutPath:  conf.ResultsOutPath,
		ModelDir:        conf.ModelDir,
	}
}

// loadAndProfile reads the configured dataset and prints its profile
func loadAndProfile(conf *cnf.Conf, rep *report.Reporter) (*dataset.Dataset, error) {
	ds, err := dataset.LoadCSV(conf.DatasetPath)
	if err != nil {
		return nil, failStage("loading dataset", exitErrorInput, err)
	}
	summary, recs := profile.Analyze(ds, !conf.SkipRecommendations)
	rep.ShowProfile(summary, recs)
	return ds, nil
}

// runPipeline performs the whole learning process: loading, profiling,
// cleaning, labeling, splitting, model comparison, the final test and
// storing of the configured artifacts.
func runPipeline(ctx context.Context, conf *cnf.Conf, out io.Writer) (*runOutcome, error) {
	t0 := time.Now()
	rep := newReporter(conf, out)
	ds, err := loadAndProfile(conf, rep)
	if err != nil {
		return nil, err
	}
	features, err := dataset.NewFeatureSet(conf.NumericFeatures, conf.CategoricalFeatures)
	if err != nil {
		return nil, failStage("preparing features", exitErrorConfig, err)
	}
	if err := features.CheckColumns(ds); err != nil {
		return nil, failStage("preparing features", exitErrorInput, err)
	}

	cleaning, err := dataset.ApplyMissingPolicy(
		ds, conf.MissingPolicy, conf.Target.SalesColumn, conf.FeatureColumns())
	if err != nil {
		return nil, failStage("cleaning dataset", exitErrorCleaning, err)
	}
	rep.ShowCleaning(cleaning)

	target, err := dataset.BuildTarget(ds, conf.Target)
	if err != nil {
		return nil, failStage("building target", exitErrorTarget, err)
	}
	rep.ShowTarget(target)

	splits, err := split.Stratified(ds, features, conf.Partitioning())
	if err != nil {
		return nil, failStage("splitting dataset", exitErrorSplit, err)
	}
	rep.ShowSplits(splits)

	evaluator := eval.NewEvaluator(families.Default(), conf.EvaluatorConf())
	results, err := evaluator.Run(ctx, splits.Train, splits.Validation, conf.FamilySpecs())
	if err != nil {
		return nil, failStage("evaluating models", exitErrorEvaluation, err)
	}
	rep.ShowResults(results, conf.Scoring)
	baselines := eval.Baselines(splits.Validation, conf.Scoring)
	rep.ShowBaselines(baselines, conf.Scoring)

	best := eval.Best(results)
	testReport, err := eval.FinalTest(ctx, best, splits.Test, conf.Scoring)
	if err != nil {
		return nil, failStage("final test", exitErrorFinalTest, err)
	}
	rep.ShowTestScore(testReport)

	ans := &runOutcome{dataset: ds, results: results, test: testReport}
	if conf.MisclassOutPath != "" {
		if err := rep.SaveMisclassified(ds, testReport); err != nil {
			return ans, failStage("saving misclassified records", exitErrorArtifacts, err)
		}
	}
	if conf.ModelDir != "" {
		if _, err := rep.SaveBestModel(best); err != nil {
			return ans, failStage("saving best model", exitErrorArtifacts, err)
		}
	}
	if conf.ResultsOutPath != "" {
		summary := report.RunSummary{
			Created:      t0,
			DatasetPath:  conf.DatasetPath,
			Seed:         conf.Seed(),
			Cleaning:     cleaning,
			Target:       target,
			FeatureNames: splits.FeatureNames,
			Sizes: map[string]int{
				"train":      splits.Train.Len(),
				"validation": splits.Validation.Len(),
				"test":       splits.Test.Len(),
			},
			Results:   results,
			Baselines: baselines,
			Test:      testReport,
		}
		if err := rep.SaveResults(summary); err != nil {
			return ans, failStage("saving results", exitErrorArtifacts, err)
		}
	}
	if conf.HistoryDBPath != "" {
		run := history.Run{
			Created:        t0,
			Dataset:        conf.DatasetPath,
			SalesColumn:    target.SalesColumn,
			Threshold:      target.Threshold,
			Seed:           conf.Seed(),
			Policy:         string(conf.MissingPolicy),
			TrainSize:      splits.Train.Len(),
			ValidationSize: splits.Validation.Len(),
			TestSize:       splits.Test.Len(),
			BestFamily:     testReport.Family,
			TestMetric:     string(testReport.Metric),
			TestScore:      testReport.Score,
		}
		ans.runID, err = recordRun(conf.HistoryDBPath, run, results)
		if err != nil {
			return ans, failStage("recording run history", exitErrorArtifacts, err)
		}
	}
	log.Info().
		Float64("procTimeSecs", math.Round(time.Since(t0).Seconds()*100)/100).
		Str("bestFamily", testReport.Family).
		Float64("testScore", testReport.Score).
		Msg("pipeline finished")
	return ans, nil
}

func recordRun(dbPath string, run history.Run, results []*eval.EvaluationResult) (int64, error) {
	db, err := history.NewDatabase(dbPath)
	if err != nil {
		return -1, err
	}
	defer db.Close()
	if err := db.Init(); err != nil {
		return -1, err
	}
	return db.RecordRun(run, results)
}
