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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/czcorpus/vgsales/cnf"
	"github.com/czcorpus/vgsales/dataset"
	"github.com/czcorpus/vgsales/eval"
	"github.com/czcorpus/vgsales/history"
	"github.com/czcorpus/vgsales/report"
	"github.com/czcorpus/vgsales/split"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "Name,Platform,Year_of_Release,Genre,Publisher,NA_Sales,EU_Sales," +
	"JP_Sales,Other_Sales,Global_Sales,Critic_Score,User_Score,Rating\n"

// writeGames creates a dataset where the critic score grows with sales
// so the success label is separable. Two additional records miss
// the critic score.
func writeGames(t *testing.T, dir string) string {
	var buf strings.Builder
	buf.WriteString(testHeader)
	platforms := []string{"PS2", "Wii"}
	for i := 0; i < 50; i++ {
		global := 0.1 * float64(i+1)
		fmt.Fprintf(
			&buf, "Game %d,%s,%d,Action,Nintendo,%.2f,%.2f,0,0,%.2f,%d,7.5,E\n",
			i, platforms[i%2], 2000+i%10, global/2, global/2, global, 20+i)
	}
	buf.WriteString("Broken A,PS2,2001,Action,Nintendo,1,1,0,0,2,,tbd,E\n")
	buf.WriteString("Broken B,Wii,2002,Action,Nintendo,0.1,0.1,0,0,0.2,,8,E\n")
	path := filepath.Join(dir, "games.csv")
	require.NoError(t, os.WriteFile(path, []byte(buf.String()), 0644))
	return path
}

func testConf(t *testing.T, dir string, data string) *cnf.Conf {
	path := filepath.Join(dir, "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	conf, err := cnf.LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cnf.ValidateAndDefaults(conf))
	return conf
}

func TestRunPipeline(t *testing.T) {
	dir := t.TempDir()
	writeGames(t, dir)
	conf := testConf(t, dir, `{
		"datasetPath": "games.csv",
		"numericFeatures": ["Critic_Score", "User_Score"],
		"categoricalFeatures": ["Platform"],
		"searchSpaces": {
			"decision_tree": {"max_depth": [1, 2]},
			"logistic_regression": {"C": [1]},
			"svm": {"C": [1]}
		},
		"parallelism": 2
	}`)
	conf.MisclassOutPath = filepath.Join(dir, "misclassified.tsv")
	conf.ResultsOutPath = filepath.Join(dir, "results.msgpack")
	conf.ModelDir = filepath.Join(dir, "models")
	conf.HistoryDBPath = filepath.Join(dir, "history.db")

	var out bytes.Buffer
	outcome, err := runPipeline(context.Background(), conf, &out)
	require.NoError(t, err)

	assert.Equal(t, 50, outcome.dataset.Len())
	require.Len(t, outcome.results, 3)
	assert.True(t, outcome.results[0].IsOK())
	assert.True(t, outcome.results[1].IsOK())
	assert.Equal(t, "svm", outcome.results[2].Family)
	assert.Equal(t, eval.StatusFailed, outcome.results[2].Status)
	assert.Contains(t, []string{"decision_tree", "logistic_regression"}, outcome.test.Family)
	assert.Equal(t, outcome.results[0].Family, outcome.test.Family)
	assert.Equal(t, 10, outcome.test.Size)

	text := out.String()
	assert.Contains(t, text, "rows 52 -> 50 (dropped 2)")
	assert.Contains(t, text, "Global_Sales > 2.5")
	assert.Contains(t, text, "Failed families:")
	assert.Contains(t, text, "Baselines (validation f1)")
	assert.Contains(t, text, "TEST f1 = ")
	assert.Equal(t, 1, strings.Count(text, "TEST f1 = "))

	_, err = os.Stat(conf.MisclassOutPath)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(conf.ModelDir, "games.model."+outcome.test.Family+".json"))
	assert.NoError(t, err)

	summary, err := report.LoadResults(conf.ResultsOutPath)
	require.NoError(t, err)
	assert.Len(t, summary.Results, 3)
	assert.Len(t, summary.Baselines, 2)
	assert.Equal(t, map[string]int{"train": 30, "validation": 10, "test": 10}, summary.Sizes)
	assert.Equal(t, outcome.test.Score, summary.Test.Score)

	db, err := history.NewDatabase(conf.HistoryDBPath)
	require.NoError(t, err)
	defer db.Close()
	run, err := db.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, outcome.runID, run.ID)
	assert.Equal(t, outcome.test.Family, run.BestFamily)
	results, err := db.RunResults(run.ID)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRunPipelineMissingFile(t *testing.T) {
	dir := t.TempDir()
	conf := testConf(t, dir, `{"datasetPath": "nonexistent.csv"}`)
	_, err := runPipeline(context.Background(), conf, &bytes.Buffer{})
	assert.ErrorIs(t, err, dataset.ErrFileNotFound)
	var se *stageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, exitErrorInput, se.exitCode)
}

func TestRunPipelineMissingFeatureColumn(t *testing.T) {
	dir := t.TempDir()
	data := "Name,Platform,Genre,Global_Sales,Critic_Score\nTetris,GB,Puzzle,30.26,90\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "games.csv"), []byte(data), 0644))
	conf := testConf(t, dir, `{"datasetPath": "games.csv", "numericFeatures": ["Critic_Score", "User_Score"]}`)
	var out bytes.Buffer
	_, err := runPipeline(context.Background(), conf, &out)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
	var se *stageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, exitErrorInput, se.exitCode)
	assert.NotContains(t, out.String(), "Model comparison")
}

func TestRunPipelineSingleClass(t *testing.T) {
	dir := t.TempDir()
	writeGames(t, dir)
	conf := testConf(t, dir, `{
		"datasetPath": "games.csv",
		"target": {"mode": "fixed", "threshold": 100},
		"numericFeatures": ["Critic_Score"]
	}`)
	_, err := runPipeline(context.Background(), conf, &bytes.Buffer{})
	assert.ErrorIs(t, err, split.ErrStratification)
	var se *stageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, exitErrorSplit, se.exitCode)
}

func TestRunPipelineCancelled(t *testing.T) {
	dir := t.TempDir()
	writeGames(t, dir)
	conf := testConf(t, dir, `{
		"datasetPath": "games.csv",
		"numericFeatures": ["Critic_Score"],
		"searchSpaces": {"decision_tree": {"max_depth": [1, 2]}}
	}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runPipeline(ctx, conf, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestDatasetOverride(t *testing.T) {
	conf := &cnf.Conf{DatasetPath: "/data/a.csv"}
	datasetOverride("")(conf)
	assert.Equal(t, "/data/a.csv", conf.DatasetPath)
	datasetOverride("/tmp/b.csv")(conf)
	assert.Equal(t, "/tmp/b.csv", conf.DatasetPath)
}

func TestSeedOverride(t *testing.T) {
	configured := uint64(42)
	conf := &cnf.Conf{Split: cnf.SplitConf{Seed: &configured}}
	seedOverride(-1)(conf)
	assert.Equal(t, uint64(42), conf.Seed())
	seedOverride(0)(conf)
	assert.Equal(t, uint64(0), conf.Seed())
	assert.Equal(t, uint64(42), configured)
}
