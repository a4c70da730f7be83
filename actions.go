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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/czcorpus/vgsales/cnf"
	"github.com/czcorpus/vgsales/history"
	"github.com/czcorpus/vgsales/report"
	"github.com/fatih/color"
)

const (
	errColor = color.FgHiRed
)

func exitOnError(err error) {
	if err == nil {
		return
	}
	color.New(errColor).Fprintln(os.Stderr, err)
	var se *stageError
	if errors.As(err, &se) {
		os.Exit(se.exitCode)
	}
	os.Exit(exitErrorGeneralFailure)
}

func runActionProfile(conf *cnf.Conf) {
	rep := newReporter(conf, os.Stdout)
	_, err := loadAndProfile(conf, rep)
	exitOnError(err)
}

func runActionRun(conf *cnf.Conf) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	_, err := runPipeline(ctx, conf, os.Stdout)
	exitOnError(err)
}

func runActionShow(resultsPath string) {
	summary, err := report.LoadResults(resultsPath)
	if err != nil {
		exitOnError(failStage("loading results", exitErrorInput, err))
	}
	rep := &report.Reporter{Out: os.Stdout}
	fmt.Fprintf(os.Stdout, "Dataset: %s, seed: %d\n", summary.DatasetPath, summary.Seed)
	rep.ShowCleaning(summary.Cleaning)
	rep.ShowTarget(summary.Target)
	if summary.Test == nil {
		exitOnError(failStage("loading results", exitErrorInput, errors.New("no final test stored")))
	}
	rep.ShowResults(summary.Results, summary.Test.Metric)
	rep.ShowBaselines(summary.Baselines, summary.Test.Metric)
	rep.ShowTestScore(summary.Test)
}

func runActionHistory(conf *cnf.Conf) {
	if conf.HistoryDBPath == "" {
		exitOnError(failStage("reading history", exitErrorConfig, errors.New("historyDbPath not set")))
	}
	db, err := history.NewDatabase(conf.HistoryDBPath)
	if err != nil {
		exitOnError(failStage("reading history", exitErrorArtifacts, err))
	}
	defer db.Close()
	if err := db.Init(); err != nil {
		exitOnError(failStage("reading history", exitErrorArtifacts, err))
	}
	run, err := db.LatestRun()
	if err != nil {
		exitOnError(failStage("reading history", exitErrorArtifacts, err))
	}
	results, err := db.RunResults(run.ID)
	if err != nil {
		exitOnError(failStage("reading history", exitErrorArtifacts, err))
	}
	rep := &report.Reporter{Out: os.Stdout}
	rep.ShowRun(run, results)
}
