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
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/vgsales/cnf"
	"github.com/fatih/color"
)

const (
	actionRun     = "run"
	actionProfile = "profile"
	actionShow    = "show"
	actionHistory = "history"
	actionVersion = "version"
	actionHelp    = "help"
)

const (
	exitErrorGeneralFailure = iota + 1
	exitErrorConfig
	exitErrorInput
	exitErrorCleaning
	exitErrorTarget
	exitErrorSplit
	exitErrorEvaluation
	exitErrorFinalTest
	exitErrorArtifacts
)

var (
	version   string
	buildDate string
	gitCommit string
)

// VersionInfo provides a detailed information about the actual build
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
}

func topLevelUsage() {
	fmt.Fprintf(os.Stderr, "VGSALES - comparing classifiers of video game commercial success\n")
	fmt.Fprintf(os.Stderr, "-----------------------------\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "\t%s\t\t\tshow version info\n", actionVersion)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\tprofile, train, compare and test models\n", actionRun)
	fmt.Fprintf(os.Stderr, "\t%s\t\tshow dataset profile and cleaning recommendations\n", actionProfile)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\tshow results stored by a previous run\n", actionShow)
	fmt.Fprintf(os.Stderr, "\t%s\t\tshow the latest run recorded in the history database\n", actionHistory)
	fmt.Fprintf(os.Stderr, "\nUse `vgsales help ACTION` for information about a specific action\n\n")
}

// datasetOverride replaces the configured dataset path. A relative
// path is resolved against the working directory.
func datasetOverride(path string) func(*cnf.Conf) {
	return func(conf *cnf.Conf) {
		if path == "" {
			return
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		conf.DatasetPath = absPath
	}
}

// seedOverride replaces the configured random seed.
// Negative values keep the configured one.
func seedOverride(seed int64) func(*cnf.Conf) {
	return func(conf *cnf.Conf) {
		if seed < 0 {
			return
		}
		v := uint64(seed)
		conf.Split.Seed = &v
	}
}

func setup(confPath string, overrides ...func(*cnf.Conf)) *cnf.Conf {
	conf, err := cnf.LoadConfig(confPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorConfig)
	}
	if conf.Logging.Level == "" {
		conf.Logging.Level = "info"
	}
	logging.SetupLogging(conf.Logging)
	for _, fn := range overrides {
		fn(conf)
	}
	if err := cnf.ValidateAndDefaults(conf); err != nil {
		color.New(errColor).Fprintln(os.Stderr, fmt.Errorf("invalid configuration: %w", err))
		os.Exit(exitErrorConfig)
	}
	return conf
}

func cleanVersionInfo(v string) string {
	return strings.TrimLeft(strings.Trim(v, "'"), "v")
}

func runActionVersion(ver VersionInfo) {
	fmt.Fprintln(os.Stderr, "vgsales version: ", ver)
}

func main() {
	version := VersionInfo{
		Version:   cleanVersionInfo(version),
		BuildDate: cleanVersionInfo(buildDate),
		GitCommit: cleanVersionInfo(gitCommit),
	}

	cmdRun := flag.NewFlagSet(actionRun, flag.ExitOnError)
	seed := cmdRun.Int64("seed", -1, "random seed for splitting and model search (overrides config)")
	jobs := cmdRun.Int("jobs", 0, "max. number of models trained in parallel (overrides config)")
	datasetPath := cmdRun.String("dataset", "", "path to the dataset CSV file (overrides config)")
	misclassOut := cmdRun.String("misclass-out", "", "a TSV file to store misclassified test records to")
	resultsOut := cmdRun.String("results-out", "", "a file to store run results to")
	modelDir := cmdRun.String("model-dir", "", "a directory to store the best model to")
	historyDB := cmdRun.String("history-db", "", "an SQLite database to record the run to")
	showProgress := cmdRun.Bool("progress", false, "show progress bar of the model search")
	cmdRun.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n\t",
			filepath.Base(os.Args[0]), actionRun)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdRun.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nProfile the dataset, compare configured model families and test the best one\n")
	}

	cmdProfile := flag.NewFlagSet(actionProfile, flag.ExitOnError)
	profileDataset := cmdProfile.String("dataset", "", "path to the dataset CSV file (overrides config)")
	cmdProfile.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n\t",
			filepath.Base(os.Args[0]), actionProfile)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdProfile.PrintDefaults()
	}

	cmdShow := flag.NewFlagSet(actionShow, flag.ExitOnError)
	cmdShow.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s results.msgpack\n\t",
			filepath.Base(os.Args[0]), actionShow)
	}

	cmdHistory := flag.NewFlagSet(actionHistory, flag.ExitOnError)
	cmdHistory.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json\n\t",
			filepath.Base(os.Args[0]), actionHistory)
	}

	cmdVersion := flag.NewFlagSet(actionVersion, flag.ExitOnError)
	cmdHelp := flag.NewFlagSet(actionHelp, flag.ExitOnError)

	action := actionHelp
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	switch action {
	case actionHelp:
		var subj string
		if len(os.Args) > 2 {
			cmdHelp.Parse(os.Args[2:])
			subj = cmdHelp.Arg(0)
		}
		switch subj {
		case actionRun:
			cmdRun.Usage()
		case actionProfile:
			cmdProfile.Usage()
		case actionShow:
			cmdShow.Usage()
		case actionHistory:
			cmdHistory.Usage()
		default:
			topLevelUsage()
		}
	case actionVersion:
		cmdVersion.Parse(os.Args[2:])
		runActionVersion(version)
	case actionRun:
		cmdRun.Parse(os.Args[2:])
		conf := setup(cmdRun.Arg(0), datasetOverride(*datasetPath), seedOverride(*seed))
		if *jobs > 0 {
			conf.Parallelism = *jobs
		}
		if *misclassOut != "" {
			conf.MisclassOutPath = *misclassOut
		}
		if *resultsOut != "" {
			conf.ResultsOutPath = *resultsOut
		}
		if *modelDir != "" {
			conf.ModelDir = *modelDir
		}
		if *historyDB != "" {
			conf.HistoryDBPath = *historyDB
		}
		if *showProgress {
			conf.ShowProgress = true
		}
		runActionRun(conf)
	case actionProfile:
		cmdProfile.Parse(os.Args[2:])
		runActionProfile(setup(cmdProfile.Arg(0), datasetOverride(*profileDataset)))
	case actionShow:
		cmdShow.Parse(os.Args[2:])
		if cmdShow.NArg() < 1 {
			cmdShow.Usage()
			os.Exit(exitErrorGeneralFailure)
		}
		runActionShow(cmdShow.Arg(0))
	case actionHistory:
		cmdHistory.Parse(os.Args[2:])
		runActionHistory(setup(cmdHistory.Arg(0)))
	default:
		fmt.Fprintf(os.Stderr, "Unknown action, please use 'help' to get more information\n")
		os.Exit(exitErrorGeneralFailure)
	}
}
