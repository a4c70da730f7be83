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

package cnf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/vgsales/dataset"
	"github.com/czcorpus/vgsales/eval"
	"github.com/czcorpus/vgsales/split"
	"github.com/rs/zerolog/log"
)

const (
	dfltSeed           = 42
	dfltValidationSize = 0.2
	dfltTestSize       = 0.2
	dfltPolicy         = dataset.PolicyDrop
)

func dfltNumericFeatures() []string {
	return []string{dataset.ColYear, dataset.ColCriticScore, dataset.ColUserScore}
}

func dfltSearchSpaces() map[string]eval.SearchSpace {
	return map[string]eval.SearchSpace{
		"decision_tree":       {"max_depth": {3, 4, 5, 6, 7}},
		"random_forest":       {"n_estimators": {50, 100, 150, 200}},
		"logistic_regression": {"C": {0.1, 1, 10}},
	}
}

// SplitConf configures partitioning of the dataset.
// A nil Seed means the seed was not specified.
type SplitConf struct {
	ValidationSize float64 `json:"validationSize"`
	TestSize       float64 `json:"testSize"`
	MinClassCount  int     `json:"minClassCount"`
	Seed           *uint64 `json:"seed"`
}

type Conf struct {
	srcPath       string
	Logging       logging.LoggingConf   `json:"logging"`
	DatasetPath   string                `json:"datasetPath"`
	Target        dataset.TargetConf    `json:"target"`
	MissingPolicy dataset.MissingPolicy `json:"missingPolicy"`

	NumericFeatures     []string `json:"numericFeatures"`
	CategoricalFeatures []string `json:"categoricalFeatures"`

	// SkipRecommendations disables the data cleaning advice of the profiler
	SkipRecommendations bool `json:"skipRecommendations"`

	Split SplitConf `json:"split"`

	// SearchSpaces maps model family names to their hyperparameter grids.
	// Only the listed families are evaluated.
	SearchSpaces map[string]eval.SearchSpace `json:"searchSpaces"`

	Folds int `json:"folds"`

	// SearchIterations limits the number of sampled candidates per family.
	// Zero means the whole grid is searched.
	SearchIterations int         `json:"searchIterations"`
	Scoring          eval.Scorer `json:"scoring"`
	Parallelism      int         `json:"parallelism"`
	ViableGap        float64     `json:"viableGap"`
	ShowProgress     bool        `json:"showProgress"`

	MisclassOutPath string `json:"misclassOutPath"`
	ResultsOutPath  string `json:"resultsOutPath"`
	ModelDir        string `json:"modelDir"`
	HistoryDBPath   string `json:"historyDbPath"`
}

// SrcPath returns the path of the file the configuration was loaded from
func (conf *Conf) SrcPath() string {
	return conf.srcPath
}

// FamilySpecs creates evaluator specifications out of configured
// search spaces. Families are ordered by their names so the
// evaluation order is stable.
func (conf *Conf) FamilySpecs() []eval.FamilySpec {
	names := make([]string, 0, len(conf.SearchSpaces))
	for k := range conf.SearchSpaces {
		names = append(names, k)
	}
	slices.Sort(names)
	ans := make([]eval.FamilySpec, len(names))
	for i, name := range names {
		ans[i] = eval.FamilySpec{Family: name, Space: conf.SearchSpaces[name]}
	}
	return ans
}

// Seed returns the configured random seed. It must not be called
// before ValidateAndDefaults.
func (conf *Conf) Seed() uint64 {
	return *conf.Split.Seed
}

// Partitioning returns the configuration of the stratified splitter
func (conf *Conf) Partitioning() split.Conf {
	return split.Conf{
		ValidationSize: conf.Split.ValidationSize,
		TestSize:       conf.Split.TestSize,
		MinClassCount:  conf.Split.MinClassCount,
		Seed:           conf.Seed(),
	}
}

func (conf *Conf) EvaluatorConf() eval.Conf {
	return eval.Conf{
		Folds:            conf.Folds,
		SearchIterations: conf.SearchIterations,
		Seed:             conf.Seed(),
		Parallelism:      conf.Parallelism,
		Scoring:          conf.Scoring,
		ViableGap:        conf.ViableGap,
		ShowProgress:     conf.ShowProgress,
	}
}

// FeatureColumns returns all the configured feature columns
func (conf *Conf) FeatureColumns() []string {
	ans := make([]string, 0, len(conf.NumericFeatures)+len(conf.CategoricalFeatures))
	ans = append(ans, conf.NumericFeatures...)
	return append(ans, conf.CategoricalFeatures...)
}

func LoadConfig(path string) (*Conf, error) {
	if path == "" {
		return nil, fmt.Errorf("cannot load config - path not specified")
	}
	rawData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	var conf Conf
	conf.srcPath = path
	err = json.Unmarshal(rawData, &conf)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	return &conf, nil
}

// ValidateAndDefaults fills in missing values and validates the configuration.
// Relative dataset path is resolved against the directory of the config file.
func ValidateAndDefaults(conf *Conf) error {
	if conf.DatasetPath == "" {
		return fmt.Errorf("datasetPath not specified")
	}
	if !filepath.IsAbs(conf.DatasetPath) && conf.srcPath != "" {
		conf.DatasetPath = filepath.Join(filepath.Dir(conf.srcPath), conf.DatasetPath)
	}

	if conf.Target.SalesColumn == "" {
		conf.Target.SalesColumn = dataset.ColGlobalSales
		log.Warn().Msgf("target.salesColumn not specified, using default: %s", dataset.ColGlobalSales)
	}
	if conf.Target.Mode == "" {
		conf.Target.Mode = dataset.ThresholdMedian
		log.Warn().Msgf("target.mode not specified, using default: %s", dataset.ThresholdMedian)
	}
	if err := conf.Target.Validate(); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}

	if conf.MissingPolicy == "" {
		conf.MissingPolicy = dfltPolicy
		log.Warn().Msgf("missingPolicy not specified, using default: %s", dfltPolicy)
	}
	if err := conf.MissingPolicy.Validate(); err != nil {
		return err
	}

	if len(conf.NumericFeatures) == 0 && len(conf.CategoricalFeatures) == 0 {
		conf.NumericFeatures = dfltNumericFeatures()
		log.Warn().Strs("features", conf.NumericFeatures).Msg("no feature columns specified, using defaults")
	}
	if _, err := dataset.NewFeatureSet(conf.NumericFeatures, conf.CategoricalFeatures); err != nil {
		return fmt.Errorf("invalid feature configuration: %w", err)
	}

	if conf.Split.ValidationSize == 0 {
		conf.Split.ValidationSize = dfltValidationSize
		log.Warn().Msgf("split.validationSize not specified, using default: %.2f", dfltValidationSize)
	}
	if conf.Split.TestSize == 0 {
		conf.Split.TestSize = dfltTestSize
		log.Warn().Msgf("split.testSize not specified, using default: %.2f", dfltTestSize)
	}
	if conf.Split.Seed == nil {
		seed := uint64(dfltSeed)
		conf.Split.Seed = &seed
		log.Warn().Msgf("split.seed not specified, using default: %d", dfltSeed)
	}
	if err := conf.Partitioning().Validate(); err != nil {
		return fmt.Errorf("invalid split configuration: %w", err)
	}

	if len(conf.SearchSpaces) == 0 {
		conf.SearchSpaces = dfltSearchSpaces()
		log.Warn().Msg("searchSpaces not specified, using default grids")
	}
	if conf.Folds == 0 {
		conf.Folds = eval.DefaultFolds
		log.Warn().Msgf("folds not specified, using default: %d", eval.DefaultFolds)
	}
	if conf.Folds < 2 {
		return fmt.Errorf("folds must be at least 2, found %d", conf.Folds)
	}
	if conf.SearchIterations < 0 {
		return fmt.Errorf("searchIterations must not be negative")
	}
	if conf.Scoring == "" {
		conf.Scoring = eval.ScorerF1
		log.Warn().Msgf("scoring not specified, using default: %s", eval.ScorerF1)
	}
	if err := conf.Scoring.Validate(); err != nil {
		return err
	}
	if conf.ViableGap == 0 {
		conf.ViableGap = eval.DefaultViableGap
		log.Warn().Msgf("viableGap not specified, using default: %.2f", eval.DefaultViableGap)
	}
	if conf.ViableGap < 0 {
		return fmt.Errorf("viableGap must not be negative")
	}
	return nil
}
