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

package dataset

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

type ThresholdMode string

const (
	ThresholdMedian ThresholdMode = "median"
	ThresholdFixed  ThresholdMode = "fixed"
)

// TargetConf specifies how the success label is derived
type TargetConf struct {
	SalesColumn string        `json:"salesColumn"`
	Mode        ThresholdMode `json:"mode"`

	// Threshold is used only in the "fixed" mode
	Threshold float64 `json:"threshold"`
}

func (conf TargetConf) Validate() error {
	if !IsSalesColumn(conf.SalesColumn) {
		return fmt.Errorf("invalid sales column '%s'", conf.SalesColumn)
	}
	switch conf.Mode {
	case ThresholdMedian:
	case ThresholdFixed:
		if conf.Threshold < 0 || IsMissing(conf.Threshold) {
			return fmt.Errorf("invalid fixed threshold %v", conf.Threshold)
		}
	default:
		return fmt.Errorf("unknown threshold mode '%s'", conf.Mode)
	}
	return nil
}

type TargetReport struct {
	SalesColumn string        `json:"salesColumn"`
	Mode        ThresholdMode `json:"mode"`
	Threshold   float64       `json:"threshold"`
	Positive    int           `json:"positive"`
	Negative    int           `json:"negative"`
}

func (r TargetReport) PositiveRate() float64 {
	total := r.Positive + r.Negative
	if total == 0 {
		return 0
	}
	return float64(r.Positive) / float64(total)
}

// BuildTarget labels each record as successful iff its sales value
// is strictly greater than the resolved threshold. The dataset must
// be cleaned first, i.e. no record can miss the sales value.
func BuildTarget(ds *Dataset, conf TargetConf) (TargetReport, error) {
	report := TargetReport{SalesColumn: conf.SalesColumn, Mode: conf.Mode}
	if err := conf.Validate(); err != nil {
		return report, err
	}
	if ds.IsLabeled() {
		return report, fmt.Errorf("dataset already contains the %s column", ColSuccess)
	}
	if !ds.HasColumn(conf.SalesColumn) {
		return report, fmt.Errorf("sales column %s: %w", conf.SalesColumn, ErrMissingColumn)
	}
	if ds.Len() == 0 {
		return report, fmt.Errorf("cannot derive target from an empty dataset")
	}
	values := ds.NumericValues(conf.SalesColumn)
	for i, v := range values {
		if IsMissing(v) {
			return report, fmt.Errorf(
				"record %d (%s) misses %s, missing value policy must be applied first",
				i, ds.Records[i].Name, conf.SalesColumn)
		}
	}

	report.Threshold = conf.Threshold
	if conf.Mode == ThresholdMedian {
		report.Threshold = Median(values)
	}
	for i, v := range values {
		if v > report.Threshold {
			ds.Records[i].Success = 1
			report.Positive++

		} else {
			ds.Records[i].Success = 0
			report.Negative++
		}
	}
	ds.labeled = true
	log.Info().
		Str("salesColumn", report.SalesColumn).
		Str("mode", string(report.Mode)).
		Float64("threshold", report.Threshold).
		Int("positive", report.Positive).
		Int("negative", report.Negative).
		Msg("derived success label")
	return report, nil
}
