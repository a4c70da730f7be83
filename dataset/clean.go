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
	"maps"
	"slices"

	"github.com/rs/zerolog/log"
)

// MissingPolicy specifies how records with missing values are treated
type MissingPolicy string

const (
	PolicyDrop   MissingPolicy = "drop"
	PolicyImpute MissingPolicy = "impute"
)

func (p MissingPolicy) Validate() error {
	switch p {
	case PolicyDrop, PolicyImpute:
		return nil
	}
	return fmt.Errorf("unknown missing value policy '%s'", p)
}

// CleaningReport describes changes made by ApplyMissingPolicy
type CleaningReport struct {
	Policy      MissingPolicy  `json:"policy"`
	RowsBefore  int            `json:"rowsBefore"`
	RowsAfter   int            `json:"rowsAfter"`
	Dropped     int            `json:"dropped"`
	ImputedCols map[string]int `json:"imputedCols"`

	// FillValues contains values used for imputation
	// (numbers are formatted).
	FillValues map[string]string `json:"fillValues"`
}

// ImputedColumns returns names of imputed columns in a stable order
func (r CleaningReport) ImputedColumns() []string {
	return slices.Sorted(maps.Keys(r.ImputedCols))
}

// ApplyMissingPolicy resolves missing values in the sales column
// and in the feature columns. Records without the sales value are always
// removed as the label must never be derived from a guessed value.
func ApplyMissingPolicy(
	ds *Dataset,
	policy MissingPolicy,
	salesColumn string,
	featureColumns []string,
) (CleaningReport, error) {
	report := CleaningReport{
		Policy:      policy,
		RowsBefore:  ds.Len(),
		ImputedCols: make(map[string]int),
		FillValues:  make(map[string]string),
	}
	if err := policy.Validate(); err != nil {
		return report, err
	}
	if ds.IsLabeled() {
		return report, fmt.Errorf("cannot clean an already labeled dataset")
	}
	if !ds.HasColumn(salesColumn) || KindOf(salesColumn) != KindNumeric {
		return report, fmt.Errorf("sales column %s: %w", salesColumn, ErrMissingColumn)
	}
	for _, fc := range featureColumns {
		if !ds.HasColumn(fc) {
			return report, fmt.Errorf("feature column %s: %w", fc, ErrMissingColumn)
		}
	}

	dropIf := []string{salesColumn}
	if policy == PolicyDrop {
		dropIf = append(dropIf, featureColumns...)
	}
	kept := make([]GameRecord, 0, ds.Len())
	for _, rec := range ds.Records {
		if !hasMissing(&rec, dropIf) {
			kept = append(kept, rec)
		}
	}
	ds.Records = kept

	if policy == PolicyImpute {
		for _, fc := range featureColumns {
			n, fill, err := imputeColumn(ds, fc)
			if err != nil {
				return report, err
			}
			if n > 0 {
				report.ImputedCols[fc] = n
				report.FillValues[fc] = fill
			}
		}
	}

	report.RowsAfter = ds.Len()
	report.Dropped = report.RowsBefore - report.RowsAfter
	log.Info().
		Str("policy", string(policy)).
		Int("rowsBefore", report.RowsBefore).
		Int("rowsAfter", report.RowsAfter).
		Int("dropped", report.Dropped).
		Any("imputed", report.ImputedCols).
		Msg("applied missing value policy")
	return report, nil
}

func hasMissing(rec *GameRecord, cols []string) bool {
	for _, c := range cols {
		if rec.IsMissingValue(c) {
			return true
		}
	}
	return false
}

func imputeColumn(ds *Dataset, col string) (int, string, error) {
	var missing int
	for i := range ds.Records {
		if ds.Records[i].IsMissingValue(col) {
			missing++
		}
	}
	if missing == 0 {
		return 0, "", nil
	}
	if missing == ds.Len() {
		return 0, "", fmt.Errorf("cannot impute column %s: no values reported", col)
	}
	if KindOf(col) == KindNumeric {
		med := Median(ds.NumericValues(col))
		for i := range ds.Records {
			if ds.Records[i].IsMissingValue(col) {
				ds.Records[i].SetNumeric(col, med)
			}
		}
		return missing, fmt.Sprintf("%.4g", med), nil
	}
	mode := mostFrequent(ds, col)
	for i := range ds.Records {
		if ds.Records[i].IsMissingValue(col) {
			ds.Records[i].SetCategory(col, mode)
		}
	}
	return missing, mode, nil
}

// mostFrequent returns the most frequent non-empty value of a categorical
// column. Ties are resolved in favor of the lexicographically first value.
func mostFrequent(ds *Dataset, col string) string {
	freqs := make(map[string]int)
	for i := range ds.Records {
		if v, ok := ds.Records[i].Category(col); ok && v != "" {
			freqs[v]++
		}
	}
	var ans string
	var best int
	for _, v := range slices.Sorted(maps.Keys(freqs)) {
		if freqs[v] > best {
			ans = v
			best = freqs[v]
		}
	}
	return ans
}

// Median returns median of non-missing values (mean of the two middle
// values for an even count). For no values, NaN is returned.
func Median(values []float64) float64 {
	tmp := make([]float64, 0, len(values))
	for _, v := range values {
		if !IsMissing(v) {
			tmp = append(tmp, v)
		}
	}
	if len(tmp) == 0 {
		return Missing()
	}
	slices.Sort(tmp)
	mid := len(tmp) / 2
	if len(tmp)%2 == 1 {
		return tmp[mid]
	}
	return (tmp[mid-1] + tmp[mid]) / 2
}
