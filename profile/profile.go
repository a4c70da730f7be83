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

package profile

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/czcorpus/vgsales/dataset"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	dropColumnMissingRatio = 0.5
	maxOneHotCardinality   = 50
	skewRatio              = 2.0
	minNearDupLength       = 4
	maxNearDupDistance     = 1
	maxListedExamples      = 5

	// pairwise comparison is skipped for columns with more values
	maxNearDupCandidates = 1000
)

// ColumnSummary provides basic statistics of a single column
type ColumnSummary struct {
	Name        string             `json:"name"`
	Kind        dataset.ColumnKind `json:"kind"`
	Missing     int                `json:"missing"`
	Cardinality int                `json:"cardinality"`

	// numeric columns only
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Mean   float64 `json:"mean,omitempty"`
	Std    float64 `json:"std,omitempty"`
	Median float64 `json:"median,omitempty"`
}

func (cs ColumnSummary) MissingRatio(rows int) float64 {
	if rows == 0 {
		return 0
	}
	return float64(cs.Missing) / float64(rows)
}

// Summary is a structural overview of a dataset
type Summary struct {
	Rows    int             `json:"rows"`
	Columns []ColumnSummary `json:"columns"`
}

// Column returns a summary of a named column
func (s Summary) Column(name string) (ColumnSummary, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

// Recommendation is a human readable note on a possible data
// quality issue. The pipeline never acts on recommendations
// automatically.
type Recommendation struct {
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (r Recommendation) String() string {
	return r.Message
}

// Analyze creates a summary of the dataset and optionally a list of
// recommendations regarding data cleaning.
func Analyze(ds *dataset.Dataset, generateRecs bool) (Summary, []Recommendation) {
	summary := Summary{
		Rows:    ds.Len(),
		Columns: make([]ColumnSummary, 0, len(ds.Columns())),
	}
	for _, col := range ds.Columns() {
		if col == dataset.ColSuccess {
			continue
		}
		summary.Columns = append(summary.Columns, summarizeColumn(ds, col))
	}
	log.Info().
		Int("rows", summary.Rows).
		Int("columns", len(summary.Columns)).
		Msg("dataset profiled")
	if !generateRecs {
		return summary, nil
	}
	var recs []Recommendation
	recs = append(recs, missingValueRecs(summary)...)
	recs = append(recs, placeholderRecs(ds)...)
	recs = append(recs, salesConsistencyRecs(ds)...)
	recs = append(recs, duplicateRecs(ds)...)
	recs = append(recs, nearDuplicateCategoryRecs(ds)...)
	recs = append(recs, distributionRecs(summary)...)
	log.Info().Int("recommendations", len(recs)).Msg("generated profile recommendations")
	return summary, recs
}

func summarizeColumn(ds *dataset.Dataset, col string) ColumnSummary {
	ans := ColumnSummary{Name: col, Kind: dataset.KindOf(col)}
	if ans.Kind == dataset.KindNumeric {
		values := make([]float64, 0, ds.Len())
		uniq := make(map[float64]struct{})
		for _, v := range ds.NumericValues(col) {
			if dataset.IsMissing(v) {
				ans.Missing++
				continue
			}
			values = append(values, v)
			uniq[v] = struct{}{}
		}
		ans.Cardinality = len(uniq)
		if len(values) > 0 {
			ans.Min = floats.Min(values)
			ans.Max = floats.Max(values)
			ans.Mean, ans.Std = stat.MeanStdDev(values, nil)
			if math.IsNaN(ans.Std) {
				ans.Std = 0
			}
			ans.Median = dataset.Median(values)
		}
		return ans
	}
	uniq := make(map[string]struct{})
	for i := range ds.Records {
		v, _ := ds.Records[i].Category(col)
		if v == "" {
			ans.Missing++
			continue
		}
		uniq[v] = struct{}{}
	}
	ans.Cardinality = len(uniq)
	return ans
}

func missingValueRecs(summary Summary) []Recommendation {
	var ans []Recommendation
	for _, cs := range summary.Columns {
		if cs.Missing == 0 {
			continue
		}
		ratio := cs.MissingRatio(summary.Rows)
		var advice string
		switch {
		case ratio > dropColumnMissingRatio:
			advice = "consider dropping the column"
		case dataset.IsSalesColumn(cs.Name):
			advice = "rows must be dropped if the column defines success"
		case cs.Kind == dataset.KindNumeric:
			advice = "drop the rows or impute with median"
		default:
			advice = "drop the rows or impute with the most frequent value"
		}
		ans = append(ans, Recommendation{
			Column: cs.Name,
			Message: fmt.Sprintf(
				"%d rows (%.1f%%) missing %s - %s", cs.Missing, ratio*100, cs.Name, advice),
		})
	}
	return ans
}

func placeholderRecs(ds *dataset.Dataset) []Recommendation {
	var ans []Recommendation
	for _, col := range ds.Columns() {
		if n := ds.Placeholders[col]; n > 0 {
			ans = append(ans, Recommendation{
				Column: col,
				Message: fmt.Sprintf(
					"%d rows contain a placeholder (e.g. 'tbd') in %s, loaded as missing", n, col),
			})
		}
	}
	return ans
}

func salesConsistencyRecs(ds *dataset.Dataset) []Recommendation {
	var ans []Recommendation
	for _, col := range ds.Columns() {
		if !dataset.IsSalesColumn(col) {
			continue
		}
		var numNeg int
		for _, v := range ds.NumericValues(col) {
			if v < 0 {
				numNeg++
			}
		}
		if numNeg > 0 {
			ans = append(ans, Recommendation{
				Column:  col,
				Message: fmt.Sprintf("%d rows contain negative values of %s", numNeg, col),
			})
		}
	}
	if !ds.HasColumn(dataset.ColGlobalSales) {
		return ans
	}
	var violations int
	var examples []string
	for i := range ds.Records {
		rec := &ds.Records[i]
		if dataset.IsMissing(rec.GlobalSales) {
			continue
		}
		for _, col := range dataset.RegionalSalesColumns() {
			if v, _ := rec.Numeric(col); !dataset.IsMissing(v) && v > rec.GlobalSales {
				violations++
				if len(examples) < maxListedExamples {
					examples = append(examples, rec.Name)
				}
				break
			}
		}
	}
	if violations > 0 {
		ans = append(ans, Recommendation{
			Column: dataset.ColGlobalSales,
			Message: fmt.Sprintf(
				"%d rows have %s lower than a regional figure (e.g. %s)",
				violations, dataset.ColGlobalSales, strings.Join(examples, ", ")),
		})
	}
	return ans
}

func duplicateRecs(ds *dataset.Dataset) []Recommendation {
	type key struct {
		name     string
		platform string
	}
	counts := make(map[key]int)
	var order []key
	for i := range ds.Records {
		k := key{
			name:     strings.ToLower(ds.Records[i].Name),
			platform: strings.ToLower(ds.Records[i].Platform),
		}
		if counts[k] == 1 {
			order = append(order, k)
		}
		counts[k]++
	}
	if len(order) == 0 {
		return nil
	}
	var numRows int
	examples := make([]string, 0, maxListedExamples)
	for _, k := range order {
		numRows += counts[k]
		if len(examples) < maxListedExamples {
			examples = append(examples, fmt.Sprintf("%s (%s)", k.name, k.platform))
		}
	}
	return []Recommendation{
		{
			Column: dataset.ColName,
			Message: fmt.Sprintf(
				"%d duplicated (Name, Platform) pairs in %d rows, e.g. %s",
				len(order), numRows, strings.Join(examples, ", ")),
		},
	}
}

func nearDuplicateCategoryRecs(ds *dataset.Dataset) []Recommendation {
	var ans []Recommendation
	for _, col := range ds.Columns() {
		if dataset.KindOf(col) != dataset.KindCategorical {
			continue
		}
		uniq := make(map[string]struct{})
		for i := range ds.Records {
			if v, _ := ds.Records[i].Category(col); v != "" {
				uniq[v] = struct{}{}
			}
		}
		if len(uniq) > maxNearDupCandidates {
			continue
		}
		values := make([]string, 0, len(uniq))
		for v := range uniq {
			values = append(values, v)
		}
		slices.Sort(values)
		for i := 0; i < len(values); i++ {
			for j := i + 1; j < len(values); j++ {
				a, b := strings.ToLower(values[i]), strings.ToLower(values[j])
				if len(a) < minNearDupLength || len(b) < minNearDupLength {
					continue
				}
				if levenshtein.ComputeDistance(a, b) <= maxNearDupDistance {
					ans = append(ans, Recommendation{
						Column: col,
						Message: fmt.Sprintf(
							"%s values '%s' and '%s' look like spelling variants", col, values[i], values[j]),
					})
				}
			}
		}
	}
	return ans
}

func distributionRecs(summary Summary) []Recommendation {
	var ans []Recommendation
	for _, cs := range summary.Columns {
		if cs.Kind == dataset.KindText {
			continue
		}
		if cs.Cardinality == 1 {
			ans = append(ans, Recommendation{
				Column:  cs.Name,
				Message: fmt.Sprintf("%s is constant and carries no information", cs.Name),
			})
			continue
		}
		if cs.Kind == dataset.KindCategorical && cs.Cardinality > maxOneHotCardinality {
			ans = append(ans, Recommendation{
				Column: cs.Name,
				Message: fmt.Sprintf(
					"%s has %d distinct values, not suitable for one-hot encoding",
					cs.Name, cs.Cardinality),
			})
		}
		if cs.Kind == dataset.KindNumeric && cs.Median > 0 && cs.Mean > skewRatio*cs.Median {
			ans = append(ans, Recommendation{
				Column: cs.Name,
				Message: fmt.Sprintf(
					"%s is strongly right-skewed (mean %.3f, median %.3f), consider log scale",
					cs.Name, cs.Mean, cs.Median),
			})
		}
	}
	return ans
}
