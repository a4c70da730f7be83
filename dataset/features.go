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
)

// FeatureSet maps records to feature vectors. Numeric columns
// come first (in the configured order), followed by one-hot encoded
// categorical columns with categories sorted lexicographically.
type FeatureSet struct {
	numeric     []string
	categorical []string
	categories  map[string][]string
}

// NewFeatureSet validates feature columns. Sales columns and
// the label can never be used as features.
func NewFeatureSet(numeric, categorical []string) (*FeatureSet, error) {
	if len(numeric)+len(categorical) == 0 {
		return nil, fmt.Errorf("no feature columns specified")
	}
	seen := make(map[string]bool)
	for _, c := range append(slices.Clone(numeric), categorical...) {
		if seen[c] {
			return nil, fmt.Errorf("duplicate feature column %s", c)
		}
		seen[c] = true
		if c == ColSuccess || IsSalesColumn(c) {
			return nil, fmt.Errorf("column %s cannot be used as a feature (target leakage)", c)
		}
	}
	for _, c := range numeric {
		if k := KindOf(c); k != KindNumeric {
			return nil, fmt.Errorf("column %s is not numeric (%s)", c, k)
		}
	}
	for _, c := range categorical {
		if k := KindOf(c); k != KindCategorical {
			return nil, fmt.Errorf("column %s is not categorical (%s)", c, k)
		}
	}
	return &FeatureSet{
		numeric:     slices.Clone(numeric),
		categorical: slices.Clone(categorical),
	}, nil
}

// Columns returns all source columns used by the feature set
func (fset *FeatureSet) Columns() []string {
	return append(slices.Clone(fset.numeric), fset.categorical...)
}

// CheckColumns returns ErrMissingColumn if any of the feature columns
// is not present in the dataset.
func (fset *FeatureSet) CheckColumns(ds *Dataset) error {
	for _, c := range fset.Columns() {
		if !ds.HasColumn(c) {
			return fmt.Errorf("feature column %s: %w", c, ErrMissingColumn)
		}
	}
	return nil
}

// Fit learns the categories of categorical columns.
func (fset *FeatureSet) Fit(ds *Dataset) error {
	if err := fset.CheckColumns(ds); err != nil {
		return err
	}
	fset.categories = make(map[string][]string)
	for _, c := range fset.categorical {
		uniq := make(map[string]struct{})
		for i := range ds.Records {
			if v, _ := ds.Records[i].Category(c); v != "" {
				uniq[v] = struct{}{}
			}
		}
		fset.categories[c] = slices.Sorted(maps.Keys(uniq))
	}
	return nil
}

// Names returns names of the encoded features
func (fset *FeatureSet) Names() []string {
	ans := slices.Clone(fset.numeric)
	for _, c := range fset.categorical {
		for _, v := range fset.categories[c] {
			ans = append(ans, c+"="+v)
		}
	}
	return ans
}

func (fset *FeatureSet) Dim() int {
	ans := len(fset.numeric)
	for _, c := range fset.categorical {
		ans += len(fset.categories[c])
	}
	return ans
}

// Encode creates a feature vector. A missing numeric value is encoded
// as NaN, an unknown or missing category as all zeros.
func (fset *FeatureSet) Encode(rec *GameRecord) []float64 {
	ans := make([]float64, 0, fset.Dim())
	for _, c := range fset.numeric {
		v, _ := rec.Numeric(c)
		ans = append(ans, v)
	}
	for _, c := range fset.categorical {
		v, _ := rec.Category(c)
		for _, cat := range fset.categories[c] {
			if cat == v {
				ans = append(ans, 1)

			} else {
				ans = append(ans, 0)
			}
		}
	}
	return ans
}
