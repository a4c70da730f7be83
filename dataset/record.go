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
	"errors"
	"math"
	"slices"
	"strings"
)

const (
	ColName        = "Name"
	ColPlatform    = "Platform"
	ColYear        = "Year_of_Release"
	ColGenre       = "Genre"
	ColPublisher   = "Publisher"
	ColNASales     = "NA_Sales"
	ColEUSales     = "EU_Sales"
	ColJPSales     = "JP_Sales"
	ColOtherSales  = "Other_Sales"
	ColGlobalSales = "Global_Sales"
	ColCriticScore = "Critic_Score"
	ColUserScore   = "User_Score"
	ColRating      = "Rating"

	// ColSuccess is the derived label column
	ColSuccess = "success"
)

var (
	ErrFileNotFound  = errors.New("dataset file not found")
	ErrMissingColumn = errors.New("missing column")
	ErrInvalidValue  = errors.New("invalid value")
	ErrNotLabeled    = errors.New("dataset has no success label")
)

var (
	numericColumns = []string{
		ColYear, ColNASales, ColEUSales, ColJPSales, ColOtherSales,
		ColGlobalSales, ColCriticScore, ColUserScore,
	}

	categoricalColumns = []string{
		ColPlatform, ColGenre, ColPublisher, ColRating,
	}

	salesColumns = []string{
		ColNASales, ColEUSales, ColJPSales, ColOtherSales, ColGlobalSales,
	}

	regionalSalesColumns = []string{
		ColNASales, ColEUSales, ColJPSales, ColOtherSales,
	}

	allColumns = append(
		append([]string{ColName}, categoricalColumns...), numericColumns...)
)

// ColumnKind describes how a column is treated
type ColumnKind string

const (
	KindText        ColumnKind = "text"
	KindCategorical ColumnKind = "categorical"
	KindNumeric     ColumnKind = "numeric"
	KindUnknown     ColumnKind = "unknown"
)

// KindOf returns the kind of a canonical column name
func KindOf(col string) ColumnKind {
	switch {
	case col == ColName:
		return KindText
	case slices.Contains(categoricalColumns, col):
		return KindCategorical
	case slices.Contains(numericColumns, col):
		return KindNumeric
	}
	return KindUnknown
}

// IsSalesColumn tells whether the column contains sales figures
func IsSalesColumn(col string) bool {
	return slices.Contains(salesColumns, col)
}

// RegionalSalesColumns returns regional sales columns in a stable order
func RegionalSalesColumns() []string {
	return slices.Clone(regionalSalesColumns)
}

// CanonicalColumn maps a column name found in a source file
// to its canonical form. Matching is case-insensitive, so e.g.
// `NA_sales` and `na_sales` both map to `NA_Sales`.
func CanonicalColumn(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range allColumns {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// Missing is the value representing a numeric value which is
// "not reported". It must never be treated as zero.
func Missing() float64 {
	return math.NaN()
}

// IsMissing tests a numeric value for absence
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// GameRecord is a single row of the source dataset. Numeric values
// use NaN for "not reported", categorical values an empty string.
type GameRecord struct {
	Name          string
	Platform      string
	Genre         string
	Publisher     string
	Rating        string
	YearOfRelease float64
	NASales       float64
	EUSales       float64
	JPSales       float64
	OtherSales    float64
	GlobalSales   float64
	CriticScore   float64
	UserScore     float64

	// Success is set by BuildTarget, it is meaningful only
	// if the owning dataset is labeled.
	Success int
}

// NewGameRecord creates a record with all numeric values missing
func NewGameRecord(name string) GameRecord {
	return GameRecord{
		Name:          name,
		YearOfRelease: Missing(),
		NASales:       Missing(),
		EUSales:       Missing(),
		JPSales:       Missing(),
		OtherSales:    Missing(),
		GlobalSales:   Missing(),
		CriticScore:   Missing(),
		UserScore:     Missing(),
	}
}

func (rec *GameRecord) numericField(col string) *float64 {
	switch col {
	case ColYear:
		return &rec.YearOfRelease
	case ColNASales:
		return &rec.NASales
	case ColEUSales:
		return &rec.EUSales
	case ColJPSales:
		return &rec.JPSales
	case ColOtherSales:
		return &rec.OtherSales
	case ColGlobalSales:
		return &rec.GlobalSales
	case ColCriticScore:
		return &rec.CriticScore
	case ColUserScore:
		return &rec.UserScore
	}
	return nil
}

func (rec *GameRecord) categoryField(col string) *string {
	switch col {
	case ColName:
		return &rec.Name
	case ColPlatform:
		return &rec.Platform
	case ColGenre:
		return &rec.Genre
	case ColPublisher:
		return &rec.Publisher
	case ColRating:
		return &rec.Rating
	}
	return nil
}

// Numeric returns a value of a numeric column. The second returned
// value is false if the column is not numeric.
func (rec *GameRecord) Numeric(col string) (float64, bool) {
	f := rec.numericField(col)
	if f == nil {
		return 0, false
	}
	return *f, true
}

// SetNumeric sets a value of a numeric column. Unknown columns are ignored.
func (rec *GameRecord) SetNumeric(col string, v float64) {
	if f := rec.numericField(col); f != nil {
		*f = v
	}
}

// Category returns a value of a categorical (or text) column
func (rec *GameRecord) Category(col string) (string, bool) {
	f := rec.categoryField(col)
	if f == nil {
		return "", false
	}
	return *f, true
}

// SetCategory sets a value of a categorical column
func (rec *GameRecord) SetCategory(col string, v string) {
	if f := rec.categoryField(col); f != nil {
		*f = v
	}
}

// IsMissingValue tests whether the record lacks a value of the column
func (rec *GameRecord) IsMissingValue(col string) bool {
	if v, ok := rec.Numeric(col); ok {
		return IsMissing(v)
	}
	if v, ok := rec.Category(col); ok {
		return v == ""
	}
	return true
}

// ------------------------------------

// Dataset is an ordered collection of game records sharing
// the same schema. It is owned by a single pipeline stage at a time.
type Dataset struct {
	Records []GameRecord

	// columns lists canonical names of columns present
	// in the source, in the source order
	columns []string

	// Placeholders counts textual placeholders (e.g. User_Score = "tbd")
	// which were loaded as missing values.
	Placeholders map[string]int

	// DerivedColumns lists columns which were not present in the source
	// but were computed by the loader.
	DerivedColumns []string

	labeled bool
}

// NewDataset creates a dataset with explicitly specified columns
func NewDataset(columns []string, records []GameRecord) *Dataset {
	return &Dataset{
		Records:      records,
		columns:      slices.Clone(columns),
		Placeholders: make(map[string]int),
	}
}

func (ds *Dataset) Len() int {
	return len(ds.Records)
}

// Columns returns canonical names of all available columns
func (ds *Dataset) Columns() []string {
	ans := slices.Clone(ds.columns)
	if ds.labeled {
		ans = append(ans, ColSuccess)
	}
	return ans
}

func (ds *Dataset) HasColumn(col string) bool {
	if col == ColSuccess {
		return ds.labeled
	}
	return slices.Contains(ds.columns, col)
}

func (ds *Dataset) IsLabeled() bool {
	return ds.labeled
}

// NumPositive returns number of records labeled as successful
func (ds *Dataset) NumPositive() int {
	var ans int
	for _, r := range ds.Records {
		ans += r.Success
	}
	return ans
}

// PositiveRate returns the ratio of successful records
func (ds *Dataset) PositiveRate() float64 {
	if len(ds.Records) == 0 {
		return 0
	}
	return float64(ds.NumPositive()) / float64(len(ds.Records))
}

// Labels returns the success labels in the record order
func (ds *Dataset) Labels() ([]int, error) {
	if !ds.labeled {
		return nil, ErrNotLabeled
	}
	ans := make([]int, len(ds.Records))
	for i, r := range ds.Records {
		ans[i] = r.Success
	}
	return ans, nil
}

// NumericValues returns all values of a numeric column including
// the missing ones.
func (ds *Dataset) NumericValues(col string) []float64 {
	ans := make([]float64, 0, len(ds.Records))
	for i := range ds.Records {
		v, ok := ds.Records[i].Numeric(col)
		if !ok {
			return nil
		}
		ans = append(ans, v)
	}
	return ans
}
