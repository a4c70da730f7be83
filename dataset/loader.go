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
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/czcorpus/cnc-gokit/fs"
	"github.com/rs/zerolog/log"
)

var requiredColumns = []string{ColName, ColPlatform, ColGenre}

// placeholder tokens which are loaded as missing values
var missingTokens = []string{"", "nan", "n/a", "na", "null", "tbd"}

func isMissingToken(v string) bool {
	return slices.Contains(missingTokens, strings.ToLower(v))
}

// LoadCSV reads a comma separated file with a header row
// into a new dataset.
func LoadCSV(path string) (*Dataset, error) {
	isFile, err := fs.IsFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", path, err)
	}
	if !isFile {
		return nil, fmt.Errorf("failed to load dataset %s: %w", path, ErrFileNotFound)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", path, err)
	}
	defer f.Close()
	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", path, err)
	}
	log.Info().
		Str("path", path).
		Int("rows", ds.Len()).
		Strs("columns", ds.Columns()).
		Msg("dataset loaded")
	return ds, nil
}

// ReadCSV parses CSV data. Column names are matched case-insensitively,
// unknown columns are ignored.
func ReadCSV(src io.Reader) (*Dataset, error) {
	rdr := csv.NewReader(bufio.NewReader(src))
	rdr.FieldsPerRecord = -1
	header, err := rdr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: %w", ErrMissingColumn)

	} else if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	colIdx := make(map[string]int)
	columns := make([]string, 0, len(header))
	for i, h := range header {
		canon, ok := CanonicalColumn(h)
		if !ok {
			log.Debug().Str("column", h).Msg("ignoring unknown column")
			continue
		}
		if _, dup := colIdx[canon]; dup {
			return nil, fmt.Errorf("duplicate column %s: %w", h, ErrInvalidValue)
		}
		colIdx[canon] = i
		columns = append(columns, canon)
	}
	for _, req := range requiredColumns {
		if _, ok := colIdx[req]; !ok {
			return nil, fmt.Errorf("column %s: %w", req, ErrMissingColumn)
		}
	}

	ds := NewDataset(columns, make([]GameRecord, 0, 1000))
	for rowNum := 1; ; rowNum++ {
		row, err := rdr.Read()
		if err == io.EOF {
			break

		} else if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rowNum, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		rec, err := parseRow(ds, row, colIdx, rowNum)
		if err != nil {
			return nil, err
		}
		ds.Records = append(ds.Records, rec)
	}

	deriveGlobalSales(ds)
	return ds, nil
}

func parseRow(ds *Dataset, row []string, colIdx map[string]int, rowNum int) (GameRecord, error) {
	rec := NewGameRecord("")
	for col, i := range colIdx {
		var raw string
		if i < len(row) {
			raw = strings.TrimSpace(row[i])
		}
		missing := isMissingToken(raw)
		if missing && raw != "" {
			ds.Placeholders[col]++
		}
		switch KindOf(col) {
		case KindNumeric:
			if missing {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return rec, fmt.Errorf(
					"row %d, column %s: cannot parse %q: %w", rowNum, col, raw, ErrInvalidValue)
			}
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return rec, fmt.Errorf(
					"row %d, column %s: non-finite value %q: %w", rowNum, col, raw, ErrInvalidValue)
			}
			rec.SetNumeric(col, v)
		default:
			if missing {
				continue
			}
			rec.SetCategory(col, raw)
		}
	}
	return rec, nil
}

func deriveGlobalSales(ds *Dataset) {
	if ds.HasColumn(ColGlobalSales) {
		return
	}
	for _, c := range regionalSalesColumns {
		if !ds.HasColumn(c) {
			return
		}
	}
	for i := range ds.Records {
		rec := &ds.Records[i]
		var sum float64
		var reported bool
		for _, c := range regionalSalesColumns {
			v, _ := rec.Numeric(c)
			if !IsMissing(v) {
				sum += v
				reported = true
			}
		}
		if reported {
			rec.GlobalSales = sum

		} else {
			rec.GlobalSales = Missing()
		}
	}
	ds.columns = append(ds.columns, ColGlobalSales)
	ds.DerivedColumns = append(ds.DerivedColumns, ColGlobalSales)
	log.Warn().
		Strs("sources", regionalSalesColumns).
		Msg("column Global_Sales not found, derived as a sum of regional sales")
}

// ErrorIsInput tells whether the error is caused by invalid input data
func ErrorIsInput(err error) bool {
	return errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrInvalidValue)
}
