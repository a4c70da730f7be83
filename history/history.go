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

package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/czcorpus/vgsales/eval"
	"github.com/czcorpus/vgsales/eval/modutils"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

var ErrNoRun = errors.New("no run recorded")

// Run describes a single pipeline run
type Run struct {
	ID             int64
	Created        time.Time
	Dataset        string
	SalesColumn    string
	Threshold      float64
	Seed           uint64
	Policy         string
	TrainSize      int
	ValidationSize int
	TestSize       int
	BestFamily     string
	TestMetric     string

	// TestScore is NaN if no final test has been performed
	TestScore float64
}

// RunResult is a stored EvaluationResult of a single family
type RunResult struct {
	RunID           int64
	Position        int
	Family          string
	Params          modutils.Params
	CVScore         float64
	ValidationScore float64
	Status          string
	Error           string
}

// Database stores results of pipeline runs in an SQLite database
type Database struct {
	db *sql.DB
}

func (database *Database) createRunTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE run (" +
			"id INTEGER PRIMARY KEY AUTOINCREMENT, " +
			"created INTEGER NOT NULL, " +
			"dataset TEXT NOT NULL, " +
			"sales_column TEXT NOT NULL, " +
			"threshold FLOAT NOT NULL, " +
			"seed INTEGER NOT NULL, " +
			"policy TEXT NOT NULL, " +
			"train_size INTEGER NOT NULL, " +
			"validation_size INTEGER NOT NULL, " +
			"test_size INTEGER NOT NULL, " +
			"best_family TEXT, " +
			"test_metric TEXT, " +
			"test_score FLOAT" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info().Msg("created table `run`")
	return nil
}

func (database *Database) createRunResultTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE run_result (" +
			"run_id INTEGER NOT NULL REFERENCES run(id), " +
			"position INTEGER NOT NULL, " +
			"family TEXT NOT NULL, " +
			"params TEXT NOT NULL, " +
			"cv_score FLOAT, " +
			"validation_score FLOAT, " +
			"status TEXT NOT NULL, " +
			"error TEXT, " +
			"PRIMARY KEY (run_id, family)" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info().Msg("created table `run_result`")
	return nil
}

func (database *Database) tableExists(tn string) (bool, error) {
	ans := database.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", tn)
	var nm sql.NullString
	err := ans.Scan(&nm)
	if err == sql.ErrNoRows {
		return false, nil

	} else if err != nil {
		return false, fmt.Errorf("failed to determine existence of table %s: %w", tn, err)
	}
	return true, nil
}

// Init creates missing tables. It is safe to call it on an already
// initialized database.
func (database *Database) Init() error {
	tables := []struct {
		name   string
		create func() error
	}{
		{"run", database.createRunTable},
		{"run_result", database.createRunResultTable},
	}
	for _, tbl := range tables {
		ex, err := database.tableExists(tbl.name)
		if err != nil {
			return fmt.Errorf("failed to init table %s: %w", tbl.name, err)
		}
		if ex {
			log.Debug().Str("table", tbl.name).Msg("table already exists")
			continue
		}
		if err := tbl.create(); err != nil {
			return fmt.Errorf("failed to create table %s: %w", tbl.name, err)
		}
	}
	return nil
}

func nullableFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if v.Valid {
		return v.Float64
	}
	return math.NaN()
}

// RecordRun stores a run along with the results of all evaluated
// families in a single transaction. The assigned run ID is returned.
func (database *Database) RecordRun(run Run, results []*eval.EvaluationResult) (int64, error) {
	tx, err := database.db.Begin()
	if err != nil {
		return -1, fmt.Errorf("failed to record run: %w", err)
	}
	res, err := tx.Exec(
		"INSERT INTO run (created, dataset, sales_column, threshold, seed, policy, "+
			"train_size, validation_size, test_size, best_family, test_metric, test_score) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.Created.Unix(),
		run.Dataset,
		run.SalesColumn,
		run.Threshold,
		int64(run.Seed),
		run.Policy,
		run.TrainSize,
		run.ValidationSize,
		run.TestSize,
		sql.NullString{String: run.BestFamily, Valid: run.BestFamily != ""},
		sql.NullString{String: run.TestMetric, Valid: run.TestMetric != ""},
		nullableFloat(run.TestScore),
	)
	if err != nil {
		tx.Rollback()
		return -1, fmt.Errorf("failed to record run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return -1, fmt.Errorf("failed to record run: %w", err)
	}
	for _, r := range results {
		params, err := json.Marshal(r.Params)
		if err != nil {
			tx.Rollback()
			return -1, fmt.Errorf("failed to record run: %w", err)
		}
		_, err = tx.Exec(
			"INSERT INTO run_result (run_id, position, family, params, cv_score, "+
				"validation_score, status, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			runID,
			r.Position,
			r.Family,
			string(params),
			nullableFloat(r.CVScore),
			nullableFloat(r.ValidationScore),
			string(r.Status),
			sql.NullString{String: r.ErrorSummary(), Valid: len(r.Errors) > 0},
		)
		if err != nil {
			tx.Rollback()
			return -1, fmt.Errorf("failed to record result of %s: %w", r.Family, err)
		}
	}
	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return -1, fmt.Errorf("failed to record run: %w", err)
	}
	log.Info().Int64("runId", runID).Int("numResults", len(results)).Msg("run recorded")
	return runID, nil
}

// LatestRun returns the most recently recorded run. In case
// there is no run, ErrNoRun is returned.
func (database *Database) LatestRun() (Run, error) {
	row := database.db.QueryRow(
		"SELECT id, created, dataset, sales_column, threshold, seed, policy, " +
			"train_size, validation_size, test_size, best_family, test_metric, test_score " +
			"FROM run ORDER BY id DESC LIMIT 1",
	)
	var ans Run
	var created, seed int64
	var bestFamily, testMetric sql.NullString
	var testScore sql.NullFloat64
	err := row.Scan(
		&ans.ID,
		&created,
		&ans.Dataset,
		&ans.SalesColumn,
		&ans.Threshold,
		&seed,
		&ans.Policy,
		&ans.TrainSize,
		&ans.ValidationSize,
		&ans.TestSize,
		&bestFamily,
		&testMetric,
		&testScore,
	)
	if err == sql.ErrNoRows {
		return ans, ErrNoRun

	} else if err != nil {
		return ans, fmt.Errorf("failed to fetch latest run: %w", err)
	}
	ans.Created = time.Unix(created, 0)
	ans.Seed = uint64(seed)
	ans.BestFamily = bestFamily.String
	ans.TestMetric = testMetric.String
	ans.TestScore = floatOrNaN(testScore)
	return ans, nil
}

// RunResults returns stored family results of a run ordered
// by their rank.
func (database *Database) RunResults(runID int64) ([]RunResult, error) {
	rows, err := database.db.Query(
		"SELECT run_id, position, family, params, cv_score, validation_score, status, error "+
			"FROM run_result WHERE run_id = ? ORDER BY position",
		runID,
	)
	if err != nil {
		return []RunResult{}, fmt.Errorf("failed to fetch run results: %w", err)
	}
	defer rows.Close()
	ans := make([]RunResult, 0, 10)
	for rows.Next() {
		var item RunResult
		var params string
		var cvScore, valScore sql.NullFloat64
		var errMsg sql.NullString
		err := rows.Scan(
			&item.RunID,
			&item.Position,
			&item.Family,
			&params,
			&cvScore,
			&valScore,
			&item.Status,
			&errMsg,
		)
		if err != nil {
			return []RunResult{}, fmt.Errorf("failed to fetch run results: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &item.Params); err != nil {
			return []RunResult{}, fmt.Errorf("failed to decode params of %s: %w", item.Family, err)
		}
		item.CVScore = floatOrNaN(cvScore)
		item.ValidationScore = floatOrNaN(valScore)
		item.Error = errMsg.String
		ans = append(ans, item)
	}
	if err := rows.Err(); err != nil {
		return []RunResult{}, fmt.Errorf("failed to fetch run results: %w", err)
	}
	return ans, nil
}

func (database *Database) Close() error {
	return database.db.Close()
}

// NewDatabase opens (and creates if needed) an SQLite database
// stored in a file specified by path.
func NewDatabase(path string) (*Database, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return &Database{db: db}, nil
}
