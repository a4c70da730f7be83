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
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/czcorpus/vgsales/eval"
	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Database {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Init())
	return db
}

func testResults() []*eval.EvaluationResult {
	return []*eval.EvaluationResult{
		{
			Position:        1,
			Family:          "decision_tree",
			Params:          modutils.Params{"max_depth": 4},
			CVScore:         0.81,
			ValidationScore: 0.78,
			Status:          eval.StatusOK,
		},
		{
			Position: 2,
			Family:   "logistic_regression",
			CVScore:  math.NaN(),
			Status:   eval.StatusFailed,
			Errors:   []string{"parameter C must be positive"},
		},
	}
}

func TestInitIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.Init())
	ex, err := db.tableExists("run_result")
	require.NoError(t, err)
	assert.True(t, ex)
	ex, err = db.tableExists("foo")
	require.NoError(t, err)
	assert.False(t, ex)
}

func TestLatestRunEmpty(t *testing.T) {
	db := openTestDB(t)
	_, err := db.LatestRun()
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestRecordAndFetch(t *testing.T) {
	db := openTestDB(t)
	created := time.Date(2025, 2, 10, 8, 30, 0, 0, time.UTC)
	first := Run{
		Created:     created,
		Dataset:     "games.csv",
		SalesColumn: "Global_Sales",
		Threshold:   0.17,
		Seed:        42,
		Policy:      "drop",
		TestScore:   math.NaN(),
	}
	id1, err := db.RecordRun(first, nil)
	require.NoError(t, err)

	second := first
	second.TrainSize = 6
	second.ValidationSize = 2
	second.TestSize = 2
	second.BestFamily = "decision_tree"
	second.TestMetric = "f1"
	second.TestScore = 0.8
	id2, err := db.RecordRun(second, testResults())
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	latest, err := db.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, id2, latest.ID)
	assert.True(t, created.Equal(latest.Created))
	assert.Equal(t, uint64(42), latest.Seed)
	assert.Equal(t, "decision_tree", latest.BestFamily)
	assert.Equal(t, 0.8, latest.TestScore)
	assert.Equal(t, 6, latest.TrainSize)

	results, err := db.RunResults(id2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "decision_tree", results[0].Family)
	assert.Equal(t, modutils.Params{"max_depth": 4}, results[0].Params)
	assert.Equal(t, 0.78, results[0].ValidationScore)
	assert.Equal(t, "", results[0].Error)
	assert.Equal(t, "failed", results[1].Status)
	assert.True(t, math.IsNaN(results[1].CVScore))
	assert.Equal(t, "parameter C must be positive", results[1].Error)

	results, err = db.RunResults(id1)
	require.NoError(t, err)
	assert.Empty(t, results)
}
