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

package eval

import (
	"testing"

	"github.com/czcorpus/vgsales/split"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaselines(t *testing.T) {
	p := &split.Partition{
		X: [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}, {9}, {10}},
		Y: []int{0, 0, 0, 0, 0, 0, 1, 1, 1, 1},
	}
	ans := Baselines(p, ScorerF1)
	require.Len(t, ans, 2)
	assert.Equal(t, "always_successful", ans[0].Name)
	assert.InDelta(t, 0.8/1.4, ans[0].Score, 1e-9)
	assert.Equal(t, Confusion{TP: 4, FP: 6}, ans[0].Confusion)
	assert.Equal(t, "never_successful", ans[1].Name)
	assert.Equal(t, 0.0, ans[1].Score)

	ans = Baselines(p, ScorerAccuracy)
	assert.InDelta(t, 0.4, ans[0].Score, 1e-9)
	assert.InDelta(t, 0.6, ans[1].Score, 1e-9)
}
