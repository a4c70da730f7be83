package eval

import (
	"testing"

	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/stretchr/testify/assert"
)

func TestSearchSpaceCandidates(t *testing.T) {
	space := SearchSpace{
		"max_depth":        {3, 4},
		"min_samples_leaf": {1, 2, 5},
	}
	assert.Equal(t, 6, space.Size())
	assert.Equal(
		t,
		[]modutils.Params{
			{"max_depth": 3, "min_samples_leaf": 1},
			{"max_depth": 3, "min_samples_leaf": 2},
			{"max_depth": 3, "min_samples_leaf": 5},
			{"max_depth": 4, "min_samples_leaf": 1},
			{"max_depth": 4, "min_samples_leaf": 2},
			{"max_depth": 4, "min_samples_leaf": 5},
		},
		space.Candidates(),
	)
}

func TestSearchSpaceEmpty(t *testing.T) {
	assert.Empty(t, SearchSpace{}.Candidates())
	assert.Empty(t, SearchSpace{"C": {}}.Candidates())
	assert.Equal(t, 0, SearchSpace{"C": {}, "max_iter": {100}}.Size())
}

func TestRegistryNames(t *testing.T) {
	reg := Registry{
		"b": Family{Name: "b", Rank: 2},
		"a": Family{Name: "a", Rank: 3},
		"c": Family{Name: "c", Rank: 1},
	}
	assert.Equal(t, []string{"c", "b", "a"}, reg.Names())
	_, ok := reg.Lookup("d")
	assert.False(t, ok)
}
