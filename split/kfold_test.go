package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStratifiedKFold(t *testing.T) {
	labels := []int{1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	folds, err := StratifiedKFold(labels, 3, 42)
	require.NoError(t, err)
	require.Len(t, folds, 3)
	seen := make(map[int]int)
	for _, f := range folds {
		assert.Len(t, f.Validation, 5)
		assert.Len(t, f.Train, 10)
		var pos int
		for _, i := range f.Validation {
			seen[i]++
			pos += labels[i]
		}
		assert.Equal(t, 2, pos)
	}
	assert.Len(t, seen, len(labels))
}

func TestStratifiedKFoldDeterministic(t *testing.T) {
	labels := []int{1, 0, 1, 0, 1, 0, 1, 0, 0, 0, 1, 1}
	f1, err := StratifiedKFold(labels, 4, 5)
	require.NoError(t, err)
	f2, err := StratifiedKFold(labels, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
}

func TestStratifiedKFoldTooSmall(t *testing.T) {
	_, err := StratifiedKFold([]int{1, 1, 0, 0, 0, 0}, 3, 1)
	assert.ErrorIs(t, err, ErrStratification)
	_, err = StratifiedKFold([]int{1, 0}, 1, 1)
	assert.Error(t, err)
}
