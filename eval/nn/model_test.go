package nn

import (
	"context"
	"testing"

	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	m := &Model{}
	m.DataRanges = getDataStats([][]float64{{10, 3}, {20, 3}, {15, 3}})
	assert.Equal(t, []FeatureStats{{Min: 10, Max: 20}, {Min: 3, Max: 3}}, m.DataRanges)
	assert.Equal(t, []float64{0.5, 0}, m.normalize([]float64{15, 3}))
}

func TestFitProducesProbabilities(t *testing.T) {
	var X [][]float64
	var y []int
	for i := 0; i < 30; i++ {
		X = append(X, []float64{float64(i)})
		if i >= 15 {
			y = append(y, 1)

		} else {
			y = append(y, 0)
		}
	}
	model, err := NewModel(modutils.Params{ParamHiddenUnits: 4, ParamEpochs: 20})
	require.NoError(t, err)
	require.NoError(t, model.Fit(context.Background(), X, y))
	pred := model.Predict([]float64{3})
	require.Len(t, pred.Votes, 2)
	assert.InDelta(t, 1.0, pred.Votes[0]+pred.Votes[1], 1e-9)
	assert.GreaterOrEqual(t, pred.PositiveVote(), 0.0)
	assert.LessOrEqual(t, pred.PositiveVote(), 1.0)
}

func TestNewModelInvalidParams(t *testing.T) {
	_, err := NewModel(modutils.Params{ParamHiddenUnits: 0})
	assert.Error(t, err)
	_, err = NewModel(modutils.Params{ParamEpochs: -5})
	assert.Error(t, err)
	_, err = NewModel(modutils.Params{ParamLearningRate: 0})
	assert.Error(t, err)
}
