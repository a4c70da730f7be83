package families

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/czcorpus/vgsales/eval"
	"github.com/czcorpus/vgsales/eval/dt"
	"github.com/czcorpus/vgsales/eval/lr"
	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/czcorpus/vgsales/eval/nn"
	"github.com/czcorpus/vgsales/eval/rf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()
	assert.Equal(
		t,
		[]string{lr.FamilyName, dt.FamilyName, rf.FamilyName, nn.FamilyName},
		reg.Names(),
	)
	fam, ok := reg.Lookup(rf.FamilyName)
	require.True(t, ok)
	assert.Equal(t, 150.0, fam.Complexity(modutils.Params{rf.ParamNumTrees: 150}))
	_, err := fam.New(modutils.Params{rf.ParamNumTrees: -3})
	assert.Error(t, err)
}

func TestLoadModel(t *testing.T) {
	X := [][]float64{{1, 0}, {2, 1}, {3, 0}, {10, 1}, {11, 0}, {12, 1}}
	y := []int{0, 0, 0, 1, 1, 1}
	for _, fam := range []eval.Family{LogisticRegression, DecisionTree} {
		model, err := fam.New(modutils.Params{})
		require.NoError(t, err)
		require.NoError(t, model.Fit(context.Background(), X, y))
		path := modutils.ModelFileName(t.TempDir(), "games.csv", fam.Name)
		require.NoError(t, model.SaveToFile(path))
		loaded, err := LoadModel(fam.Name, path)
		require.NoError(t, err)
		for _, x := range X {
			assert.Equal(t, model.Predict(x), loaded.Predict(x))
		}
	}
	_, err := LoadModel("svm", filepath.Join(t.TempDir(), "x.json"))
	assert.ErrorIs(t, err, eval.ErrNoSuchFamily)
}
