package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/czcorpus/vgsales/dataset"
	"github.com/czcorpus/vgsales/eval/dt"
	"github.com/czcorpus/vgsales/eval/lr"
	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/czcorpus/vgsales/eval/predict"
	"github.com/czcorpus/vgsales/split"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	treeFamily = Family{
		Name: dt.FamilyName,
		Rank: 2,
		New: func(params modutils.Params) (Classifier, error) {
			return dt.NewModel(params)
		},
		Complexity: dt.Complexity,
	}

	logregFamily = Family{
		Name: lr.FamilyName,
		Rank: 1,
		New: func(params modutils.Params) (Classifier, error) {
			return lr.NewModel(params)
		},
		Complexity: lr.Complexity,
	}

	panickingFamily = Family{
		Name: "panicking",
		Rank: 5,
		New: func(params modutils.Params) (Classifier, error) {
			return &panickingModel{}, nil
		},
		Complexity: func(params modutils.Params) float64 { return 0 },
	}
)

type panickingModel struct{}

func (m *panickingModel) Fit(ctx context.Context, X [][]float64, y []int) error {
	var data []int
	_ = data[len(X)]
	return nil
}

func (m *panickingModel) Predict(x []float64) predict.Prediction {
	return predict.Prediction{}
}

func (m *panickingModel) GetInfo() string {
	return "panicking model"
}

func (m *panickingModel) SaveToFile(string) error {
	return errors.New("not supported")
}

func testRegistry() Registry {
	return Registry{
		treeFamily.Name:      treeFamily,
		logregFamily.Name:    logregFamily,
		panickingFamily.Name: panickingFamily,
	}
}

func testConf(parallelism int) Conf {
	return Conf{
		Folds:       3,
		Seed:        42,
		Parallelism: parallelism,
		Scoring:     ScorerF1,
		ViableGap:   DefaultViableGap,
		ProgressOut: io.Discard,
	}
}

// separableSplits creates splits of a dataset where success = 1 iff
// Critic_Score >= 100 (negative records have scores < 20)
func separableSplits(t *testing.T, n int) *split.Splits {
	recs := make([]dataset.GameRecord, n)
	for i := range recs {
		recs[i] = dataset.NewGameRecord(fmt.Sprintf("game-%d", i))
		if i%2 == 0 {
			recs[i].CriticScore = float64(100 + i%20)
			recs[i].GlobalSales = 5

		} else {
			recs[i].CriticScore = float64(i % 20)
			recs[i].GlobalSales = 0.1
		}
		recs[i].UserScore = float64(i%7) + 0.5
	}
	ds := dataset.NewDataset(
		[]string{
			dataset.ColName, dataset.ColPlatform, dataset.ColGenre,
			dataset.ColGlobalSales, dataset.ColCriticScore, dataset.ColUserScore,
		},
		recs,
	)
	_, err := dataset.BuildTarget(
		ds,
		dataset.TargetConf{SalesColumn: dataset.ColGlobalSales, Mode: dataset.ThresholdFixed, Threshold: 1},
	)
	require.NoError(t, err)
	fset, err := dataset.NewFeatureSet([]string{dataset.ColCriticScore, dataset.ColUserScore}, nil)
	require.NoError(t, err)
	splits, err := split.Stratified(ds, fset, split.Conf{ValidationSize: 0.2, TestSize: 0.2, Seed: 42})
	require.NoError(t, err)
	return splits
}

func TestEvaluatorSeparableSingleConfig(t *testing.T) {
	splits := separableSplits(t, 40)
	ev := NewEvaluator(testRegistry(), testConf(2))
	results, err := ev.Run(
		context.Background(),
		splits.Train,
		splits.Validation,
		[]FamilySpec{{Family: dt.FamilyName, Space: SearchSpace{dt.ParamMaxDepth: {1}}}},
	)
	require.NoError(t, err)
	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 1.0, res.ValidationScore)
	assert.Equal(t, 1.0, res.CVScore)
	assert.Equal(t, 0.0, res.Gap)
	assert.True(t, res.Viable)
	assert.Equal(t, 1, res.Position)
	assert.Equal(t, modutils.Params{dt.ParamMaxDepth: 1}, res.Params)
	assert.NotNil(t, res.Model())
	assert.False(t, splits.Test.IsUsed())
}

func TestEvaluatorFailingFamily(t *testing.T) {
	splits := separableSplits(t, 40)
	ev := NewEvaluator(testRegistry(), testConf(4))
	results, err := ev.Run(
		context.Background(),
		splits.Train,
		splits.Validation,
		[]FamilySpec{
			{Family: lr.FamilyName, Space: SearchSpace{lr.ParamC: {-1, 0}}},
			{Family: dt.FamilyName, Space: SearchSpace{dt.ParamMaxDepth: {1, 2}}},
			{Family: panickingFamily.Name, Space: SearchSpace{"x": {1}}},
			{Family: "svm", Space: SearchSpace{"C": {1}}},
			{Family: "boosting", Space: SearchSpace{}},
		},
	)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, dt.FamilyName, results[0].Family)
	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, 1.0, results[0].ValidationScore)
	assert.Equal(t, modutils.Params{dt.ParamMaxDepth: 1}, results[0].Params)

	failed := make(map[string]*EvaluationResult)
	for _, r := range results[1:] {
		assert.Equal(t, StatusFailed, r.Status)
		assert.NotEmpty(t, r.Errors)
		assert.Nil(t, r.Model())
		failed[r.Family] = r
	}
	require.Contains(t, failed, lr.FamilyName)
	assert.Equal(t, 2, failed[lr.FamilyName].NumFailed)
	assert.Contains(t, failed[lr.FamilyName].ErrorSummary(), "invalid regularization strength")
	assert.Contains(t, failed[panickingFamily.Name].ErrorSummary(), "panicked")
	assert.Contains(t, failed["svm"].ErrorSummary(), ErrNoSuchFamily.Error())
	assert.Contains(t, failed["boosting"].ErrorSummary(), ErrNoSuchFamily.Error())
	assert.Equal(t, 5, results[4].Position)
}

func TestEvaluatorEmptySearchSpace(t *testing.T) {
	splits := separableSplits(t, 40)
	ev := NewEvaluator(testRegistry(), testConf(1))
	results, err := ev.Run(
		context.Background(),
		splits.Train,
		splits.Validation,
		[]FamilySpec{{Family: dt.FamilyName, Space: SearchSpace{dt.ParamMaxDepth: {}}}},
	)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Contains(t, results[0].ErrorSummary(), ErrEmptySearchSpace.Error())
}

func TestEvaluatorIndependentOfParallelism(t *testing.T) {
	splits := separableSplits(t, 60)
	specs := []FamilySpec{
		{Family: dt.FamilyName, Space: SearchSpace{dt.ParamMaxDepth: {1, 2, 3}}},
		{Family: lr.FamilyName, Space: SearchSpace{lr.ParamC: {0.1, 1, 10}}},
	}
	var runs [][]*EvaluationResult
	for _, p := range []int{1, 3, 8} {
		ev := NewEvaluator(testRegistry(), testConf(p))
		results, err := ev.Run(context.Background(), splits.Train, splits.Validation, specs)
		require.NoError(t, err)
		runs = append(runs, results)
	}
	for _, run := range runs[1:] {
		require.Len(t, run, len(runs[0]))
		for i, r := range run {
			assert.Equal(t, runs[0][i].Family, r.Family)
			assert.Equal(t, runs[0][i].Params, r.Params)
			assert.Equal(t, runs[0][i].CVScore, r.CVScore)
			assert.Equal(t, runs[0][i].ValidationScore, r.ValidationScore)
			for j, c := range r.Candidates {
				assert.Equal(t, runs[0][i].Candidates[j].FoldScores, c.FoldScores)
			}
		}
	}
	// all candidates score 1.0, the tie goes to the simplest model
	// and logistic regression wins over decision tree
	assert.Equal(t, lr.FamilyName, runs[0][0].Family)
	assert.Equal(t, modutils.Params{lr.ParamC: 0.1}, runs[0][0].Params)
	assert.Equal(t, modutils.Params{dt.ParamMaxDepth: 1}, runs[0][1].Params)
}

func TestEvaluatorTooFewRecordsForFolds(t *testing.T) {
	train := &split.Partition{
		X:       [][]float64{{1}, {2}, {3}, {4}, {5}},
		Y:       []int{0, 0, 0, 1, 1},
		Indices: []int{0, 1, 2, 3, 4},
	}
	ev := NewEvaluator(testRegistry(), testConf(1))
	_, err := ev.Run(
		context.Background(),
		train,
		train,
		[]FamilySpec{{Family: dt.FamilyName, Space: SearchSpace{dt.ParamMaxDepth: {1}}}},
	)
	assert.ErrorIs(t, err, split.ErrStratification)
}

func TestEvaluatorCanceled(t *testing.T) {
	splits := separableSplits(t, 40)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev := NewEvaluator(testRegistry(), testConf(2))
	_, err := ev.Run(
		ctx,
		splits.Train,
		splits.Validation,
		[]FamilySpec{{Family: dt.FamilyName, Space: SearchSpace{dt.ParamMaxDepth: {1, 2}}}},
	)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBestCandidateTies(t *testing.T) {
	scores := []CandidateScore{
		{Mean: 0.8, Complexity: 3},
		{Mean: 0.9, Complexity: 7},
		{Mean: 0.9, Complexity: 4},
		{Mean: 0.9, Complexity: 4},
		{Err: "failed", Complexity: 1},
	}
	assert.Equal(t, 2, bestCandidate(scores))
	assert.Equal(t, -1, bestCandidate([]CandidateScore{{Err: "x"}}))
}

func TestSelectCandidates(t *testing.T) {
	space := SearchSpace{"n_estimators": {50, 100, 150, 200}, "max_depth": {3, 5}}
	assert.Len(t, selectCandidates(space, 0, 1, "random_forest"), 8)
	assert.Len(t, selectCandidates(space, 20, 1, "random_forest"), 8)
	s1 := selectCandidates(space, 5, 1, "random_forest")
	s2 := selectCandidates(space, 5, 1, "random_forest")
	assert.Len(t, s1, 5)
	assert.Equal(t, s1, s2)
}

func TestRankResults(t *testing.T) {
	results := []*EvaluationResult{
		{Family: "failed", Status: StatusFailed},
		{Family: "a", FamilyRank: 3, ValidationScore: 0.7, Complexity: 1, Status: StatusOK},
		{Family: "b", FamilyRank: 1, ValidationScore: 0.7, Complexity: 9, Status: StatusOK},
		{Family: "c", FamilyRank: 2, ValidationScore: 0.9, Complexity: 9, Status: StatusOK},
	}
	RankResults(results)
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Family
		assert.Equal(t, i+1, r.Position)
	}
	assert.Equal(t, []string{"c", "b", "a", "failed"}, names)
	assert.Equal(t, "c", Best(results).Family)
	assert.Nil(t, Best(results[3:]))
}
