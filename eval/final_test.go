package eval

import (
	"context"
	"testing"

	"github.com/czcorpus/vgsales/eval/dt"
	"github.com/czcorpus/vgsales/split"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalTestUsesHoldoutOnce(t *testing.T) {
	splits := separableSplits(t, 40)
	ev := NewEvaluator(testRegistry(), testConf(2))
	results, err := ev.Run(
		context.Background(),
		splits.Train,
		splits.Validation,
		[]FamilySpec{{Family: dt.FamilyName, Space: SearchSpace{dt.ParamMaxDepth: {1, 3}}}},
	)
	require.NoError(t, err)
	best := Best(results)
	require.NotNil(t, best)

	report, err := FinalTest(context.Background(), best, splits.Test, ScorerF1)
	require.NoError(t, err)
	assert.Equal(t, dt.FamilyName, report.Family)
	assert.Equal(t, 8, report.Size)
	assert.Equal(t, 1.0, report.Score)
	assert.Equal(t, 1.0, report.Accuracy)
	assert.Equal(t, Confusion{TP: 4, TN: 4}, report.Confusion)
	assert.Empty(t, report.Misclassified)
	assert.True(t, splits.Test.IsUsed())

	_, err = FinalTest(context.Background(), best, splits.Test, ScorerF1)
	assert.ErrorIs(t, err, split.ErrHoldoutConsumed)
}

func TestFinalTestWithoutResult(t *testing.T) {
	splits := separableSplits(t, 40)
	_, err := FinalTest(context.Background(), nil, splits.Test, ScorerF1)
	assert.ErrorIs(t, err, ErrNoResult)
	_, err = FinalTest(
		context.Background(),
		&EvaluationResult{Family: "x", Status: StatusFailed},
		splits.Test,
		ScorerF1,
	)
	assert.ErrorIs(t, err, ErrNoResult)
	assert.False(t, splits.Test.IsUsed())
}

func TestMisclassificationType(t *testing.T) {
	assert.Equal(t, "FP", Misclassification{Actual: 0, Predicted: 1}.Type())
	assert.Equal(t, "FN", Misclassification{Actual: 1, Predicted: 0}.Type())
}
