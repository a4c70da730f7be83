package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesDataset(values ...float64) *Dataset {
	recs := make([]GameRecord, len(values))
	for i, v := range values {
		recs[i] = NewGameRecord("game")
		recs[i].GlobalSales = v
	}
	return NewDataset([]string{ColName, ColPlatform, ColGenre, ColGlobalSales}, recs)
}

func TestBuildTargetMedian(t *testing.T) {
	ds := salesDataset(0.1, 0.5, 0.5, 2.0, 7.5)
	report, err := BuildTarget(ds, TargetConf{SalesColumn: ColGlobalSales, Mode: ThresholdMedian})
	require.NoError(t, err)
	assert.Equal(t, 0.5, report.Threshold)
	assert.Equal(t, 2, report.Positive)
	assert.Equal(t, 3, report.Negative)
	labels, err := ds.Labels()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 1, 1}, labels)
	assert.True(t, ds.HasColumn(ColSuccess))
	assert.InDelta(t, 0.4, report.PositiveRate(), 1e-9)
}

func TestBuildTargetFixedIsStrict(t *testing.T) {
	ds := salesDataset(0.99, 1.0, 1.01)
	_, err := BuildTarget(ds, TargetConf{SalesColumn: ColGlobalSales, Mode: ThresholdFixed, Threshold: 1.0})
	require.NoError(t, err)
	labels, _ := ds.Labels()
	assert.Equal(t, []int{0, 0, 1}, labels)
}

func TestBuildTargetDeterministic(t *testing.T) {
	for _, threshold := range []float64{0, 0.3, 1, 5} {
		ds1 := salesDataset(0.1, 0.3, 4, 0.3, 12, 0.02)
		ds2 := salesDataset(0.1, 0.3, 4, 0.3, 12, 0.02)
		conf := TargetConf{SalesColumn: ColGlobalSales, Mode: ThresholdFixed, Threshold: threshold}
		_, err := BuildTarget(ds1, conf)
		require.NoError(t, err)
		_, err = BuildTarget(ds2, conf)
		require.NoError(t, err)
		l1, _ := ds1.Labels()
		l2, _ := ds2.Labels()
		assert.Equal(t, l1, l2)
	}
}

func TestBuildTargetRejectsMissingSales(t *testing.T) {
	ds := salesDataset(1, Missing(), 3)
	_, err := BuildTarget(ds, TargetConf{SalesColumn: ColGlobalSales, Mode: ThresholdMedian})
	assert.Error(t, err)
	assert.False(t, ds.IsLabeled())
}

func TestBuildTargetOnlyOnce(t *testing.T) {
	ds := salesDataset(1, 2, 3)
	conf := TargetConf{SalesColumn: ColGlobalSales, Mode: ThresholdMedian}
	_, err := BuildTarget(ds, conf)
	require.NoError(t, err)
	_, err = BuildTarget(ds, conf)
	assert.Error(t, err)
}

func TestBuildTargetInvalidConf(t *testing.T) {
	ds := salesDataset(1, 2, 3)
	_, err := BuildTarget(ds, TargetConf{SalesColumn: ColCriticScore, Mode: ThresholdMedian})
	assert.Error(t, err)
	_, err = BuildTarget(ds, TargetConf{SalesColumn: ColGlobalSales, Mode: "mean"})
	assert.Error(t, err)
	_, err = BuildTarget(ds, TargetConf{SalesColumn: ColNASales, Mode: ThresholdMedian})
	assert.ErrorIs(t, err, ErrMissingColumn)
}
