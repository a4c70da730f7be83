package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSample(t *testing.T) *Dataset {
	ds, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return ds
}

func TestApplyMissingPolicyDrop(t *testing.T) {
	ds := loadSample(t)
	report, err := ApplyMissingPolicy(
		ds, PolicyDrop, ColGlobalSales, []string{ColYear, ColCriticScore, ColUserScore})
	require.NoError(t, err)
	assert.Equal(t, 5, report.RowsBefore)
	assert.Equal(t, 2, report.RowsAfter)
	assert.Equal(t, 3, report.Dropped)
	assert.Empty(t, report.ImputedCols)
	assert.Equal(t, "Wii Sports", ds.Records[0].Name)
	assert.Equal(t, "Mario Kart Wii", ds.Records[1].Name)
}

func TestApplyMissingPolicyImpute(t *testing.T) {
	ds := loadSample(t)
	report, err := ApplyMissingPolicy(
		ds, PolicyImpute, ColGlobalSales, []string{ColCriticScore, ColUserScore, ColRating})
	require.NoError(t, err)
	assert.Equal(t, 5, report.RowsAfter)
	assert.Equal(t, 0, report.Dropped)
	assert.Equal(t, 3, report.ImputedCols[ColCriticScore])
	assert.Equal(t, 3, report.ImputedCols[ColUserScore])
	assert.Equal(t, 3, report.ImputedCols[ColRating])
	assert.Equal(t, []string{ColCriticScore, ColRating, ColUserScore}, report.ImputedColumns())
	assert.Equal(t, 79.0, ds.Records[1].CriticScore)
	assert.InDelta(t, 8.15, ds.Records[1].UserScore, 1e-9)
	assert.Equal(t, "E", ds.Records[4].Rating)
}

func TestApplyMissingPolicyImputeNeverGuessesSales(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(
		"Name,Platform,Genre,Global_Sales,Critic_Score\nA,PC,Action,1,50\nB,PC,Action,,60\nC,PC,Action,3,\n"))
	require.NoError(t, err)
	report, err := ApplyMissingPolicy(ds, PolicyImpute, ColGlobalSales, []string{ColCriticScore})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 50.0, ds.Records[1].CriticScore)
}

func TestApplyMissingPolicyUnknown(t *testing.T) {
	ds := loadSample(t)
	_, err := ApplyMissingPolicy(ds, MissingPolicy("guess"), ColGlobalSales, nil)
	assert.Error(t, err)
	assert.Equal(t, 5, ds.Len())
}

func TestApplyMissingPolicyMissingFeatureColumn(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("Name,Platform,Genre,Global_Sales\nA,PC,Action,1\n"))
	require.NoError(t, err)
	_, err = ApplyMissingPolicy(ds, PolicyDrop, ColGlobalSales, []string{ColCriticScore})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestMostFrequentTies(t *testing.T) {
	ds := NewDataset(
		[]string{ColName, ColPlatform, ColGenre},
		[]GameRecord{
			{Name: "a", Genre: "Sports"},
			{Name: "b", Genre: "Action"},
			{Name: "c", Genre: "Sports"},
			{Name: "d", Genre: "Action"},
		},
	)
	assert.Equal(t, "Action", mostFrequent(ds, ColGenre))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, Missing(), 3, 2}))
	assert.True(t, IsMissing(Median([]float64{Missing()})))
}
