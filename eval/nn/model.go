package nn

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/czcorpus/vgsales/eval/predict"
	"github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
	"github.com/rs/zerolog/log"
)

const (
	FamilyName = "neural_network"

	ParamHiddenUnits  = "hidden_units"
	ParamEpochs       = "epochs"
	ParamLearningRate = "learning_rate"
	ParamSeed         = "seed"

	defaultHiddenUnits  = 8
	defaultEpochs       = 200
	defaultLearningRate = 0.005
)

type FeatureStats struct {
	Min float64
	Max float64
}

type jsonizedModel struct {
	NeuralNet      *deep.Dump      `json:"neuralNet"`
	DataRanges     []FeatureStats  `json:"dataRanges"`
	ClassThreshold float64         `json:"classThreshold"`
	Params         modutils.Params `json:"params"`
}

// Model is a feed-forward network with a single hidden layer.
// Initial weights are drawn from a seeded generator but the trainer
// shuffles examples using the global one, so fits are not
// bit-reproducible.
type Model struct {
	NeuralNet      *deep.Neural
	DataRanges     []FeatureStats
	ClassThreshold float64
	HiddenUnits    int
	Epochs         int
	LearningRate   float64
	Seed           uint64
	params         modutils.Params
}

func NewModel(params modutils.Params) (*Model, error) {
	hidden, err := params.Int(ParamHiddenUnits, defaultHiddenUnits)
	if err != nil {
		return nil, err
	}
	epochs, err := params.Int(ParamEpochs, defaultEpochs)
	if err != nil {
		return nil, err
	}
	seed, err := params.Int(ParamSeed, 42)
	if err != nil {
		return nil, err
	}
	lr := params.Float(ParamLearningRate, defaultLearningRate)
	if hidden < 1 || epochs < 1 || lr <= 0 {
		return nil, fmt.Errorf("invalid neural network params: %s", params)
	}
	return &Model{
		ClassThreshold: 0.5,
		HiddenUnits:    hidden,
		Epochs:         epochs,
		LearningRate:   lr,
		Seed:           uint64(seed),
		params:         params.Clone(),
	}, nil
}

// Complexity is the number of hidden units
func Complexity(params modutils.Params) float64 {
	return params.Float(ParamHiddenUnits, defaultHiddenUnits)
}

func (m *Model) GetInfo() string {
	return fmt.Sprintf(
		"NN model, hidden units: %d, epochs: %d, learning rate: %v",
		m.HiddenUnits, m.Epochs, m.LearningRate)
}

func (m *Model) Fit(ctx context.Context, X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("failed to train NN model - invalid training data size")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.DataRanges = getDataStats(X)
	examples := make(training.Examples, len(X))
	var numPositive int
	for i, x := range X {
		examples[i] = training.Example{
			Input:    m.normalize(x),
			Response: []float64{float64(y[i])},
		}
		numPositive += y[i]
	}
	log.Debug().
		Int("numPositive", numPositive).
		Int("dataSize", len(X)).
		Int("hiddenUnits", m.HiddenUnits).
		Msg("prepared training vectors")

	rng := rand.New(rand.NewPCG(m.Seed, uint64(m.HiddenUnits)))
	m.NeuralNet = deep.NewNeural(&deep.Config{
		Inputs:     len(X[0]),
		Layout:     []int{m.HiddenUnits, 1},
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeBinary,
		Weight: func() float64 {
			return rng.Float64() - 0.5
		},
		Bias: true,
	})
	optimizer := training.NewAdam(m.LearningRate, 0.9, 0.999, 1e-8)
	trainer := training.NewTrainer(optimizer, 0)
	trainer.Train(m.NeuralNet, examples, nil, m.Epochs)
	return ctx.Err()
}

func getDataStats(X [][]float64) []FeatureStats {
	stats := make([]FeatureStats, len(X[0]))
	for i, v := range X[0] {
		stats[i] = FeatureStats{Min: v, Max: v}
	}
	for _, row := range X[1:] {
		for i, v := range row {
			if v > stats[i].Max {
				stats[i].Max = v
			}
			if v < stats[i].Min {
				stats[i].Min = v
			}
		}
	}
	return stats
}

func (m *Model) normalize(x []float64) []float64 {
	ans := make([]float64, len(x))
	for i, v := range x {
		min := m.DataRanges[i].Min
		max := m.DataRanges[i].Max
		if max == min {
			ans[i] = 0.0 // constant feature

		} else {
			ans[i] = (v - min) / (max - min)
		}
	}
	return ans
}

func (m *Model) Predict(x []float64) predict.Prediction {
	out := m.NeuralNet.Predict(m.normalize(x))
	var predClass int
	if out[0] > m.ClassThreshold {
		predClass = 1
	}
	return predict.Prediction{
		Votes:          []float64{1 - out[0], out[0]},
		PredictedClass: predClass,
	}
}

func (m *Model) SaveToFile(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to save NN model to a file: %w", err)
	}
	defer file.Close()
	tmpModel := jsonizedModel{
		NeuralNet:      m.NeuralNet.Dump(),
		DataRanges:     m.DataRanges,
		ClassThreshold: m.ClassThreshold,
		Params:         m.params,
	}
	bytes, err := json.Marshal(tmpModel)
	if err != nil {
		return fmt.Errorf("failed to save NN to file: %w", err)
	}
	if _, err = file.Write(bytes); err != nil {
		return fmt.Errorf("failed to save NN model to a file: %w", err)
	}
	return nil
}

func LoadFromFile(filePath string) (*Model, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Neural Network model from file %s: %w", filePath, err)
	}
	var tmpModel jsonizedModel
	if err := json.Unmarshal(data, &tmpModel); err != nil {
		return nil, fmt.Errorf("failed to load Neural Network model from file %s: %w", filePath, err)
	}
	model, err := NewModel(tmpModel.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to load Neural Network model from file %s: %w", filePath, err)
	}
	model.NeuralNet = deep.FromDump(tmpModel.NeuralNet)
	model.DataRanges = tmpModel.DataRanges
	model.ClassThreshold = tmpModel.ClassThreshold
	return model, nil
}
