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

package dt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/czcorpus/vgsales/eval/modutils"
	"github.com/czcorpus/vgsales/eval/predict"
	"github.com/rs/zerolog/log"
)

const (
	FamilyName = "decision_tree"

	ParamMaxDepth       = "max_depth"
	ParamMinSamplesLeaf = "min_samples_leaf"

	defaultMaxDepth = 5

	minGain = 1e-12
)

// Node is a node of a binary decision tree. Records with
// value of Feature <= Threshold go to the left subtree.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      *Node   `json:"left,omitempty"`
	Right     *Node   `json:"right,omitempty"`

	// Prob is the ratio of positive training records in the node
	Prob    float64 `json:"prob"`
	Samples int     `json:"samples"`
}

func (n *Node) IsLeaf() bool {
	return n.Left == nil
}

func (n *Node) depth() int {
	if n.IsLeaf() {
		return 0
	}
	return 1 + max(n.Left.depth(), n.Right.depth())
}

// Model is a CART classification tree using gini impurity.
// The split search is deterministic so the same data always
// produce the same tree.
type Model struct {
	Root           *Node           `json:"root"`
	MaxDepth       int             `json:"maxDepth"`
	MinSamplesLeaf int             `json:"minSamplesLeaf"`
	Params         modutils.Params `json:"params"`
}

func NewModel(params modutils.Params) (*Model, error) {
	maxDepth, err := params.Int(ParamMaxDepth, defaultMaxDepth)
	if err != nil {
		return nil, err
	}
	if maxDepth < 1 {
		return nil, fmt.Errorf("invalid %s: %d", ParamMaxDepth, maxDepth)
	}
	minLeaf, err := params.Int(ParamMinSamplesLeaf, 1)
	if err != nil {
		return nil, err
	}
	if minLeaf < 1 {
		return nil, fmt.Errorf("invalid %s: %d", ParamMinSamplesLeaf, minLeaf)
	}
	return &Model{
		MaxDepth:       maxDepth,
		MinSamplesLeaf: minLeaf,
		Params:         params.Clone(),
	}, nil
}

// Complexity is the maximum depth of the tree
func Complexity(params modutils.Params) float64 {
	return params.Float(ParamMaxDepth, defaultMaxDepth)
}

func (m *Model) GetInfo() string {
	var depth int
	if m.Root != nil {
		depth = m.Root.depth()
	}
	return fmt.Sprintf(
		"decision tree, max. depth: %d (actual %d), min. samples per leaf: %d",
		m.MaxDepth, depth, m.MinSamplesLeaf)
}

func (m *Model) Fit(ctx context.Context, X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("failed to train decision tree - invalid training data size")
	}
	rows := make([]int, len(X))
	for i := range rows {
		rows[i] = i
	}
	b := builder{X: X, y: y, maxDepth: m.MaxDepth, minLeaf: m.MinSamplesLeaf}
	root, err := b.build(ctx, rows, 0)
	if err != nil {
		return err
	}
	m.Root = root
	log.Debug().
		Int("dataSize", len(X)).
		Int("depth", root.depth()).
		Msg("trained decision tree")
	return nil
}

func (m *Model) Predict(x []float64) predict.Prediction {
	node := m.Root
	for !node.IsLeaf() {
		if x[node.Feature] <= node.Threshold {
			node = node.Left

		} else {
			node = node.Right
		}
	}
	return predict.FromProbability(node.Prob)
}

func (m *Model) SaveToFile(filePath string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to save decision tree to a file: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to save decision tree to a file: %w", err)
	}
	return nil
}

func LoadFromFile(filePath string) (*Model, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load decision tree from file %s: %w", filePath, err)
	}
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to load decision tree from file %s: %w", filePath, err)
	}
	return &model, nil
}

// -----------------------------

type builder struct {
	X        [][]float64
	y        []int
	maxDepth int
	minLeaf  int
}

func gini(pos, total int) float64 {
	if total == 0 {
		return 0
	}
	p := float64(pos) / float64(total)
	return 2 * p * (1 - p)
}

func (b *builder) build(ctx context.Context, rows []int, depth int) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var pos int
	for _, r := range rows {
		pos += b.y[r]
	}
	node := &Node{
		Prob:    float64(pos) / float64(len(rows)),
		Samples: len(rows),
	}
	parentGini := gini(pos, len(rows))
	if depth >= b.maxDepth || parentGini == 0 || len(rows) < 2*b.minLeaf {
		return node, nil
	}

	bestScore := parentGini - minGain
	bestFeat := -1
	var bestThr float64
	sorted := slices.Clone(rows)
	for feat := range b.X[rows[0]] {
		slices.SortStableFunc(sorted, func(r1, r2 int) int {
			v1, v2 := b.X[r1][feat], b.X[r2][feat]
			if v1 < v2 {
				return -1

			} else if v1 > v2 {
				return 1
			}
			return r1 - r2
		})
		var leftPos int
		for i := 0; i < len(sorted)-1; i++ {
			leftPos += b.y[sorted[i]]
			nLeft := i + 1
			nRight := len(sorted) - nLeft
			if nLeft < b.minLeaf || nRight < b.minLeaf {
				continue
			}
			curr, next := b.X[sorted[i]][feat], b.X[sorted[i+1]][feat]
			if curr == next {
				continue
			}
			score := (float64(nLeft)*gini(leftPos, nLeft) +
				float64(nRight)*gini(pos-leftPos, nRight)) / float64(len(sorted))
			if score < bestScore {
				bestScore = score
				bestFeat = feat
				bestThr = curr + (next-curr)/2
			}
		}
	}
	if bestFeat < 0 {
		return node, nil
	}

	var left, right []int
	for _, r := range rows {
		if b.X[r][bestFeat] <= bestThr {
			left = append(left, r)

		} else {
			right = append(right, r)
		}
	}
	var err error
	node.Feature = bestFeat
	node.Threshold = bestThr
	node.Left, err = b.build(ctx, left, depth+1)
	if err != nil {
		return nil, err
	}
	node.Right, err = b.build(ctx, right, depth+1)
	if err != nil {
		return nil, err
	}
	return node, nil
}
