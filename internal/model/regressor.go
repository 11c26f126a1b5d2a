package model

import (
	"encoding/json"
	"fmt"
)

// FeatureNames is the column order every feature artifact is fitted on.
var FeatureNames = []string{
	"day_of_week",
	"month",
	"year",
	"is_weekend",
	"sales_7d_avg",
	"stock_to_sales_ratio",
}

// FeatureCount is len(FeatureNames).
const FeatureCount = 6

// Regressor predicts one value per scaled feature row.
type Regressor interface {
	Kind() string
	Predict(rows [][]float64) ([]float64, error)
}

const (
	KindLinear = "linear"
	KindForest = "forest"
)

type regressorDocument struct {
	Kind         string           `json:"kind"`
	Features     []string         `json:"features"`
	Intercept    float64          `json:"intercept"`
	Coefficients []float64        `json:"coefficients"`
	Trees        []RegressionTree `json:"trees"`
}

// ParseRegressor decodes a linear or forest regressor document.
func ParseRegressor(data []byte) (Regressor, error) {
	var doc regressorDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode feature model: %w", err)
	}
	if err := checkFeatureNames(doc.Features); err != nil {
		return nil, fmt.Errorf("feature model: %w", err)
	}

	switch doc.Kind {
	case KindLinear:
		if len(doc.Coefficients) != FeatureCount {
			return nil, fmt.Errorf("feature model: expected %d coefficients, got %d", FeatureCount, len(doc.Coefficients))
		}
		return &LinearRegressor{Intercept: doc.Intercept, Coefficients: doc.Coefficients}, nil
	case KindForest:
		if len(doc.Trees) == 0 {
			return nil, fmt.Errorf("feature model: forest has no trees")
		}
		for i := range doc.Trees {
			if err := doc.Trees[i].validate(); err != nil {
				return nil, fmt.Errorf("feature model: tree %d: %w", i, err)
			}
		}
		return &ForestRegressor{Trees: doc.Trees}, nil
	default:
		return nil, fmt.Errorf("feature model: unknown kind %q", doc.Kind)
	}
}

// LinearRegressor is intercept + coefficients·row.
type LinearRegressor struct {
	Intercept    float64
	Coefficients []float64
}

func (r *LinearRegressor) Kind() string { return KindLinear }

func (r *LinearRegressor) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(r.Coefficients) {
			return nil, fmt.Errorf("linear regressor: row %d has %d features, want %d", i, len(row), len(r.Coefficients))
		}
		y := r.Intercept
		for j, v := range row {
			y += r.Coefficients[j] * v
		}
		out[i] = y
	}
	return out, nil
}

// TreeNode is a split node or, when Left is -1, a leaf.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func (n TreeNode) isLeaf() bool { return n.Left < 0 }

// RegressionTree is a flat node array rooted at index 0. Rows go left when
// row[Feature] <= Threshold.
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *RegressionTree) validate() error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range t.Nodes {
		if n.isLeaf() {
			continue
		}
		if n.Feature < 0 || n.Feature >= FeatureCount {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		// children must point forward so evaluation always terminates
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

func (t *RegressionTree) eval(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.isLeaf() {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// ForestRegressor averages its trees.
type ForestRegressor struct {
	Trees []RegressionTree
}

func (r *ForestRegressor) Kind() string { return KindForest }

func (r *ForestRegressor) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != FeatureCount {
			return nil, fmt.Errorf("forest regressor: row %d has %d features, want %d", i, len(row), FeatureCount)
		}
		var sum float64
		for j := range r.Trees {
			sum += r.Trees[j].eval(row)
		}
		out[i] = sum / float64(len(r.Trees))
	}
	return out, nil
}

// checkFeatureNames accepts an omitted list; a present list must match FeatureNames.
func checkFeatureNames(names []string) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != FeatureCount {
		return fmt.Errorf("expected %d feature names, got %d", FeatureCount, len(names))
	}
	for i, n := range names {
		if n != FeatureNames[i] {
			return fmt.Errorf("feature %d is %q, want %q", i, n, FeatureNames[i])
		}
	}
	return nil
}
