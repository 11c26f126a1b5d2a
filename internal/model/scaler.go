package model

import (
	"encoding/json"
	"fmt"
)

// StandardScaler centers and scales each feature column.
type StandardScaler struct {
	Features []string  `json:"features"`
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
}

func ParseScaler(data []byte) (*StandardScaler, error) {
	var s StandardScaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	if len(s.Mean) != FeatureCount || len(s.Scale) != FeatureCount {
		return nil, fmt.Errorf("scaler: expected %d features, got mean=%d scale=%d", FeatureCount, len(s.Mean), len(s.Scale))
	}
	if err := checkFeatureNames(s.Features); err != nil {
		return nil, fmt.Errorf("scaler: %w", err)
	}
	return &s, nil
}

// Transform returns a scaled copy of rows. A zero scale is treated as 1.
func (s *StandardScaler) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("scaler: row %d has %d features, want %d", i, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scale := s.Scale[j]
			if scale == 0 {
				scale = 1
			}
			scaled[j] = (v - s.Mean[j]) / scale
		}
		out[i] = scaled
	}
	return out, nil
}
