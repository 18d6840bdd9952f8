package bizmatcher

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Model scores a batch of feature vectors, returning one probability per
// row. LinearModel is the production artifact-backed implementation.
type Model interface {
	PredictProba(features [][]float64) ([]float64, error)
}

// modelArtifact is the on-disk JSON representation of a trained model —
// a logistic-regression weight vector plus bias, replacing the reference
// implementation's pickled scikit-learn estimator with a portable,
// inspectable format.
type modelArtifact struct {
	FeatureDim        int       `json:"feature_dim"`
	Weights           []float64 `json:"weights"`
	Bias              float64   `json:"bias"`
	Threshold         float64   `json:"threshold"`
	MinInstanceCount  int       `json:"min_instance_count"`
	BusinessStartHour int       `json:"business_start_hour"`
	BusinessEndHour   int       `json:"business_end_hour"`
}

// LinearModel is a logistic-regression scorer: PredictProba returns
// sigmoid(w·x + b) per row.
type LinearModel struct {
	weights []float64
	bias    float64
}

// LoadModelArtifact reads the JSON model file at path and returns the
// scorer plus the feature-pipeline configuration and decision parameters
// that were trained alongside it.
func LoadModelArtifact(path string) (*LinearModel, FeaturePipeline, float64, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("read model artifact: %w", err)
	}

	var artifact modelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, nil, 0, 0, fmt.Errorf("decode model artifact: %w", err)
	}
	if len(artifact.Weights) == 0 {
		return nil, nil, 0, 0, fmt.Errorf("invalid model artifact: missing weights")
	}
	if artifact.FeatureDim != 0 && artifact.FeatureDim != len(artifact.Weights) {
		return nil, nil, 0, 0, fmt.Errorf("invalid model artifact: feature_dim %d does not match %d weights", artifact.FeatureDim, len(artifact.Weights))
	}

	model := &LinearModel{weights: artifact.Weights, bias: artifact.Bias}
	pipeline := NewStaticFeaturePipeline(artifact.BusinessStartHour, artifact.BusinessEndHour)
	return model, pipeline, artifact.Threshold, artifact.MinInstanceCount, nil
}

// PredictProba scores each row independently.
func (m *LinearModel) PredictProba(features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, row := range features {
		if len(row) != len(m.weights) {
			return nil, fmt.Errorf("feature vector length %d does not match model dimension %d", len(row), len(m.weights))
		}
		var z float64
		for j, w := range m.weights {
			z += w * row[j]
		}
		z += m.bias
		out[i] = sigmoid(z)
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
