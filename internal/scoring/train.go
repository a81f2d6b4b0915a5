package scoring

import (
	"math/rand"
	"time"
)

// TrainConfig controls the bootstrap trainer.
type TrainConfig struct {
	Samples      int
	Seed         int64
	Iterations   int
	LearningRate float64
	// C is the inverse L2 regularization strength.
	C float64
}

// DefaultTrainConfig trains on 1000 seeded samples.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Samples:      1000,
		Seed:         42,
		Iterations:   3000,
		LearningRate: 1.0,
		C:            1.0,
	}
}

// SyntheticDataset draws uniform feature vectors and labels a sample as a
// violation when the seller is barely verified and the listing has almost
// no images (x0 < 0.3 and x1 < 0.2).
func SyntheticDataset(samples int, seed int64) ([]Vector, []float64) {
	rng := rand.New(rand.NewSource(seed))
	xs := make([]Vector, samples)
	ys := make([]float64, samples)
	for i := range xs {
		for j := 0; j < NumFeatures; j++ {
			xs[i][j] = rng.Float64()
		}
		if xs[i][0] < 0.3 && xs[i][1] < 0.2 {
			ys[i] = 1
		}
	}
	return xs, ys
}

// Train fits a logistic-regression model with batch gradient descent on
// the synthetic dataset. The result is deterministic for a given config.
func Train(cfg TrainConfig) *Model {
	xs, ys := SyntheticDataset(cfg.Samples, cfg.Seed)
	m := Fit(xs, ys, cfg)
	m.Samples = cfg.Samples
	m.Seed = cfg.Seed
	m.TrainedAt = time.Now().UTC()
	return m
}

// Fit minimizes mean log-loss plus an L2 penalty on the weights (not the bias).
func Fit(xs []Vector, ys []float64, cfg TrainConfig) *Model {
	m := &Model{Weights: make([]float64, NumFeatures)}
	n := float64(len(xs))
	if n == 0 {
		return m
	}

	lambda := 0.0
	if cfg.C > 0 {
		lambda = 1 / (cfg.C * n)
	}

	grad := make([]float64, NumFeatures)
	for iter := 0; iter < cfg.Iterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradBias float64

		for i, x := range xs {
			diff := m.Probability(x) - ys[i]
			for j := range grad {
				grad[j] += diff * x[j]
			}
			gradBias += diff
		}

		for j := range m.Weights {
			m.Weights[j] -= cfg.LearningRate * (grad[j]/n + lambda*m.Weights[j])
		}
		m.Bias -= cfg.LearningRate * gradBias / n
	}
	return m
}
