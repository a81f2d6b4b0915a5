package scoring

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/phrazzld/ad-moderation/internal/config"
	"github.com/phrazzld/ad-moderation/internal/domain"
)

// Scorer computes a violation verdict for one ad.
type Scorer interface {
	Score(ctx context.Context, f domain.Features) (domain.Prediction, error)
}

// Manager owns the process-wide model.
type Manager struct {
	path      string
	threshold float64
	train     TrainConfig
	logger    *slog.Logger

	mu    sync.RWMutex
	model *Model
}

var _ Scorer = (*Manager)(nil)

// NewManager creates a manager for the model file at cfg.Path.
func NewManager(cfg config.ModelConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		path:      cfg.Path,
		threshold: cfg.Threshold,
		train:     DefaultTrainConfig(),
		logger:    logger.With("component", "model_manager", "model_path", cfg.Path),
	}
}

// NewManagerWithModel wraps an already built model.
func NewManagerWithModel(m *Model, threshold float64) *Manager {
	return &Manager{threshold: threshold, model: m, logger: slog.Default()}
}

// Initialize loads the model file, or trains and saves a model when the
// file does not exist. Any other failure is returned; the caller treats it
// as fatal.
func (m *Manager) Initialize(ctx context.Context) error {
	model, err := Load(m.path)
	switch {
	case err == nil:
		m.logger.Info("loaded existing model")
	case errors.Is(err, fs.ErrNotExist):
		m.logger.Info("model file not found, training new model")
		model = Train(m.train)
		if err := Save(m.path, model); err != nil {
			m.logger.Error("failed to save trained model", "error", err)
			return fmt.Errorf("failed to save trained model: %w", err)
		}
		m.logger.Info("model trained and saved", "samples", model.Samples)
	default:
		m.logger.Error("model could not be initialized", "error", err)
		return fmt.Errorf("failed to load model: %w", err)
	}

	m.mu.Lock()
	m.model = model
	m.mu.Unlock()
	return nil
}

// Loaded reports whether a model is available.
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model != nil
}

// Score implements Scorer. is_violation is probability > threshold.
func (m *Manager) Score(_ context.Context, f domain.Features) (domain.Prediction, error) {
	m.mu.RLock()
	model := m.model
	m.mu.RUnlock()
	if model == nil {
		return domain.Prediction{}, ErrModelNotLoaded
	}

	x, err := PrepareFeatures(f)
	if err != nil {
		return domain.Prediction{}, err
	}

	p := model.Probability(x)
	return domain.Prediction{IsViolation: p > m.threshold, Probability: p}, nil
}
