package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/ad-moderation/internal/domain"
	"github.com/phrazzld/ad-moderation/internal/scoring"
	"github.com/stretchr/testify/mock"
)

// MockScorer is a scoring.Scorer with a configurable ScoreFn. Without one it
// returns Prediction.
type MockScorer struct {
	mu    sync.Mutex
	calls []domain.Features

	Prediction domain.Prediction
	ScoreFn    func(ctx context.Context, f domain.Features) (domain.Prediction, error)
}

var _ scoring.Scorer = (*MockScorer)(nil)

// Score implements scoring.Scorer.
func (m *MockScorer) Score(ctx context.Context, f domain.Features) (domain.Prediction, error) {
	m.mu.Lock()
	m.calls = append(m.calls, f)
	m.mu.Unlock()
	if m.ScoreFn != nil {
		return m.ScoreFn(ctx, f)
	}
	return m.Prediction, nil
}

// Calls returns the features Score was invoked with.
func (m *MockScorer) Calls() []domain.Features {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Features(nil), m.calls...)
}

// TestifyMockScorer is a mock of scoring.Scorer for use with testify/mock.
type TestifyMockScorer struct {
	mock.Mock
}

var _ scoring.Scorer = (*TestifyMockScorer)(nil)

// Score is a mock implementation of scoring.Scorer.Score
func (m *TestifyMockScorer) Score(ctx context.Context, f domain.Features) (domain.Prediction, error) {
	args := m.Called(ctx, f)
	if p, ok := args.Get(0).(domain.Prediction); ok {
		return p, args.Error(1)
	}
	return domain.Prediction{}, args.Error(1)
}
