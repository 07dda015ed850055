package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockEditGateway mocks the EditGateway interface
type MockEditGateway struct {
	mock.Mock
}

func (m *MockEditGateway) UpdateSessionScalars(ctx context.Context, sessionID uuid.UUID, upd domain.SessionScalarUpdate) error {
	args := m.Called(ctx, sessionID, upd)
	return args.Error(0)
}

func (m *MockEditGateway) RetagGame(ctx context.Context, sessionID uuid.UUID, newName string) (uuid.UUID, error) {
	args := m.Called(ctx, sessionID, newName)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockEditGateway) RetagPlayer(ctx context.Context, sessionID, oldPlayerID uuid.UUID, newName string) (uuid.UUID, error) {
	args := m.Called(ctx, sessionID, oldPlayerID, newName)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockEditGateway) UpdateScore(ctx context.Context, scoreID uuid.UUID, upd domain.ScoreUpdate) error {
	args := m.Called(ctx, scoreID, upd)
	return args.Error(0)
}

// MockInvalidator mocks the CacheInvalidator interface
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// MockSessionRepository mocks the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, input domain.SessionCreate) (*domain.SessionAggregate, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionAggregate), args.Error(1)
}

func (m *MockSessionRepository) GetAggregate(ctx context.Context, id uuid.UUID) (*domain.SessionAggregate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionAggregate), args.Error(1)
}

func (m *MockSessionRepository) List(ctx context.Context, limit, offset int) ([]domain.SessionAggregate, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.SessionAggregate), args.Error(1)
}

func (m *MockSessionRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID, limit, offset int) ([]domain.SessionAggregate, error) {
	args := m.Called(ctx, playerID, limit, offset)
	return args.Get(0).([]domain.SessionAggregate), args.Error(1)
}

func (m *MockSessionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStatsRepository mocks the StatsRepository interface
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) PlayerStats(ctx context.Context, playerID uuid.UUID) (*domain.PlayerStats, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlayerStats), args.Error(1)
}

// MockStatsCache mocks the StatsCache interface
type MockStatsCache struct {
	mock.Mock
}

func (m *MockStatsCache) Get(ctx context.Context, playerID uuid.UUID) (*domain.PlayerStats, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlayerStats), args.Error(1)
}

func (m *MockStatsCache) Set(ctx context.Context, playerID uuid.UUID, stats *domain.PlayerStats) error {
	args := m.Called(ctx, playerID, stats)
	return args.Error(0)
}
