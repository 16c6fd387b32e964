package mocks

import (
	"context"
	"time"

	"pixelgrid/internal/domain"

	"github.com/stretchr/testify/mock"
)

// StateRepository 是 repository.StateRepository 的 mock。
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) GetBoardState(ctx context.Context, boardID uint) (domain.BoardState, error) {
	args := m.Called(ctx, boardID)
	state, _ := args.Get(0).(domain.BoardState)
	return state, args.Error(1)
}

func (m *StateRepository) HasBoardState(ctx context.Context, boardID uint) (bool, error) {
	args := m.Called(ctx, boardID)
	return args.Bool(0), args.Error(1)
}

func (m *StateRepository) ReplaceBoardState(ctx context.Context, boardID uint, state domain.BoardState, version uint) error {
	return m.Called(ctx, boardID, state, version).Error(0)
}

func (m *StateRepository) ApplyActionAtomically(ctx context.Context, boardID uint, actionType domain.ActionType, data domain.CellData) (uint, error) {
	args := m.Called(ctx, boardID, actionType, data)
	return args.Get(0).(uint), args.Error(1)
}

func (m *StateRepository) GetCurrentVersion(ctx context.Context, boardID uint) (uint, error) {
	args := m.Called(ctx, boardID)
	return args.Get(0).(uint), args.Error(1)
}

func (m *StateRepository) GetOpCount(ctx context.Context, boardID uint) (int64, error) {
	args := m.Called(ctx, boardID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StateRepository) ResetOpCount(ctx context.Context, boardID uint) error {
	return m.Called(ctx, boardID).Error(0)
}

func (m *StateRepository) GetSnapshotCache(ctx context.Context, boardID uint) (*domain.Snapshot, error) {
	args := m.Called(ctx, boardID)
	snapshot, _ := args.Get(0).(*domain.Snapshot)
	return snapshot, args.Error(1)
}

func (m *StateRepository) SetSnapshotCache(ctx context.Context, boardID uint, snapshot *domain.Snapshot, ttl time.Duration) error {
	return m.Called(ctx, boardID, snapshot, ttl).Error(0)
}

func (m *StateRepository) GetLastSnapshotTime(ctx context.Context, boardID uint) (time.Time, error) {
	args := m.Called(ctx, boardID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *StateRepository) SetLastSnapshotTime(ctx context.Context, boardID uint, at time.Time, ttl time.Duration) error {
	return m.Called(ctx, boardID, at, ttl).Error(0)
}
