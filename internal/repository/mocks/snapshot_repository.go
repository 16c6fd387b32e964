package mocks

import (
	"context"

	"pixelgrid/internal/domain"

	"github.com/stretchr/testify/mock"
)

// SnapshotRepository 是 repository.SnapshotRepository 的 mock。
type SnapshotRepository struct {
	mock.Mock
}

func (m *SnapshotRepository) GetLatestSnapshot(ctx context.Context, boardID uint) (*domain.Snapshot, error) {
	args := m.Called(ctx, boardID)
	snapshot, _ := args.Get(0).(*domain.Snapshot)
	return snapshot, args.Error(1)
}

func (m *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *domain.Snapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}
