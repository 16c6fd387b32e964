package mocks

import (
	"context"
	"time"

	"pixelgrid/internal/domain"

	"github.com/stretchr/testify/mock"
)

// ActionRepository 是 repository.ActionRepository 的 mock。
type ActionRepository struct {
	mock.Mock
}

func (m *ActionRepository) SaveBatch(ctx context.Context, actions []domain.Action) error {
	return m.Called(ctx, actions).Error(0)
}

func (m *ActionRepository) GetCountSince(ctx context.Context, boardID uint, since time.Time) (int64, error) {
	args := m.Called(ctx, boardID, since)
	return args.Get(0).(int64), args.Error(1)
}
