package mocks

import (
	"context"

	"pixelgrid/internal/domain"

	"github.com/stretchr/testify/mock"
)

// BoardRepository 是 repository.BoardRepository 的 mock。
type BoardRepository struct {
	mock.Mock
}

func (m *BoardRepository) FindByID(ctx context.Context, id uint) (*domain.Board, error) {
	args := m.Called(ctx, id)
	board, _ := args.Get(0).(*domain.Board)
	return board, args.Error(1)
}

func (m *BoardRepository) FindByOwner(ctx context.Context, ownerID uint) ([]domain.Board, error) {
	args := m.Called(ctx, ownerID)
	boards, _ := args.Get(0).([]domain.Board)
	return boards, args.Error(1)
}

func (m *BoardRepository) FindAllByIDs(ctx context.Context, ids []uint) ([]domain.Board, error) {
	args := m.Called(ctx, ids)
	boards, _ := args.Get(0).([]domain.Board)
	return boards, args.Error(1)
}

func (m *BoardRepository) Save(ctx context.Context, board *domain.Board) error {
	return m.Called(ctx, board).Error(0)
}

func (m *BoardRepository) CreateWithImage(ctx context.Context, board *domain.Board, image *domain.BoardImage) error {
	return m.Called(ctx, board, image).Error(0)
}

func (m *BoardRepository) FindImage(ctx context.Context, boardID uint) (*domain.BoardImage, error) {
	args := m.Called(ctx, boardID)
	image, _ := args.Get(0).(*domain.BoardImage)
	return image, args.Error(1)
}

func (m *BoardRepository) TouchLastActive(ctx context.Context, boardID uint) error {
	return m.Called(ctx, boardID).Error(0)
}
