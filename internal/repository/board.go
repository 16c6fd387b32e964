package repository

import (
	"context"

	"pixelgrid/internal/domain"
)

// BoardRepository 定义了画板及其底图的存储操作。
type BoardRepository interface {
	// FindByID 根据画板 ID 查找，不存在时返回 ErrBoardNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Board, error)

	// FindByOwner 返回用户的所有画板，按创建时间倒序。
	FindByOwner(ctx context.Context, ownerID uint) ([]domain.Board, error)

	// FindAllByIDs 根据一组 ID 批量查询，快照任务用它获取活跃画板的尺寸。
	FindAllByIDs(ctx context.Context, ids []uint) ([]domain.Board, error)

	// Save 创建或更新画板。
	Save(ctx context.Context, board *domain.Board) error

	// CreateWithImage 在同一事务中创建画板和底图。
	CreateWithImage(ctx context.Context, board *domain.Board, image *domain.BoardImage) error

	// FindImage 返回画板底图，没有时返回 ErrImageNotFound。
	FindImage(ctx context.Context, boardID uint) (*domain.BoardImage, error)

	// TouchLastActive 更新画板的最后活跃时间。
	TouchLastActive(ctx context.Context, boardID uint) error
}
