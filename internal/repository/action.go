package repository

import (
	"context"
	"time"

	"pixelgrid/internal/domain"
)

// ActionRepository 定义了单元格变更记录的持久化。
type ActionRepository interface {
	// SaveBatch 批量保存 Action 记录。
	SaveBatch(ctx context.Context, actions []domain.Action) error

	// GetCountSince 获取画板在某个时间点之后的变更数量，用于判断是否需要快照。
	GetCountSince(ctx context.Context, boardID uint, since time.Time) (int64, error)
}
