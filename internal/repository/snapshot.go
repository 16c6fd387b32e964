package repository

import (
	"context"

	"pixelgrid/internal/domain"
)

// SnapshotRepository 定义了快照在数据库中的操作。
type SnapshotRepository interface {
	// GetLatestSnapshot 获取画板的最新快照，没有时返回 ErrSnapshotNotFound。
	GetLatestSnapshot(ctx context.Context, boardID uint) (*domain.Snapshot, error)

	// SaveSnapshot 保存快照。
	SaveSnapshot(ctx context.Context, snapshot *domain.Snapshot) error
}
