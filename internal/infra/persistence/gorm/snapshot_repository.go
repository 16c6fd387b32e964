package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/repository"
)

// GormSnapshotRepository 是 SnapshotRepository 接口的 GORM 实现
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository 创建 GormSnapshotRepository 实例
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSnapshotRepository")
	}
	return &GormSnapshotRepository{db: db}
}

// GetLatestSnapshot 获取画板最新的快照 (版本号最大，其次创建时间最新)
func (r *GormSnapshotRepository) GetLatestSnapshot(ctx context.Context, boardID uint) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("version DESC").
		Order("created_at DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("gorm: failed to get latest snapshot for board %d: %w", boardID, err)
	}
	return &snapshot, nil
}

// SaveSnapshot 插入一条新快照
func (r *GormSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *domain.Snapshot) error {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("gorm: failed to save snapshot (board %d, version %d): %w", snapshot.BoardID, snapshot.Version, err)
	}
	return nil
}
