package gormpersistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pixelgrid/internal/domain"
)

// actionBatchSize 单次 INSERT 的最大记录数
const actionBatchSize = 500

// GormActionRepository 是 ActionRepository 接口的 GORM 实现
type GormActionRepository struct {
	db *gorm.DB
}

// NewGormActionRepository 创建 GormActionRepository 实例
func NewGormActionRepository(db *gorm.DB) *GormActionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormActionRepository")
	}
	return &GormActionRepository{db: db}
}

// SaveBatch 批量保存变更记录，超过 actionBatchSize 时分批插入
func (r *GormActionRepository) SaveBatch(ctx context.Context, actions []domain.Action) error {
	if len(actions) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).CreateInBatches(&actions, actionBatchSize).Error
	if err != nil {
		return fmt.Errorf("gorm: failed to save action batch (size %d): %w", len(actions), err)
	}
	return nil
}

// GetCountSince 获取画板在 since 之后的变更数量。since 为零值时统计全部。
func (r *GormActionRepository) GetCountSince(ctx context.Context, boardID uint, since time.Time) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Action{}).Where("board_id = ?", boardID)
	if !since.IsZero() {
		query = query.Where("created_at > ?", since)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("gorm: failed to count actions for board %d since %v: %w", boardID, since, err)
	}
	return count, nil
}
