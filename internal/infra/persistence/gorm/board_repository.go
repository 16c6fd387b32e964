package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/repository"
)

// GormBoardRepository 是 BoardRepository 接口的 GORM 实现
type GormBoardRepository struct {
	db *gorm.DB
}

// NewGormBoardRepository 创建 GormBoardRepository 实例
func NewGormBoardRepository(db *gorm.DB) *GormBoardRepository {
	if db == nil {
		panic("database connection cannot be nil for GormBoardRepository")
	}
	return &GormBoardRepository{db: db}
}

// FindByID 根据画板 ID 查找画板
func (r *GormBoardRepository) FindByID(ctx context.Context, id uint) (*domain.Board, error) {
	var board domain.Board
	err := r.db.WithContext(ctx).First(&board, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBoardNotFound
		}
		return nil, fmt.Errorf("gorm: find board by id %d: %w", id, err)
	}
	return &board, nil
}

// FindByOwner 返回用户的全部画板，最新创建的在前
func (r *GormBoardRepository) FindByOwner(ctx context.Context, ownerID uint) ([]domain.Board, error) {
	var boards []domain.Board
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&boards).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find boards by owner %d: %w", ownerID, err)
	}
	return boards, nil
}

// FindAllByIDs 根据 ID 列表批量获取画板
func (r *GormBoardRepository) FindAllByIDs(ctx context.Context, ids []uint) ([]domain.Board, error) {
	var boards []domain.Board
	if len(ids) == 0 {
		return boards, nil // 避免空的 IN 查询
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&boards).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find boards by ids: %w", err)
	}
	return boards, nil
}

// Save 保存画板（创建或更新）
func (r *GormBoardRepository) Save(ctx context.Context, board *domain.Board) error {
	err := r.db.WithContext(ctx).Save(board).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save board (id: %d, name: %s): %w", board.ID, board.Name, err)
	}
	return nil
}

// CreateWithImage 在一个事务中创建画板及其底图
func (r *GormBoardRepository) CreateWithImage(ctx context.Context, board *domain.Board, image *domain.BoardImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(board).Error; err != nil {
			return fmt.Errorf("gorm: create board '%s': %w", board.Name, err)
		}
		image.BoardID = board.ID
		if err := tx.Create(image).Error; err != nil {
			return fmt.Errorf("gorm: create image for board %d: %w", board.ID, err)
		}
		return nil
	})
}

// FindImage 获取画板底图
func (r *GormBoardRepository) FindImage(ctx context.Context, boardID uint) (*domain.BoardImage, error) {
	var image domain.BoardImage
	err := r.db.WithContext(ctx).Where("board_id = ?", boardID).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrImageNotFound
		}
		return nil, fmt.Errorf("gorm: find image for board %d: %w", boardID, err)
	}
	return &image, nil
}

// TouchLastActive 更新最后活跃时间，不触发 UpdatedAt
func (r *GormBoardRepository) TouchLastActive(ctx context.Context, boardID uint) error {
	err := r.db.WithContext(ctx).
		Model(&domain.Board{}).
		Where("id = ?", boardID).
		UpdateColumn("last_active", time.Now()).Error
	if err != nil {
		return fmt.Errorf("gorm: touch last_active for board %d: %w", boardID, err)
	}
	return nil
}
