// Package gormpersistence 提供 repository 接口基于 GORM + MySQL 的实现。
package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/repository"
)

// GormUserRepository 存取画板所有者的账号。
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUserRepository")
	}
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, fmt.Sprintf("username %q", username), "username = ?", username)
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.findOne(ctx, fmt.Sprintf("id %d", id), "id = ?", id)
}

// findOne 返回第一个匹配的账号，desc 只用于错误信息。
func (r *GormUserRepository) findOne(ctx context.Context, desc string, query string, args ...any) (*domain.User, error) {
	var account domain.User
	err := r.db.WithContext(ctx).Where(query, args...).Take(&account).Error
	switch {
	case err == nil:
		return &account, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, repository.ErrUserNotFound
	default:
		return nil, fmt.Errorf("gorm: load account by %s: %w", desc, err)
	}
}

// Save 新账号 (ID 为 0) 执行 INSERT 并回填 ID，已有账号整体更新。
// 用户名或邮箱冲突映射为 ErrDuplicateEntry。
func (r *GormUserRepository) Save(ctx context.Context, account *domain.User) error {
	tx := r.db.WithContext(ctx)
	var err error
	if account.ID == 0 {
		err = tx.Create(account).Error
	} else {
		err = tx.Save(account).Error
	}
	if isDuplicateEntryError(err) {
		return repository.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("gorm: save account %q: %w", account.Username, err)
	}
	return nil
}
