package repository

import (
	"context"
	"time"

	"pixelgrid/internal/domain"
)

// StateRepository 定义了画板实时状态相关的操作，由 Redis 实现。
type StateRepository interface {
	// === Board State ===

	// GetBoardState 获取画板当前的全部单元格。
	GetBoardState(ctx context.Context, boardID uint) (domain.BoardState, error)

	// HasBoardState 报告实时状态是否已初始化 (区别于"已初始化但为空")。
	HasBoardState(ctx context.Context, boardID uint) (bool, error)

	// ReplaceBoardState 原子地用 state 替换实时状态并设置版本号。
	ReplaceBoardState(ctx context.Context, boardID uint, state domain.BoardState, version uint) error

	// ApplyActionAtomically 原子地应用一个变更 (HSET / HDEL / 清空)，
	// 同时递增版本号和操作计数，返回新版本号。
	ApplyActionAtomically(ctx context.Context, boardID uint, actionType domain.ActionType, data domain.CellData) (uint, error)

	// === Versioning & Counters ===

	// GetCurrentVersion 获取画板当前版本号，不存在时为 0。
	GetCurrentVersion(ctx context.Context, boardID uint) (uint, error)

	// GetOpCount 获取自上次快照以来的操作计数。
	GetOpCount(ctx context.Context, boardID uint) (int64, error)

	// ResetOpCount 重置操作计数 (生成快照后调用)。
	ResetOpCount(ctx context.Context, boardID uint) error

	// === Snapshot Caching ===

	// GetSnapshotCache 从缓存获取快照，未命中返回 ErrNotFound。
	GetSnapshotCache(ctx context.Context, boardID uint) (*domain.Snapshot, error)

	// SetSnapshotCache 写入快照缓存，ttl 为 0 表示不过期。
	SetSnapshotCache(ctx context.Context, boardID uint, snapshot *domain.Snapshot, ttl time.Duration) error

	// === Snapshot Worker State ===

	// GetLastSnapshotTime 获取上次快照时间，没有记录时返回零值。
	GetLastSnapshotTime(ctx context.Context, boardID uint) (time.Time, error)

	// SetLastSnapshotTime 记录上次快照时间。
	SetLastSnapshotTime(ctx context.Context, boardID uint, at time.Time, ttl time.Duration) error
}
