// Package redisstate 提供 StateRepository 的 Redis 实现。
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/repository"
)

// DefaultKeyPrefix 是未配置前缀时使用的 key 前缀 (pixelgrid)。
const DefaultKeyPrefix = "pg:"

// opCountTTL 操作计数器的过期时间，超过后视为自上次快照以来没有新操作。
const opCountTTL = time.Hour

// RedisStateRepository 是 StateRepository 接口的 Redis 实现。
//
// 每个画板使用以下 key：
//
//	<prefix>board:<id>:state          Hash，字段 "x:y" -> 颜色
//	<prefix>board:<id>:version        String，当前版本号；存在即表示实时状态已初始化
//	<prefix>board:<id>:op_count       String，自上次快照以来的操作数
//	<prefix>board:<id>:snapshot       String，最新快照的 JSON 缓存
//	<prefix>board:<id>:last_snapshot  String，上次快照的 Unix 时间戳
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository 创建 RedisStateRepository 实例
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStateRepository{client: client, keyPrefix: keyPrefix}
}

// --- Key Generation Helpers ---

func (r *RedisStateRepository) boardKey(boardID uint, suffix string) string {
	return fmt.Sprintf("%sboard:%d:%s", r.keyPrefix, boardID, suffix)
}

func (r *RedisStateRepository) stateKey(boardID uint) string   { return r.boardKey(boardID, "state") }
func (r *RedisStateRepository) versionKey(boardID uint) string { return r.boardKey(boardID, "version") }
func (r *RedisStateRepository) opCountKey(boardID uint) string { return r.boardKey(boardID, "op_count") }
func (r *RedisStateRepository) snapshotCacheKey(boardID uint) string {
	return r.boardKey(boardID, "snapshot")
}
func (r *RedisStateRepository) lastSnapshotKey(boardID uint) string {
	return r.boardKey(boardID, "last_snapshot")
}

// --- StateRepository Interface Implementation ---

// GetBoardState 获取画板的全部单元格 (来自 Redis Hash)
func (r *RedisStateRepository) GetBoardState(ctx context.Context, boardID uint) (domain.BoardState, error) {
	key := r.stateKey(boardID)
	stateMap, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to get board state for board %d from %s: %w", boardID, key, err)
	}
	return domain.BoardState(stateMap), nil
}

// HasBoardState 以版本号 key 是否存在判断实时状态是否已初始化。
// 空 Hash 在 Redis 中不存在，所以不能用 state key 判断。
func (r *RedisStateRepository) HasBoardState(ctx context.Context, boardID uint) (bool, error) {
	key := r.versionKey(boardID)
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to check %s: %w", key, err)
	}
	return n > 0, nil
}

// ReplaceBoardState 在一个 MULTI/EXEC 事务中清空并重写状态，同时设置版本号。
func (r *RedisStateRepository) ReplaceBoardState(ctx context.Context, boardID uint, state domain.BoardState, version uint) error {
	stateKey := r.stateKey(boardID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, stateKey)
		if len(state) > 0 {
			fields := make(map[string]interface{}, len(state))
			for k, v := range state {
				fields[k] = v
			}
			pipe.HSet(ctx, stateKey, fields)
		}
		pipe.Set(ctx, r.versionKey(boardID), version, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: failed to replace board state for board %d (%d cells): %w", boardID, len(state), err)
	}
	return nil
}

// ApplyActionAtomically 在一个事务中应用变更、递增版本号和操作计数。
func (r *RedisStateRepository) ApplyActionAtomically(ctx context.Context, boardID uint, actionType domain.ActionType, data domain.CellData) (uint, error) {
	stateKey := r.stateKey(boardID)
	field := data.Cell().Key()

	var versionCmd *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		switch actionType {
		case domain.ActionPaint:
			pipe.HSet(ctx, stateKey, field, data.Color)
		case domain.ActionErase:
			pipe.HDel(ctx, stateKey, field)
		case domain.ActionClear:
			pipe.Del(ctx, stateKey)
		default:
			return fmt.Errorf("unsupported action type '%s'", actionType)
		}
		versionCmd = pipe.Incr(ctx, r.versionKey(boardID))
		pipe.Incr(ctx, r.opCountKey(boardID))
		pipe.Expire(ctx, r.opCountKey(boardID), opCountTTL)
		return nil
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"board_id":    boardID,
			"action_type": actionType,
			"field":       field,
		}).WithError(err).Error("Redis transaction for action failed")
		return 0, fmt.Errorf("redis: failed to apply %s action for board %d: %w", actionType, boardID, err)
	}
	return uint(versionCmd.Val()), nil
}

// GetCurrentVersion 获取画板当前版本号，key 不存在视为 0。
func (r *RedisStateRepository) GetCurrentVersion(ctx context.Context, boardID uint) (uint, error) {
	key := r.versionKey(boardID)
	versionStr, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: failed to get current version for board %d from %s: %w", boardID, key, err)
	}
	version, err := strconv.ParseUint(versionStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: failed to parse version '%s' for board %d: %w", versionStr, boardID, err)
	}
	return uint(version), nil
}

// GetOpCount 获取自上次快照以来的操作计数。
func (r *RedisStateRepository) GetOpCount(ctx context.Context, boardID uint) (int64, error) {
	key := r.opCountKey(boardID)
	count, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: failed to get op count for board %d from %s: %w", boardID, key, err)
	}
	return count, nil
}

// ResetOpCount 重置操作计数器。
func (r *RedisStateRepository) ResetOpCount(ctx context.Context, boardID uint) error {
	key := r.opCountKey(boardID)
	if err := r.client.Set(ctx, key, "0", opCountTTL).Err(); err != nil {
		return fmt.Errorf("redis: failed to reset op count for board %d on key %s: %w", boardID, key, err)
	}
	return nil
}

// GetSnapshotCache 从缓存获取快照。
func (r *RedisStateRepository) GetSnapshotCache(ctx context.Context, boardID uint) (*domain.Snapshot, error) {
	key := r.snapshotCacheKey(boardID)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis: failed to get snapshot cache for board %d from %s: %w", boardID, key, err)
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("redis: failed to unmarshal snapshot cache for board %d: %w", boardID, err)
	}
	return &snapshot, nil
}

// SetSnapshotCache 写入快照缓存，ttl 为 0 表示永不过期。
func (r *RedisStateRepository) SetSnapshotCache(ctx context.Context, boardID uint, snapshot *domain.Snapshot, ttl time.Duration) error {
	key := r.snapshotCacheKey(boardID)
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal snapshot for cache (board %d, version %d): %w", boardID, snapshot.Version, err)
	}
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to set snapshot cache for board %d on key %s: %w", boardID, key, err)
	}
	return nil
}

// GetLastSnapshotTime 获取上次快照时间，没有记录时返回零值。
func (r *RedisStateRepository) GetLastSnapshotTime(ctx context.Context, boardID uint) (time.Time, error) {
	key := r.lastSnapshotKey(boardID)
	unix, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("redis: failed to get last snapshot time for board %d: %w", boardID, err)
	}
	return time.Unix(unix, 0), nil
}

// SetLastSnapshotTime 记录上次快照时间。
func (r *RedisStateRepository) SetLastSnapshotTime(ctx context.Context, boardID uint, at time.Time, ttl time.Duration) error {
	key := r.lastSnapshotKey(boardID)
	if err := r.client.Set(ctx, key, at.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to set last snapshot time for board %d: %w", boardID, err)
	}
	return nil
}
