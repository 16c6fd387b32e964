package redisstate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/repository"
)

func newTestRepo(t *testing.T) (*RedisStateRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStateRepository(client, "test:"), mr
}

func TestApplyActionAtomically(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	v, err := repo.ApplyActionAtomically(ctx, 7, domain.ActionPaint, domain.CellData{X: 2, Y: 3, Color: "red"})
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.Equal(t, "red", mr.HGet("test:board:7:state", "2:3"))

	v, err = repo.ApplyActionAtomically(ctx, 7, domain.ActionPaint, domain.CellData{X: 4, Y: 5, Color: "#00ff00"})
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)

	v, err = repo.ApplyActionAtomically(ctx, 7, domain.ActionErase, domain.CellData{X: 2, Y: 3})
	require.NoError(t, err)
	assert.Equal(t, uint(3), v)

	state, err := repo.GetBoardState(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.BoardState{"4:5": "#00ff00"}, state)

	count, err := repo.GetOpCount(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = repo.ApplyActionAtomically(ctx, 7, domain.ActionClear, domain.CellData{})
	require.NoError(t, err)
	state, err = repo.GetBoardState(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, state)

	version, err := repo.GetCurrentVersion(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint(4), version)
}

func TestApplyActionAtomically_UnknownType(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.ApplyActionAtomically(context.Background(), 1, domain.ActionType("fill"), domain.CellData{})
	assert.Error(t, err)
}

func TestHasBoardStateAndReplace(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	has, err := repo.HasBoardState(ctx, 3)
	require.NoError(t, err)
	assert.False(t, has)

	// 空状态也算已初始化
	require.NoError(t, repo.ReplaceBoardState(ctx, 3, domain.BoardState{}, 0))
	has, err = repo.HasBoardState(ctx, 3)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = repo.ApplyActionAtomically(ctx, 3, domain.ActionPaint, domain.CellData{X: 0, Y: 0, Color: "blue"})
	require.NoError(t, err)

	require.NoError(t, repo.ReplaceBoardState(ctx, 3, domain.BoardState{"1:1": "red", "2:2": "green"}, 10))
	state, err := repo.GetBoardState(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.BoardState{"1:1": "red", "2:2": "green"}, state)

	version, err := repo.GetCurrentVersion(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, uint(10), version)
}

func TestOpCountReset(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	count, err := repo.GetOpCount(ctx, 9)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repo.ApplyActionAtomically(ctx, 9, domain.ActionPaint, domain.CellData{X: 1, Y: 1, Color: "red"})
	require.NoError(t, err)
	require.NoError(t, repo.ResetOpCount(ctx, 9))

	count, err = repo.GetOpCount(ctx, 9)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSnapshotCache(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetSnapshotCache(ctx, 5)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	snap := &domain.Snapshot{ID: 1, BoardID: 5, Version: 12, Data: `{"format":"pixelgrid/points"}`}
	require.NoError(t, repo.SetSnapshotCache(ctx, 5, snap, time.Minute))

	got, err := repo.GetSnapshotCache(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, got.Version)
	assert.Equal(t, snap.Data, got.Data)

	mr.FastForward(2 * time.Minute)
	_, err = repo.GetSnapshotCache(ctx, 5)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLastSnapshotTime(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	at, err := repo.GetLastSnapshotTime(ctx, 2)
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	now := time.Unix(1700000000, 0)
	require.NoError(t, repo.SetLastSnapshotTime(ctx, 2, now, 0))
	at, err = repo.GetLastSnapshotTime(ctx, 2)
	require.NoError(t, err)
	assert.True(t, now.Equal(at))
}

func TestDefaultKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := NewRedisStateRepository(client, "")
	_, err := repo.ApplyActionAtomically(context.Background(), 1, domain.ActionPaint, domain.CellData{X: 0, Y: 0, Color: "red"})
	require.NoError(t, err)
	assert.True(t, mr.Exists(DefaultKeyPrefix+"board:1:state"))
}
