package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/repository"

	"github.com/sirupsen/logrus"
)

// snapshotCacheTTL 快照在 Redis 中的缓存时间
const snapshotCacheTTL = time.Hour

// SnapshotService 负责画板快照的生成和读取。快照内容即 points 文档。
type SnapshotService struct {
	snapshotRepo repository.SnapshotRepository
	stateRepo    repository.StateRepository
	actionRepo   repository.ActionRepository
}

// NewSnapshotService 创建 SnapshotService 实例。
func NewSnapshotService(
	snapshotRepo repository.SnapshotRepository,
	stateRepo repository.StateRepository,
	actionRepo repository.ActionRepository,
) *SnapshotService {
	if snapshotRepo == nil || stateRepo == nil || actionRepo == nil {
		panic("repositories cannot be nil for SnapshotService")
	}
	return &SnapshotService{
		snapshotRepo: snapshotRepo,
		stateRepo:    stateRepo,
		actionRepo:   actionRepo,
	}
}

// LatestSnapshot 获取画板最新快照：缓存优先，数据库备用，并回填缓存。
// 没有任何快照时返回 (nil, nil)。
func (s *SnapshotService) LatestSnapshot(ctx context.Context, boardID uint) (*domain.Snapshot, error) {
	logCtx := logrus.WithFields(logrus.Fields{"board_id": boardID, "operation": "LatestSnapshot"})

	cached, err := s.stateRepo.GetSnapshotCache(ctx, boardID)
	switch {
	case err == nil && cached != nil:
		logCtx.Debug("Snapshot cache hit")
		return cached, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		logCtx.WithError(err).Warn("Failed to get snapshot from cache")
	}

	snapshot, err := s.snapshotRepo.GetLatestSnapshot(ctx, boardID)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			return nil, nil
		}
		logCtx.WithError(err).Error("Failed to get latest snapshot from database")
		return nil, ErrInternalServer
	}

	if err := s.stateRepo.SetSnapshotCache(ctx, boardID, snapshot, snapshotCacheTTL); err != nil {
		logCtx.WithError(err).Warn("Failed to warm snapshot cache after DB load")
	}
	return snapshot, nil
}

// CheckAndGenerateSnapshot 根据自上次快照以来的变更数决定是否生成快照。
// 变更数取自 Redis 的 op_count，它与实时状态在同一事务中递增。
// 返回新的上次快照时间；没有生成时原样返回 lastSnapshotTime。
func (s *SnapshotService) CheckAndGenerateSnapshot(ctx context.Context, board *domain.Board, lastSnapshotTime time.Time) (time.Time, error) {
	logCtx := logrus.WithField("board_id", board.ID)

	opCount, err := s.opsSince(ctx, board.ID, lastSnapshotTime)
	if err != nil {
		return lastSnapshotTime, ErrInternalServer
	}
	if opCount == 0 && !lastSnapshotTime.IsZero() {
		logCtx.Debug("No changes since last snapshot")
		return lastSnapshotTime, nil
	}

	interval := calculateSnapshotInterval(int(opCount))
	if !shouldGenerateSnapshot(lastSnapshotTime, interval) {
		logCtx.Debugf("Snapshot condition not met (Last: %s, Interval: %s, OpsSince: %d)",
			lastSnapshotTime.Format(time.RFC3339), interval, opCount)
		return lastSnapshotTime, nil
	}

	now := time.Now()
	if _, err := s.GenerateSnapshot(ctx, board); err != nil {
		logCtx.WithError(err).Error("Snapshot generation failed")
		return lastSnapshotTime, err
	}
	return now, nil
}

// GenerateSnapshot 将 Redis 中的实时状态保存为一条快照。
func (s *SnapshotService) GenerateSnapshot(ctx context.Context, board *domain.Board) (*domain.Snapshot, error) {
	logCtx := logrus.WithField("board_id", board.ID)

	version, err := s.stateRepo.GetCurrentVersion(ctx, board.ID)
	if err != nil {
		logCtx.WithError(err).Error("Snapshot: Failed to get current version")
		return nil, err
	}
	state, err := s.stateRepo.GetBoardState(ctx, board.ID)
	if err != nil {
		logCtx.WithError(err).Error("Snapshot: Failed to get current board state")
		return nil, err
	}
	doc, err := domain.DocumentFromState(board.Width, board.Height, state)
	if err != nil {
		logCtx.WithError(err).Error("Snapshot: Board state contains invalid cell keys")
		return nil, fmt.Errorf("failed to build snapshot document: %w", err)
	}

	snapshot := &domain.Snapshot{
		BoardID:   board.ID,
		CreatedAt: time.Now().UTC(),
		Version:   version,
	}
	if err := snapshot.SetDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to set snapshot document: %w", err)
	}
	if err := s.snapshotRepo.SaveSnapshot(ctx, snapshot); err != nil {
		logCtx.WithError(err).Error("Snapshot: Failed to save snapshot to database")
		return nil, err
	}

	if err := s.stateRepo.SetSnapshotCache(ctx, board.ID, snapshot, snapshotCacheTTL); err != nil {
		logCtx.WithError(err).Warn("Snapshot: Failed to update snapshot cache after generation")
	}
	if err := s.stateRepo.ResetOpCount(ctx, board.ID); err != nil {
		logCtx.WithError(err).Warn("Snapshot: Failed to reset op_count")
	}

	logCtx.WithFields(logrus.Fields{"version": version, "cells": doc.Len()}).Info("Snapshot generated and saved")
	return snapshot, nil
}

// opsSince 返回自上次快照以来的变更数。Redis 计数不可用时退回到数据库中的审计记录数，
// 后者由异步任务写入，可能偏小。
func (s *SnapshotService) opsSince(ctx context.Context, boardID uint, since time.Time) (int64, error) {
	logCtx := logrus.WithField("board_id", boardID)
	count, err := s.stateRepo.GetOpCount(ctx, boardID)
	if err == nil {
		return count, nil
	}
	logCtx.WithError(err).Warn("Failed to get op_count, falling back to action records")
	count, err = s.actionRepo.GetCountSince(ctx, boardID, since)
	if err != nil {
		logCtx.WithError(err).Error("Failed to get action count since last snapshot")
		return 0, err
	}
	return count, nil
}

func calculateSnapshotInterval(opCountSinceLast int) time.Duration {
	switch {
	case opCountSinceLast > 100:
		return 30 * time.Second
	case opCountSinceLast > 20:
		return 2 * time.Minute
	default:
		return 10 * time.Minute
	}
}

func shouldGenerateSnapshot(lastSnapshotTime time.Time, interval time.Duration) bool {
	return lastSnapshotTime.IsZero() || time.Since(lastSnapshotTime) >= interval
}
