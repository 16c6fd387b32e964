package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/grid"
	"pixelgrid/internal/repository"
	"pixelgrid/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// TaskEnqueuer 是 asynq.Client 中 EditorService 用到的部分。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EditorService 负责画板实时状态：恢复、应用单元格变更、导入导出 points 文档。
// 同一画板的写入由 hub 的画板 goroutine 串行化。
type EditorService struct {
	stateRepo repository.StateRepository
	snapshots *SnapshotService
	enqueuer  TaskEnqueuer
}

// NewEditorService 创建 EditorService 实例。
func NewEditorService(stateRepo repository.StateRepository, snapshots *SnapshotService, enqueuer TaskEnqueuer) *EditorService {
	if stateRepo == nil || snapshots == nil || enqueuer == nil {
		panic("dependencies cannot be nil for EditorService")
	}
	return &EditorService{stateRepo: stateRepo, snapshots: snapshots, enqueuer: enqueuer}
}

// LoadState 返回画板当前的全部单元格。
// Redis 中没有实时状态时，用最新快照 (没有则为空) 初始化 Redis。
func (s *EditorService) LoadState(ctx context.Context, board *domain.Board) (map[domain.Cell]domain.Color, error) {
	logCtx := logrus.WithFields(logrus.Fields{"board_id": board.ID, "operation": "LoadState"})

	has, err := s.stateRepo.HasBoardState(ctx, board.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to check live board state")
		return nil, ErrInternalServer
	}
	if has {
		state, err := s.stateRepo.GetBoardState(ctx, board.ID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to get live board state")
			return nil, ErrInternalServer
		}
		cells, err := state.Cells()
		if err != nil {
			logCtx.WithError(err).Error("Live board state contains invalid cell keys")
			return nil, ErrInternalServer
		}
		return cells, nil
	}

	state := domain.BoardState{}
	var version uint
	snapshot, err := s.snapshots.LatestSnapshot(ctx, board.ID)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		doc, err := snapshot.Document()
		if err != nil {
			logCtx.WithError(err).WithField("snapshot_id", snapshot.ID).Error("Failed to parse snapshot document")
			return nil, ErrInternalServer
		}
		state = doc.State()
		version = snapshot.Version
	}
	if err := s.stateRepo.ReplaceBoardState(ctx, board.ID, state, version); err != nil {
		logCtx.WithError(err).Error("Failed to seed live board state")
		return nil, ErrInternalServer
	}
	logCtx.WithFields(logrus.Fields{"cells": len(state), "version": version}).Info("Live board state restored")

	cells, err := state.Cells()
	if err != nil {
		return nil, ErrInternalServer
	}
	return cells, nil
}

// RecordChanges 将会话产生的变更逐个原子地应用到 Redis，并异步持久化审计记录。
func (s *EditorService) RecordChanges(ctx context.Context, boardID, userID uint, changes []grid.Change) error {
	if len(changes) == 0 {
		return nil
	}
	logCtx := logrus.WithFields(logrus.Fields{"board_id": boardID, "user_id": userID})

	actions := make([]domain.Action, 0, len(changes))
	for _, change := range changes {
		data := domain.CellData{X: change.Cell.X, Y: change.Cell.Y, Color: string(change.Color)}
		version, err := s.stateRepo.ApplyActionAtomically(ctx, boardID, change.Kind.ActionType(), data)
		if err != nil {
			logCtx.WithError(err).WithField("change", change.Kind).Error("Failed to apply change to live state")
			s.enqueueActions(ctx, boardID, actions)
			return ErrInternalServer
		}
		action, err := newAction(boardID, userID, change, version)
		if err != nil {
			logCtx.WithError(err).Warn("Failed to build action record")
			continue
		}
		actions = append(actions, action)
	}
	s.enqueueActions(ctx, boardID, actions)
	return nil
}

// ReplaceState 用 doc 整体替换实时状态。changes 是会话执行替换时产生的变更，
// 只用于审计记录和版本号推进。
func (s *EditorService) ReplaceState(ctx context.Context, boardID, userID uint, doc *domain.PointsDocument, changes []grid.Change) error {
	logCtx := logrus.WithFields(logrus.Fields{"board_id": boardID, "user_id": userID, "operation": "ReplaceState"})

	base, err := s.stateRepo.GetCurrentVersion(ctx, boardID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to get current version")
		return ErrInternalServer
	}
	final := base + uint(len(changes))
	if len(changes) == 0 {
		final = base + 1
	}
	if err := s.stateRepo.ReplaceBoardState(ctx, boardID, doc.State(), final); err != nil {
		logCtx.WithError(err).Error("Failed to replace live state")
		return ErrInternalServer
	}

	actions := make([]domain.Action, 0, len(changes))
	for i, change := range changes {
		action, err := newAction(boardID, userID, change, base+uint(i)+1)
		if err != nil {
			logCtx.WithError(err).Warn("Failed to build action record")
			continue
		}
		actions = append(actions, action)
	}
	s.enqueueActions(ctx, boardID, actions)
	logCtx.WithFields(logrus.Fields{"cells": doc.Len(), "version": final}).Info("Board content replaced")
	return nil
}

// ImportOffline 在没有活跃会话时导入 points 文档：
// 用临时会话执行与在线导入相同的替换规则，再写回 Redis。
func (s *EditorService) ImportOffline(ctx context.Context, board *domain.Board, userID uint, doc *domain.PointsDocument) error {
	cells, err := s.LoadState(ctx, board)
	if err != nil {
		return err
	}
	session, err := grid.NewSession(grid.Options{Width: board.Width, Height: board.Height}, nil)
	if err != nil {
		return fmt.Errorf("failed to create session for board %d: %w", board.ID, err)
	}
	session.Load(cells)
	changes, err := session.Replace(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return s.ReplaceState(ctx, board.ID, userID, session.Export(), changes)
}

// ExportDocument 生成画板当前内容的 points 文档。
func (s *EditorService) ExportDocument(ctx context.Context, board *domain.Board) (*domain.PointsDocument, error) {
	cells, err := s.LoadState(ctx, board)
	if err != nil {
		return nil, err
	}
	doc := domain.NewPointsDocument(board.Width, board.Height)
	for cell, color := range cells {
		doc.Add(cell, color)
	}
	doc.Sort()
	return doc, nil
}

// ParseDocument 解析上传的 points 文档，错误统一映射为 ErrInvalidDocument。
func ParseDocument(data []byte) (*domain.PointsDocument, error) {
	doc, err := domain.ParsePointsDocument(data)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDocument) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return nil, err
	}
	return doc, nil
}

func (s *EditorService) enqueueActions(ctx context.Context, boardID uint, actions []domain.Action) {
	if len(actions) == 0 {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"board_id": boardID, "actions": len(actions)})
	task, err := tasks.NewActionPersistenceTask(boardID, actions)
	if err != nil {
		logCtx.WithError(err).Error("Failed to create action persistence task")
		return
	}
	info, err := s.enqueuer.EnqueueContext(ctx, task, asynq.Queue("default"), asynq.MaxRetry(5))
	if err != nil {
		logCtx.WithError(err).Error("Failed to enqueue action persistence task")
		return
	}
	if info != nil {
		logCtx = logCtx.WithField("task_id", info.ID)
	}
	logCtx.Debug("Action persistence task enqueued")
}

func newAction(boardID, userID uint, change grid.Change, version uint) (domain.Action, error) {
	action := domain.Action{
		BoardID:    boardID,
		UserID:     userID,
		ActionType: change.Kind.ActionType(),
		Timestamp:  time.Now().UTC(),
		Version:    version,
	}
	err := action.SetData(domain.CellData{X: change.Cell.X, Y: change.Cell.Y, Color: string(change.Color)})
	return action, err
}
