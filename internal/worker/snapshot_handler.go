package worker

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/repository"
	"pixelgrid/internal/service"
)

// lastSnapshotTTL 上次快照时间记录的保留时间
const lastSnapshotTTL = 24 * time.Hour

// ActiveBoardLister 提供当前有编辑会话的画板 ID，由 hub.Hub 实现。
type ActiveBoardLister interface {
	GetActiveBoardIDs() []uint
}

// SnapshotCheckHandler 处理周期性的快照检查任务。上次快照时间保存在 Redis 中。
type SnapshotCheckHandler struct {
	boards          ActiveBoardLister
	boardRepo       repository.BoardRepository
	stateRepo       repository.StateRepository
	snapshotService *service.SnapshotService
}

// NewSnapshotCheckHandler 创建 Handler 实例
func NewSnapshotCheckHandler(
	boards ActiveBoardLister,
	boardRepo repository.BoardRepository,
	stateRepo repository.StateRepository,
	snapshotService *service.SnapshotService,
) *SnapshotCheckHandler {
	if boards == nil || boardRepo == nil || stateRepo == nil || snapshotService == nil {
		panic("dependencies cannot be nil for SnapshotCheckHandler")
	}
	return &SnapshotCheckHandler{
		boards:          boards,
		boardRepo:       boardRepo,
		stateRepo:       stateRepo,
		snapshotService: snapshotService,
	}
}

// ProcessTask 实现 asynq.Handler 接口。单个画板失败不会让整个周期任务失败。
func (h *SnapshotCheckHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	ids := h.boards.GetActiveBoardIDs()
	if len(ids) == 0 {
		logCtx.Debug("No active boards found, skipping snapshot check")
		return nil
	}
	boards, err := h.boardRepo.FindAllByIDs(ctx, ids)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load active boards")
		return err
	}
	logCtx.Infof("Checking snapshots for %d active boards", len(boards))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)
	for i := range boards {
		board := &boards[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.checkBoard(ctx, board); err != nil {
				logCtx.WithField("board_id", board.ID).WithError(err).Error("Snapshot check failed for board")
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if failures > 0 {
		logCtx.Errorf("Snapshot check completed with %d failures", failures)
		return nil
	}
	logCtx.Debug("Periodic snapshot check task completed")
	return nil
}

func (h *SnapshotCheckHandler) checkBoard(ctx context.Context, board *domain.Board) error {
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	last, err := h.stateRepo.GetLastSnapshotTime(checkCtx, board.ID)
	if err != nil {
		return err
	}
	next, err := h.snapshotService.CheckAndGenerateSnapshot(checkCtx, board, last)
	if err != nil {
		return err
	}
	if next.Equal(last) {
		return nil
	}
	return h.stateRepo.SetLastSnapshotTime(checkCtx, board.ID, next, lastSnapshotTTL)
}
