// Package worker 运行 asynq 后台任务：变更记录落库和周期性快照。
package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"pixelgrid/internal/repository"
	"pixelgrid/internal/tasks"
)

// ActionPersistenceHandler 处理变更记录持久化任务
type ActionPersistenceHandler struct {
	actionRepo repository.ActionRepository
}

// NewActionPersistenceHandler 创建 Handler 实例
func NewActionPersistenceHandler(actionRepo repository.ActionRepository) *ActionPersistenceHandler {
	if actionRepo == nil {
		panic("ActionRepository cannot be nil for ActionPersistenceHandler")
	}
	return &ActionPersistenceHandler{actionRepo: actionRepo}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *ActionPersistenceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	retry, _ := asynq.GetRetryCount(ctx)
	logCtx := logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"retry":     retry,
	})
	if id, ok := asynq.GetTaskID(ctx); ok {
		logCtx = logCtx.WithField("task_id", id)
	}

	payload, err := tasks.ParseActionPersistencePayload(t)
	if err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithFields(logrus.Fields{"board_id": payload.BoardID, "actions": len(payload.Actions)})

	if err := h.actionRepo.SaveBatch(ctx, payload.Actions); err != nil {
		logCtx.WithError(err).Error("Failed to save action batch")
		return fmt.Errorf("failed to save actions for board %d: %w", payload.BoardID, err)
	}

	logCtx.Debug("Action persistence task processed successfully")
	return nil
}
