// Package tasks 定义后台任务的类型和载荷。
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"pixelgrid/internal/domain"
)

// 任务类型
const (
	TypeActionPersistence     = "action:persist"          // 变更记录落库
	TypeSnapshotPeriodicCheck = "snapshot:periodic_check" // 周期性快照检查
)

// ActionPersistencePayload 是一次编辑命令产生的全部变更记录。
type ActionPersistencePayload struct {
	BoardID uint
	Actions []domain.Action
}

// NewActionPersistenceTask 创建变更记录持久化任务。
func NewActionPersistenceTask(boardID uint, actions []domain.Action) (*asynq.Task, error) {
	payload, err := json.Marshal(ActionPersistencePayload{BoardID: boardID, Actions: actions})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action persistence payload: %w", err)
	}
	return asynq.NewTask(TypeActionPersistence, payload), nil
}

// ParseActionPersistencePayload 解析持久化任务的载荷。
func ParseActionPersistencePayload(t *asynq.Task) (ActionPersistencePayload, error) {
	var payload ActionPersistencePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal action persistence payload: %w", err)
	}
	return payload, nil
}

// NewSnapshotPeriodicCheckTask 创建周期性快照检查任务，没有载荷。
func NewSnapshotPeriodicCheckTask() *asynq.Task {
	return asynq.NewTask(TypeSnapshotPeriodicCheck, nil)
}
