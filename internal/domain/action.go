package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionType 是单元格变更的类型。
type ActionType string

const (
	ActionPaint ActionType = "paint" // 画笔在空单元格上涂色
	ActionErase ActionType = "erase" // 橡皮擦除已涂色单元格
	ActionClear ActionType = "clear" // 清空整个画板
)

// Action 是画板上一次单元格变更的审计记录。
// 仅用于追溯和快照判断，不作为撤销历史回放。
type Action struct {
	ID         uint       `gorm:"primaryKey"`
	BoardID    uint       `gorm:"index;not null"`
	UserID     uint       `gorm:"index;not null"`
	ActionType ActionType `gorm:"size:16;not null"`
	Data       string     `gorm:"type:text"` // CellData 的 JSON，clear 时为空
	Timestamp  time.Time  `gorm:"index;not null"`
	Version    uint       `gorm:"not null"` // 应用该变更后的画板版本号
	CreatedAt  time.Time  `gorm:"autoCreateTime;index"`
}

// CellData 是 paint / erase 操作的具体数据。erase 时 Color 为空。
type CellData struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color,omitempty"`
}

// Cell 返回操作目标单元格。
func (d CellData) Cell() Cell { return Cell{X: d.X, Y: d.Y} }

// ParseData 将 Action 的 Data 字段解析为 CellData。
func (a *Action) ParseData() (CellData, error) {
	var data CellData
	if a.Data == "" || a.Data == "null" {
		if a.ActionType == ActionPaint || a.ActionType == ActionErase {
			return data, fmt.Errorf("action data is empty for action type %s", a.ActionType)
		}
		return data, nil
	}
	if err := json.Unmarshal([]byte(a.Data), &data); err != nil {
		return data, fmt.Errorf("failed to unmarshal action data: %w", err)
	}
	return data, nil
}

// SetData 将 CellData 序列化后写入 Data 字段。
func (a *Action) SetData(data CellData) error {
	if a.ActionType == ActionClear {
		a.Data = ""
		return nil
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal action data: %w", err)
	}
	a.Data = string(bytes)
	return nil
}
