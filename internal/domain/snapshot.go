package domain

import (
	"fmt"
	"time"
)

// Snapshot 存储某个画板在特定版本的完整单元格状态。
// Data 即导出用的 points 文档 (见 PointsDocument)，快照不引入第二种存储格式。
type Snapshot struct {
	ID        uint      `gorm:"primaryKey"`
	BoardID   uint      `gorm:"index;not null"`
	Data      string    `gorm:"type:longtext;not null"`
	CreatedAt time.Time `gorm:"index;not null"`
	Version   uint      `gorm:"index"`
}

// Document 解析快照中的 points 文档。
func (s *Snapshot) Document() (*PointsDocument, error) {
	if s.Data == "" {
		return nil, fmt.Errorf("snapshot %d has empty data", s.ID)
	}
	doc, err := ParsePointsDocument([]byte(s.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot data: %w", err)
	}
	return doc, nil
}

// SetDocument 将 points 文档序列化后写入 Data 字段。
func (s *Snapshot) SetDocument(doc *PointsDocument) error {
	bytes, err := doc.Marshal()
	if err != nil {
		return err
	}
	s.Data = string(bytes)
	return nil
}
