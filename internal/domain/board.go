package domain

import "time"

// BoardSource 描述画板网格尺寸的来源。
type BoardSource string

const (
	BoardSourceBlank BoardSource = "blank" // 手动指定的空白画布尺寸
	BoardSourceImage BoardSource = "image" // 由导入图片的像素尺寸决定
)

// Board 是一个像素网格画板。Width/Height 以单元格为单位，创建后不可修改。
type Board struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	OwnerID          uint        `gorm:"index;not null" json:"owner_id"`
	Name             string      `gorm:"size:191;not null" json:"name"`
	Width            int         `gorm:"not null" json:"width"`
	Height           int         `gorm:"not null" json:"height"`
	Source           BoardSource `gorm:"size:16;not null" json:"source"`
	ImageName        string      `gorm:"size:255" json:"image_name,omitempty"`
	ImageContentType string      `gorm:"size:64" json:"image_content_type,omitempty"`
	LastActive       time.Time   `gorm:"index" json:"last_active"`
	CreatedAt        time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasImage 表示画板是否有可显示的底图。
func (b *Board) HasImage() bool {
	return b.Source == BoardSourceImage
}

// BoardImage 保存导入图片的原始字节，用于在网格下方显示。
type BoardImage struct {
	BoardID     uint      `gorm:"primaryKey"`
	ContentType string    `gorm:"size:64;not null"`
	Data        []byte    `gorm:"type:longblob;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}
