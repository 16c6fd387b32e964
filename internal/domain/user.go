// Package domain 定义了画板编辑器的领域模型 (同时也是数据库模型)。
package domain

import "time"

// User 表示应用程序中的用户，画板归属于用户。
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null"`
	Password  string    `gorm:"type:text;not null"`                      // bcrypt 哈希
	Email     *string   `gorm:"type:varchar(191);uniqueIndex:idx_email"` // 可选，NULL 不参与唯一约束
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
