package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pixelgrid/internal/domain"
)

// MigrateDB 执行全部数据库迁移。
// users 表使用自定义 SQL 创建，以便唯一索引列使用 VARCHAR(191)。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	if err := migrateUsersTable(db); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}

	err := db.AutoMigrate(
		&domain.Board{},
		&domain.BoardImage{},
		&domain.Action{},
		&domain.Snapshot{},
	)
	if err != nil {
		logrus.WithError(err).Error("Failed to auto-migrate tables")
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}

// migrateUsersTable 表不存在时创建，存在时交给 AutoMigrate 补齐列和索引。
func migrateUsersTable(db *gorm.DB) error {
	if db.Migrator().HasTable(&domain.User{}) {
		if err := db.AutoMigrate(&domain.User{}); err != nil {
			return fmt.Errorf("failed to migrate user indexes: %w", err)
		}
		logrus.Info("Users table schema checked/updated successfully")
		return nil
	}
	return createUsersTable(db)
}

func createUsersTable(db *gorm.DB) error {
	sql := `
	CREATE TABLE users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(191) NOT NULL,
		password TEXT NOT NULL,
		email VARCHAR(191) NULL,
		created_at DATETIME(3),
		updated_at DATETIME(3),
		UNIQUE INDEX idx_username (username),
		UNIQUE INDEX idx_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci;
	`
	if err := db.Exec(sql).Error; err != nil {
		logrus.WithError(err).Error("Failed to create users table")
		return fmt.Errorf("failed to create users table: %w", err)
	}
	logrus.Info("Users table created successfully")
	return nil
}
