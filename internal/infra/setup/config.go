// Package setup 负责初始化 MySQL 与 Redis 连接以及数据库迁移。
package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DBConfig 是 MySQL 连接参数。
type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	// Debug 为 true 时 GORM 打印所有 SQL
	Debug bool
}

// DSN 构建 MySQL 连接字符串。
func (c DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// InitDB 打开数据库连接并配置连接池。
func InitDB(cfg DBConfig) (*gorm.DB, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("database user is not configured")
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if cfg.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL at %s:%s: %w", cfg.Host, cfg.Port, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logrus.WithFields(logrus.Fields{"host": cfg.Host, "db": cfg.Name}).Info("MySQL connected")
	return db, nil
}

// RedisConfig 是 Redis 连接参数。
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// InitRedis 创建 Redis 客户端并 PING 验证连接。
func InitRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	logrus.WithField("addr", cfg.Addr).Info("Redis connected")
	return client, nil
}
