package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/grid"
	"pixelgrid/internal/infra/setup"
	redisstate "pixelgrid/internal/infra/state/redis"
	"pixelgrid/internal/service"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config 存储从环境变量 (或 .env 文件) 加载的配置
type Config struct {
	DBUser        string
	DBPassword    string
	DBHost        string
	DBPort        string
	DBName        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	JWTSecret       string
	JWTExpiryHours  int
	ServerPort      string
	LogLevel        string
	AppEnv          string
	RateLimitMax    int
	RateLimitWindow time.Duration
	AllowedOrigins  []string

	MaxCanvasSize  int
	MaxUploadBytes int64
	Editor         grid.Options
}

// IsProduction 表示是否运行在生产环境
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// DBConfig 返回数据库连接参数
func (c *Config) DBConfig() setup.DBConfig {
	return setup.DBConfig{
		User:     c.DBUser,
		Password: c.DBPassword,
		Host:     c.DBHost,
		Port:     c.DBPort,
		Name:     c.DBName,
		Debug:    !c.IsProduction() && c.LogLevel == "debug",
	}
}

// RedisConfig 返回 Redis 连接参数
func (c *Config) RedisConfig() setup.RedisConfig {
	return setup.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// LoadConfig 从环境变量加载配置，.env 文件存在时优先加载。
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // 忽略错误，允许只使用环境变量

	editor := grid.DefaultOptions()
	cfg := &Config{
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        envOr("DB_HOST", "127.0.0.1"),
		DBPort:        envOr("DB_PORT", "3306"),
		DBName:        os.Getenv("DB_NAME"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:     envOr("REDIS_KEY_PREFIX", redisstate.DefaultKeyPrefix),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		ServerPort:    envOr("SERVER_PORT", "8080"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		AppEnv:        envOr("APP_ENV", "development"),
	}

	var errs []string
	intVar := func(key string, def int, dst *int) {
		v, err := envInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		*dst = v
	}
	floatVar := func(key string, def float64, dst *float64) {
		v, err := envFloat(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		*dst = v
	}

	intVar("REDIS_DB", 0, &cfg.RedisDB)
	intVar("JWT_EXPIRY_HOURS", 24, &cfg.JWTExpiryHours)
	intVar("RATE_LIMIT_MAX", 100, &cfg.RateLimitMax)
	intVar("MAX_CANVAS_SIZE", service.DefaultMaxCanvasSize, &cfg.MaxCanvasSize)
	var maxUpload int
	intVar("MAX_UPLOAD_BYTES", 16<<20, &maxUpload)
	cfg.MaxUploadBytes = int64(maxUpload)
	floatVar("EDITOR_MOVE_SPEED", editor.MoveSpeed, &editor.MoveSpeed)
	floatVar("EDITOR_ZOOM_STEP", editor.ZoomStep, &editor.ZoomStep)
	floatVar("EDITOR_MIN_SCALE", editor.MinScale, &editor.MinScale)
	floatVar("EDITOR_MAX_SCALE", editor.MaxScale, &editor.MaxScale)

	window, err := time.ParseDuration(envOr("RATE_LIMIT_WINDOW", "1s"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("RATE_LIMIT_WINDOW: %v", err))
	}
	cfg.RateLimitWindow = window

	if c := os.Getenv("EDITOR_DEFAULT_COLOR"); c != "" {
		parsed, err := domain.ParseColor(c)
		if err != nil {
			errs = append(errs, fmt.Sprintf("EDITOR_DEFAULT_COLOR: %v", err))
		}
		editor.DefaultColor = parsed
	}
	cfg.Editor = editor

	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGIN"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	if len(cfg.AllowedOrigins) == 0 && !cfg.IsProduction() {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if cfg.RedisAddr == "" {
		errs = append(errs, "environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, "environment variable JWT_SECRET must be set")
	}
	if cfg.DBUser == "" || cfg.DBName == "" {
		errs = append(errs, "environment variables DB_USER and DB_NAME must be set")
	}
	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		errs = append(errs, "RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}
	if cfg.MaxCanvasSize <= 0 || cfg.MaxUploadBytes <= 0 {
		errs = append(errs, "MAX_CANVAS_SIZE and MAX_UPLOAD_BYTES must be positive")
	}
	if editor.MinScale <= 0 || editor.MaxScale < editor.MinScale {
		errs = append(errs, fmt.Sprintf("invalid editor scale bounds [%v, %v]", editor.MinScale, editor.MaxScale))
	}
	if editor.ZoomStep <= 0 || editor.MoveSpeed <= 0 {
		errs = append(errs, "EDITOR_ZOOM_STEP and EDITOR_MOVE_SPEED must be positive")
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	// 验证日志级别
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return f, nil
}
