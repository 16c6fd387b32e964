// Package bootstrap 负责加载配置并组装应用的所有组件。
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "pixelgrid/internal/handler/http"
	wsHandler "pixelgrid/internal/handler/websocket"
	"pixelgrid/internal/hub"
	gormpersistence "pixelgrid/internal/infra/persistence/gorm"
	"pixelgrid/internal/infra/setup"
	redisstate "pixelgrid/internal/infra/state/redis"
	"pixelgrid/internal/middleware"
	"pixelgrid/internal/service"
	"pixelgrid/internal/worker"
)

// App 结构体包含应用的所有组件和配置
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Hub         *hub.Hub
	HttpServer  *http.Server

	hubCancel context.CancelFunc
}

// NewLogger 按配置创建 logger：生产环境输出 JSON，其他环境输出文本。
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	// 包内代码通过 logrus 包级函数记录日志，与 App logger 保持一致
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
	return log
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := NewLogger(cfg)
	log.WithFields(logrus.Fields{"level": log.GetLevel().String(), "env": cfg.AppEnv}).Info("Configuration loaded successfully")

	// 3. 初始化基础设施
	db, err := setup.InitDB(cfg.DBConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	log.Info("Database initialized")

	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database migrated")

	redisClient, err := setup.InitRedis(context.Background(), cfg.RedisConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Asynq client initialized")

	// 4. 初始化 Repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	boardRepo := gormpersistence.NewGormBoardRepository(db)
	actionRepo := gormpersistence.NewGormActionRepository(db)
	snapshotRepo := gormpersistence.NewGormSnapshotRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix)
	log.Info("Repositories initialized")

	// 5. 初始化 Services
	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	boardService := service.NewBoardService(boardRepo, cfg.MaxCanvasSize)
	snapshotService := service.NewSnapshotService(snapshotRepo, stateRepo, actionRepo)
	editorService := service.NewEditorService(stateRepo, snapshotService, asynqClient)
	log.Info("Services initialized")

	// 6. 初始化 Hub
	hubInstance := hub.NewHub(editorService, boardService, cfg.Editor)
	log.Info("Hub initialized")

	// 7. 初始化 Worker Server
	workerServer := worker.NewWorkerServer(
		redisClientOpt,
		worker.NewActionPersistenceHandler(actionRepo),
		worker.NewSnapshotCheckHandler(hubInstance, boardRepo, stateRepo, snapshotService),
		log,
	)
	log.Info("Worker server initialized")

	// 8. 初始化 Handlers 和路由
	authHandler := httpHandler.NewAuthHandler(authService)
	boardHandler := httpHandler.NewBoardHandler(boardService, editorService, hubInstance, cfg.MaxUploadBytes)
	websocketHandler := wsHandler.NewWebSocketHandler(hubInstance, boardService, cfg.AllowedOrigins)
	router := NewRouter(cfg, log, redisClient, authHandler, boardHandler, websocketHandler)
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		AsynqClient: asynqClient,
		AsynqServer: workerServer,
		Hub:         hubInstance,
		HttpServer:  httpServer,
	}, nil
}

// NewRouter 创建 Gin Engine 并注册所有路由
func NewRouter(
	cfg *Config,
	log *logrus.Logger,
	redisClient *redis.Client,
	authHandler *httpHandler.AuthHandler,
	boardHandler *httpHandler.BoardHandler,
	websocketHandler *wsHandler.WebSocketHandler,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	api := router.Group("/api")
	api.Use(middleware.RateLimit(redisClient, cfg.KeyPrefix, cfg.RateLimitMax, cfg.RateLimitWindow))
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}
	boardRoutes := api.Group("/boards").Use(middleware.Auth(cfg.JWTSecret))
	{
		boardRoutes.POST("", boardHandler.CreateBoard)
		boardRoutes.POST("/image", boardHandler.CreateBoardFromImage)
		boardRoutes.GET("", boardHandler.ListBoards)
		boardRoutes.GET("/:id", boardHandler.GetBoard)
		boardRoutes.GET("/:id/image", boardHandler.GetImage)
		boardRoutes.GET("/:id/export", boardHandler.ExportPoints)
		boardRoutes.POST("/:id/points", boardHandler.ImportPoints)
		boardRoutes.GET("/:id/preview.png", boardHandler.Preview)
	}
	wsRoutes := router.Group("/ws").Use(middleware.Auth(cfg.JWTSecret))
	{
		wsRoutes.GET("/boards/:id", websocketHandler.HandleConnection)
	}
	return router
}

func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := set[origin]; origin != "" && (ok || allowAll) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Header("Access-Control-Expose-Headers", strings.Join([]string{"Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining"}, ", "))
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Start 启动 Hub、Worker 和 HTTP 服务器
func (a *App) Start() error {
	hubCtx, cancel := context.WithCancel(context.Background())
	a.hubCancel = cancel
	go a.Hub.Run(hubCtx)
	a.Log.Info("Hub routine started")

	if err := a.AsynqServer.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start worker server: %w", err)
	}
	a.Log.Info("Asynq worker server started")

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
	return nil
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	// 1. 停止接受新请求，等待进行中的 HTTP 请求结束
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// 2. 关闭所有编辑会话，断开 WebSocket 客户端
	if a.hubCancel != nil {
		a.hubCancel()
	}
	a.Hub.Shutdown()

	// 3. 处理完队列中的任务后关闭 Worker
	a.AsynqServer.Shutdown()

	if err := a.AsynqClient.Close(); err != nil {
		a.Log.Errorf("Error closing Asynq client: %v", err)
	}
	if err := a.RedisClient.Close(); err != nil {
		a.Log.Errorf("Error closing Redis connection: %v", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Log.Errorf("Error closing database connection: %v", err)
		}
	}
	a.Log.Info("Application shutdown complete.")
}
