package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"pixelgrid/internal/tasks"
)

// SnapshotCheckSchedule 周期性快照检查的 cron 表达式
const SnapshotCheckSchedule = "@every 30s"

// WorkerServer 封装了 asynq Worker Server 与周期任务调度器的启动和关闭。
type WorkerServer struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	log       *logrus.Entry
}

// NewWorkerServer 创建 WorkerServer 并注册任务处理器。
func NewWorkerServer(
	redisOpt asynq.RedisClientOpt,
	actionHandler *ActionPersistenceHandler,
	snapshotHandler *SnapshotCheckHandler,
	logger *logrus.Logger,
) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				taskID, _ := asynq.GetTaskID(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).WithError(err).Error("Task failed")
			}),
			Logger: &asynqLogger{log: logEntry},
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: &asynqLogger{log: logger.WithField("component", "scheduler")},
	})

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeActionPersistence, actionHandler)
	mux.Handle(tasks.TypeSnapshotPeriodicCheck, snapshotHandler)

	return &WorkerServer{server: server, scheduler: scheduler, mux: mux, log: logEntry}
}

// Start 注册周期任务并启动 Worker 和调度器，不阻塞。
func (ws *WorkerServer) Start() error {
	entryID, err := ws.scheduler.Register(SnapshotCheckSchedule, tasks.NewSnapshotPeriodicCheckTask(), asynq.Queue("low"))
	if err != nil {
		return err
	}
	ws.log.WithFields(logrus.Fields{"entry_id": entryID, "schedule": SnapshotCheckSchedule}).Info("Periodic snapshot check registered")

	if err := ws.scheduler.Start(); err != nil {
		return err
	}

	ws.log.Info("Worker server starting...")
	return ws.server.Start(ws.mux)
}

// Shutdown 优雅地关闭调度器和 Worker。
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.scheduler.Shutdown()
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete")
}

// asynqLogger 将 asynq 的日志转发到 logrus。
type asynqLogger struct {
	log *logrus.Entry
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug(args...) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info(args...) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn(args...) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error(args...) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Fatal(args...) }
