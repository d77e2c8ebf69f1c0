package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"taskpad/internal/config"
	"taskpad/internal/shell"
	"taskpad/internal/storage/file"
	"taskpad/internal/storage/mysql"
	"taskpad/internal/storage/redis"
	"taskpad/internal/task"
	"taskpad/pkg/logger"
)

// main 是 taskpad 命令行的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("taskpad 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	configPath := os.Getenv("TASKPAD_CONFIG")
	if configPath == "" {
		configPath = "taskpad.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()

	backend, err := createBackend(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	store, err := task.NewStore(ctx, backend, task.WithStrictFields(cfg.Tasks.StrictFields))
	if err != nil {
		_ = backend.Close()
		return err
	}

	notifier, err := createNotifier(cfg.Notifier)
	if err != nil {
		_ = store.Close()
		return err
	}

	svc := task.NewService(store, notifier)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.L().Warn("关闭任务服务失败", slog.Any("error", err))
		}
	}()

	logger.L().Info("taskpad 已启动",
		slog.String("storage", cfg.Storage.Driver),
		slog.String("notifier", cfg.Notifier.Driver),
		slog.Int("tasks", store.Len()),
	)

	return shell.New(svc, os.Stdin, os.Stdout).Run(ctx)
}

func createBackend(ctx context.Context, cfg config.StorageConfig) (task.Backend, error) {
	switch cfg.Driver {
	case config.DriverFile, "":
		format, err := file.ParseFormat(cfg.Format)
		if err != nil {
			return nil, err
		}
		return file.New(cfg.Path, file.WithFormat(format), file.WithLockTimeout(cfg.LockTimeout()))
	case config.DriverMemory:
		return task.NewMemoryBackend(), nil
	case config.DriverMySQL:
		return mysql.New(ctx, mysql.Config{Driver: mysql.DriverMySQL, DSN: cfg.DSN})
	case config.DriverSQLite:
		return mysql.New(ctx, mysql.Config{Driver: mysql.DriverSQLite, DSN: cfg.Path})
	case config.DriverRedis:
		return redis.New(ctx, redis.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
	default:
		return nil, fmt.Errorf("未知的存储驱动: %s", cfg.Driver)
	}
}

func createNotifier(cfg config.NotifierConfig) (task.Notifier, error) {
	switch cfg.Driver {
	case "none":
		return task.NopNotifier{}, nil
	case "rabbitmq":
		return task.NewRabbitMQNotifier(task.RabbitMQConfig{
			URL:     cfg.RabbitMQ.URL,
			Queue:   cfg.RabbitMQ.Queue,
			Durable: cfg.RabbitMQ.Durable,
		})
	default:
		return task.NewLogNotifier(logger.Named("events")), nil
	}
}
