package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/luvproxy/chat-proxy-api/internal/config"
	"github.com/luvproxy/chat-proxy-api/internal/domain/license"
	"github.com/luvproxy/chat-proxy-api/internal/tasks"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunWorkers starts the asynq server and scheduler and blocks until the
// context is canceled or one of them fails.
func RunWorkers(ctx context.Context, cfg *config.Config, repo license.Repository, logger *zap.Logger) error {
	redisConnOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisConnOpts,
		asynq.Config{
			Concurrency: 10,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log := logger.Named("AsynqServerErrorHandler")
				log.Error("Asynq task processing failed",
					zap.String("task_type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err),
				)
			}),
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqServer")),
		},
	)

	mux := asynq.NewServeMux()

	expireHandler := tasks.NewLicenseExpireHandler(repo, logger)
	mux.HandleFunc(tasks.TypeLicenseExpire, expireHandler.ProcessTask)

	scheduler := asynq.NewScheduler(
		redisConnOpts,
		&asynq.SchedulerOpts{
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqScheduler")),
		},
	)

	licenseExpireTask, err := tasks.NewLicenseExpireTask()
	if err != nil {
		return fmt.Errorf("scheduler task creation error: %w", err)
	}

	entryID, err := scheduler.Register("@every 1h", licenseExpireTask)
	if err != nil {
		return fmt.Errorf("scheduler registration error: %w", err)
	}
	logger.Info("Registered periodic license expiration check", zap.String("entry_id", entryID), zap.String("schedule", "@every 1h"))

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting Asynq Server...")
		if err := srv.Run(mux); err != nil {
			return fmt.Errorf("asynq server error: %w", err)
		}
		logger.Info("Asynq Server stopped.")
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting Asynq Scheduler...")
		if err := scheduler.Run(); err != nil {
			return fmt.Errorf("asynq scheduler error: %w", err)
		}
		logger.Info("Asynq Scheduler stopped.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("Shutting down Asynq Scheduler...")
		scheduler.Shutdown()
		logger.Info("Shutting down Asynq Server...")
		srv.Shutdown()
		return nil
	})

	return g.Wait()
}

type asynqLoggerAdapter struct {
	logger *zap.Logger
}

func NewAsynqLoggerAdapter(logger *zap.Logger) *asynqLoggerAdapter {
	return &asynqLoggerAdapter{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *asynqLoggerAdapter) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
