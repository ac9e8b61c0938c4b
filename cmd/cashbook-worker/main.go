package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cashbook/internal/amqp"
	"cashbook/internal/cli"
	applog "cashbook/internal/log"
	"cashbook/internal/push"
	"cashbook/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting cashbook-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Push sender: FCM when credentials are configured, log output otherwise
	var sender push.Sender = push.LogSender{}
	if cfg.FCMEnabled() {
		fcmSender, err := push.NewFCMSender(context.Background(), push.FCMConfig{
			ProjectID:       cfg.FCMProjectID,
			CredentialsJSON: cfg.FCMCredentialsJSON,
			CredentialsFile: cfg.FCMCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize FCM sender", applog.FieldError, err.Error())
			os.Exit(1)
		}
		sender = fcmSender
		logger.Info("FCM push delivery enabled")
	} else {
		logger.Info("FCM disabled - notifications will only be logged")
	}
	deliverer := push.NewDeliverer(repo, sender)

	// With a broker the scheduler publishes to the queue and the consumer
	// below delivers; without one the scheduler delivers directly.
	var (
		publisher  services.Publisher = deliverer
		amqpClient *amqp.Client
	)
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - delivering notifications in process")
	}

	svc := cli.BuildServices(cfg, repo, publisher, nil)
	processor := services.NewProcessor(svc.Scheduler, svc.Auth, services.ProcessorConfig{
		PollInterval: cfg.SchedulerInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Processor stop error", applog.FieldError, err.Error())
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})
	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeNotifications(gctx, func(ctx context.Context, m *amqp.NotificationMessage) error {
				return deliverer.Deliver(ctx, m.ID)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker failed", applog.FieldError, err.Error())
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = processor.Stop(stopCtx)
		cancel()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
