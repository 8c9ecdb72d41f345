package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aq2208/gorder-bridge/cmd/bridge/app"
	"github.com/aq2208/gorder-bridge/configs"
	"github.com/aq2208/gorder-bridge/internal/adapter/queue"
	"github.com/aq2208/gorder-bridge/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	os.Exit(run())
}

func run() int {
	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}

	logger := logging.Init(logging.Options{
		Component:  cfg.App.Name,
		FilePath:   cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		logger.Error("rabbitmq dial failed", "error", err)
		return 1
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.InitWithConfig(cfg, conn)
	if err != nil {
		logger.Error("init failed", "error", err)
		return 1
	}
	defer cleanup()

	logger.Info("gorder-bridge started", "env", env, "queue", cfg.Rabbit.Queue, "exchange", cfg.Rabbit.Exchange)
	if err := a.Run(ctx); err != nil {
		var se *queue.SetupError
		switch {
		case errors.As(err, &se):
			logger.Error("topology setup failed", "step", se.Step, "error", se.Err)
		case errors.Is(err, queue.ErrConsumerCanceled), errors.Is(err, queue.ErrDeliveriesClosed):
			// no resubscription: let the supervisor restart us
			logger.Error("consumer stopped by broker", "error", err)
		default:
			logger.Error("bridge stopped", "error", err)
		}
		return 1
	}
	logger.Info("gorder-bridge stopped")
	return 0
}
