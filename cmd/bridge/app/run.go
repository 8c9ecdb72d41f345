package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/aq2208/gorder-bridge/configs"
	opsgrpc "github.com/aq2208/gorder-bridge/internal/adapter/grpc"
	opshttp "github.com/aq2208/gorder-bridge/internal/adapter/http"
	"github.com/aq2208/gorder-bridge/internal/adapter/queue"
	"github.com/aq2208/gorder-bridge/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

type App struct {
	cfg        configs.Config
	logger     *slog.Logger
	dispatcher *queue.Dispatcher
	httpSrv    *http.Server
	health     *opsgrpc.HealthServer
}

// InitWithConfig opens the bridge channel on an already-dialed connection and
// wires sinks, dispatcher and ops servers. Nothing is consumed until Run.
func InitWithConfig(cfg configs.Config, conn *amqp.Connection) (*App, func(), error) {
	logger := logging.New("bridge")

	bc, err := cfg.BrokerConfig()
	if err != nil {
		return nil, nil, err
	}

	handler, closeSinks, err := buildHandler(cfg, newSink)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		closeSinks()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	health := opsgrpc.NewHealthServer(cfg.App.Name)
	dispatcher := queue.NewDispatcher(ch, bc, handler,
		queue.WithLogger(logging.New("dispatcher")),
		queue.WithConsumerTag(cfg.Rabbit.ConsumerTag),
		queue.WithMaxDeliveries(cfg.Rabbit.MaxDeliveries),
		queue.WithStateListener(health.OnState),
	)

	a := &App{
		cfg:        cfg,
		logger:     logger,
		dispatcher: dispatcher,
		health:     health,
	}
	if cfg.Ops.HTTPAddr != "" {
		a.httpSrv = &http.Server{
			Addr:    cfg.Ops.HTTPAddr,
			Handler: opshttp.NewRouter(dispatcher, logging.New("http")),
		}
	}

	cleanup := func() {
		_ = ch.Close()
		closeSinks()
	}
	return a, cleanup, nil
}

// Run serves the ops endpoints and blocks in the dispatcher until it stops.
// A stop caused by ctx is not an error.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpLis, grpcLis, err := a.listen()
	if err != nil {
		return err
	}

	errc := make(chan error, 2)
	if httpLis != nil {
		go func() {
			if err := a.httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("ops http: %w", err)
			}
		}()
	}
	if grpcLis != nil {
		go func() {
			if err := a.health.Serve(grpcLis); err != nil {
				errc <- fmt.Errorf("ops grpc: %w", err)
			}
		}()
	}
	go func() {
		select {
		case err := <-errc:
			a.logger.Error("ops server failed", "error", err)
			cancel()
		case <-runCtx.Done():
		}
	}()

	a.logger.Info("bridge starting", "ops_http", a.cfg.Ops.HTTPAddr, "ops_grpc", a.cfg.Ops.GRPCAddr)
	err = a.dispatcher.Run(runCtx)
	a.shutdown()

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// listen binds both ops addresses before anything is served, so a failed
// bind leaves no listener behind.
func (a *App) listen() (httpLis, grpcLis net.Listener, err error) {
	if a.httpSrv != nil {
		if httpLis, err = net.Listen("tcp", a.httpSrv.Addr); err != nil {
			return nil, nil, fmt.Errorf("ops http listen: %w", err)
		}
	}
	if a.cfg.Ops.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", a.cfg.Ops.GRPCAddr); err != nil {
			if httpLis != nil {
				_ = httpLis.Close()
			}
			return nil, nil, fmt.Errorf("ops grpc listen: %w", err)
		}
	}
	return httpLis, grpcLis, nil
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.App.ShutdownTimeout)
	defer cancel()
	if a.httpSrv != nil {
		if err := a.httpSrv.Shutdown(ctx); err != nil {
			a.logger.Warn("ops http shutdown", "error", err)
		}
	}
	a.health.Stop()
}
