package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aq2208/gorder-bridge/configs"
	"github.com/aq2208/gorder-bridge/internal/adapter/kafka"
	"github.com/aq2208/gorder-bridge/internal/adapter/logsink"
	"github.com/aq2208/gorder-bridge/internal/adapter/queue"
	"github.com/aq2208/gorder-bridge/internal/adapter/repo"
	"github.com/aq2208/gorder-bridge/internal/adapter/stream"
	domain "github.com/aq2208/gorder-bridge/internal/entity"
	"github.com/aq2208/gorder-bridge/internal/logging"
	"github.com/aq2208/gorder-bridge/internal/usecase"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

// newSink builds one sink and the function that releases it.
func newSink(kind string, cfg configs.Config) (usecase.Sink, func(), error) {
	switch kind {
	case configs.SinkLog:
		return logsink.New(logging.New("sink.log"), cfg.Log.LogBodies), func() {}, nil

	case configs.SinkKafka:
		p, err := kafka.NewSyncProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka producer: %w", err)
		}
		s := kafka.NewSink(p, cfg.Kafka.Topic)
		return s, func() { _ = s.Close() }, nil

	case configs.SinkRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		s := stream.NewRedisStreamSink(rdb, cfg.Redis.StreamPrefix, cfg.Redis.StreamMaxLen)
		return s, func() { _ = rdb.Close() }, nil

	case configs.SinkMySQL:
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("mysql open: %w", err)
		}
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("mysql ping: %w", err)
		}
		return repo.NewMySQLInboxRepo(db), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown sink %q", kind)
}

// buildHandler wires every configured sink behind a routing-key router.
func buildHandler(cfg configs.Config, open func(kind string, cfg configs.Config) (usecase.Sink, func(), error)) (queue.Handler, func(), error) {
	sinks := make(map[string]usecase.Sink)
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, kind := range cfg.SinkKinds() {
		s, closeFn, err := open(kind, cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		sinks[kind] = s
		closers = append(closers, closeFn)
	}

	router := queue.NewRouter(queue.WithFallback(usecase.NewForwardMessage(cfg.Sink.Default, sinks[cfg.Sink.Default])))
	for _, r := range cfg.Sink.Routes {
		key, err := domain.DecodeRoutingKey(r.RoutingKey)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		router.Register(key, usecase.NewForwardMessage(r.Sink, sinks[r.Sink]))
	}
	return router, cleanup, nil
}
