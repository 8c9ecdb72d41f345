package app

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aq2208/gorder-bridge/configs"
	opsgrpc "github.com/aq2208/gorder-bridge/internal/adapter/grpc"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()
	return addr
}

func TestRun_GRPCBindFailureReleasesHTTPPort(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	var cfg configs.Config
	cfg.App.ShutdownTimeout = time.Second
	cfg.Ops.HTTPAddr = freeAddr(t)
	cfg.Ops.GRPCAddr = busy.Addr().String()

	a := &App{
		cfg:     cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		health:  opsgrpc.NewHealthServer("bridge-test"),
		httpSrv: &http.Server{Addr: cfg.Ops.HTTPAddr, Handler: http.NotFoundHandler()},
	}

	err = a.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ops grpc listen") {
		t.Fatalf("err = %v, want grpc listen failure", err)
	}

	lis, err := net.Listen("tcp", cfg.Ops.HTTPAddr)
	if err != nil {
		t.Fatalf("http port still held after failed start: %v", err)
	}
	_ = lis.Close()
}
