package app

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/storelane/auth-engine/internal/config"
)

func TestNewAssignsDependenciesAndTimeouts(t *testing.T) {
	cfg := &config.Config{ShutdownTimeout: 10 * time.Second}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := &http.Server{Addr: ":8080", ReadHeaderTimeout: time.Second}

	a := New(cfg, logger, server, nil, nil)
	if a.Config != cfg || a.Logger != logger || a.Server != server {
		t.Fatal("expected app dependencies to be assigned")
	}
	if a.ShutdownTimeout != cfg.ShutdownTimeout {
		t.Fatal("expected shutdown timeout copied from config")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()

	cfg := &config.Config{ShutdownTimeout: time.Second}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := &http.Server{Addr: addr, ReadHeaderTimeout: time.Second, Handler: http.NotFoundHandler()}

	a := New(cfg, logger, server, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
