package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	osSignal "os/signal"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/kirbo/swishsensei/internal/config"
	"github.com/kirbo/swishsensei/internal/store"
)

func TestShutdownSignals(t *testing.T) {
	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})

	signalNotify = func(ch chan<- os.Signal, sig ...os.Signal) {
		go func() {
			ch <- syscall.SIGTERM
		}()
	}

	server := &http.Server{}
	called := make(chan struct{}, 1)
	server.RegisterOnShutdown(func() {
		called <- struct{}{}
	})

	logger := zaptest.NewLogger(t)
	shutdown(server, time.Millisecond, logger)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatalf("expected server shutdown callback to execute")
	}
}

func TestConnectStoreFallsBackToMemory(t *testing.T) {
	st, err := connectStore(context.Background(), config.Defaults().Runtime, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := st.(*store.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", st)
	}
}

func TestExitfWritesStderrAndExits(t *testing.T) {
	var buf bytes.Buffer
	code := -1
	stderr, osExit = &buf, func(c int) { code = c }
	t.Cleanup(func() {
		stderr, osExit = os.Stderr, os.Exit
	})

	exitf("failed to load configuration: %v", "bad port")

	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if got := buf.String(); got != "failed to load configuration: bad port\n" {
		t.Fatalf("unexpected stderr: %q", got)
	}
}

func TestDefaultServerAddrMatchesHeaderPort(t *testing.T) {
	cfg := config.Defaults()
	if got, want := cfg.ServerAddr(), ":5000"; got != want {
		t.Fatalf("server addr = %q, want %q", got, want)
	}
}
