package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"crypto-sentinel/internal/app"
	"crypto-sentinel/internal/bot"
	"crypto-sentinel/internal/config"
	"crypto-sentinel/internal/pipeline"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func TestMainExitsWhenBuildFails(t *testing.T) {
	restore := stubServerDeps()
	defer restore()

	code := -1
	exitFunc = func(c int) { code = c }
	buildAppFunc = func(context.Context, *config.Config, trace.Tracer, *slog.Logger) (*app.App, error) {
		return nil, context.Canceled
	}

	main()
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitLogger := initLoggerFunc
	origInitTracer := initTracerFunc
	origBuildApp := buildAppFunc
	origStartTelegram := startTelegramBotFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc
	origExit := exitFunc

	loadEnvFunc = func(...string) error { return os.ErrNotExist }
	loadConfigFunc = func() *config.Config {
		return &config.Config{HTTPAddr: ":9090", MaxPosts: 5, LogLevel: "error"}
	}
	initLoggerFunc = func(string) *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
	initTracerFunc = func(ctx context.Context, component string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	buildAppFunc = func(ctx context.Context, cfg *config.Config, tracer trace.Tracer, logger *slog.Logger) (*app.App, error) {
		return &app.App{Runner: pipeline.NewRunner(tracer, logger, pipeline.Deps{}, pipeline.Config{})}, nil
	}
	startTelegramBotFunc = func(context.Context, string, bot.Runner, bot.RunLister) {}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }
	exitFunc = func(int) {}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initLoggerFunc = origInitLogger
		initTracerFunc = origInitTracer
		buildAppFunc = origBuildApp
		startTelegramBotFunc = origStartTelegram
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
		exitFunc = origExit
	}
}
