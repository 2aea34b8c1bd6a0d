package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-sentinel/internal/app"
	"crypto-sentinel/internal/bot"
	"crypto-sentinel/internal/config"
	"crypto-sentinel/internal/handler"
	"crypto-sentinel/internal/logging"
	"crypto-sentinel/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initLoggerFunc         = logging.Init
	initTracerFunc         = tracing.InitTracer
	buildAppFunc           = app.Build
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	exitFunc               = os.Exit
)

func main() {
	if err := loadEnvFunc(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg := loadConfigFunc()
	logger := initLoggerFunc(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, "server")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		exitFunc(1)
		return
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("error shutting down tracer provider", "error", err)
		}
	}()

	a, err := buildAppFunc(ctx, cfg, tracer, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		exitFunc(1)
		return
	}
	defer a.Close()

	var history handler.RunHistory
	var lister bot.RunLister
	if a.History != nil {
		history, lister = a.History, a.History
	}
	var prices handler.PriceReader
	if a.Prices != nil {
		prices = a.Prices
	}

	// Interactive bot commands; run notifications are wired in app.Build.
	startTelegramBotFunc(ctx, cfg.TelegramBotToken, a.Runner, lister)

	h := handler.New(tracer, a.Runner, history, prices, cfg.TriggerAPIKey)
	if a.Mood != nil {
		h.WithMood(a.Mood)
	}

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	logger.Info("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exiting")
}
