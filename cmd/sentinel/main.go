package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-sentinel/internal/app"
	"crypto-sentinel/internal/config"
	"crypto-sentinel/internal/logging"
	"crypto-sentinel/pkg/tracing"

	"github.com/joho/godotenv"
)

var (
	loadEnvFunc              = godotenv.Load
	loadConfigFunc           = config.Load
	initLoggerFunc           = logging.Init
	initTracerFunc           = tracing.InitTracer
	buildAppFunc             = app.Build
	notifyContext            = signal.NotifyContext
	stdout         io.Writer = os.Stdout
	exitFunc                 = os.Exit
)

func main() {
	exitFunc(run(os.Args[1:]))
}

// run executes one pipeline run and returns the process exit code.
func run(args []string) int {
	fs := flag.NewFlagSet("sentinel", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print the run outcome as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := loadEnvFunc(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg := loadConfigFunc()
	logger := initLoggerFunc(cfg.LogLevel)

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, tracer, err := initTracerFunc(ctx, "cli")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down tracer provider", "error", err)
		}
	}()

	a, err := buildAppFunc(ctx, cfg, tracer, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return 1
	}
	defer a.Close()

	outcome := a.Runner.Run(ctx)

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome); err != nil {
			logger.Error("failed to encode outcome", "error", err)
			return 1
		}
	} else {
		fmt.Fprintln(stdout, renderOutcome(outcome))
	}

	if !outcome.Success {
		return 1
	}
	return 0
}
