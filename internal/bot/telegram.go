package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"crypto-sentinel/internal/domain"

	"go.opentelemetry.io/otel/trace"
	tele "gopkg.in/telebot.v3"
)

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier posts a run summary to one Telegram chat.
type Notifier struct {
	tracer trace.Tracer
	bot    sender
	chat   tele.Recipient
}

// NewNotifier builds an offline bot that only sends messages.
func NewNotifier(tracer trace.Tracer, token string, chatID int64) (*Notifier, error) {
	if strings.TrimSpace(token) == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram token and chat id are required")
	}
	b, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Notifier{tracer: tracer, bot: b, chat: tele.ChatID(chatID)}, nil
}

func (n *Notifier) NotifyRun(ctx context.Context, outcome domain.PipelineOutcome, agg domain.Aggregate) error {
	_, span := n.tracer.Start(ctx, "telegram.notify-run")
	defer span.End()

	_, err := n.bot.Send(n.chat, FormatRunSummary(outcome, agg))
	return err
}

// FormatRunSummary renders the human readable message for one run.
func FormatRunSummary(outcome domain.PipelineOutcome, agg domain.Aggregate) string {
	if !outcome.Success {
		return fmt.Sprintf("CryptoSentinel run %s failed\n%s", outcome.RunID, outcome.Error)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CryptoSentinel run %s\n", outcome.RunID)
	if outcome.BTCPrice != nil {
		fmt.Fprintf(&b, "BTC: $%s\n", outcome.BTCPrice.StringFixed(2))
	}
	if outcome.AvgSentiment != nil {
		fmt.Fprintf(&b, "Sentiment: %+.4f over %d posts\n", *outcome.AvgSentiment, outcome.PostsAnalyzed)
	}
	if agg.Count > 0 {
		fmt.Fprintf(&b, "Pos: %.1f%% | Neg: %.1f%% | Neu: %.1f%%\n", agg.PctPositive, agg.PctNegative, agg.PctNeutral)
	}
	switch {
	case outcome.ReportURL != "":
		fmt.Fprintf(&b, "Report: %s", outcome.ReportURL)
	case outcome.ReportPath != "":
		fmt.Fprintf(&b, "Report: %s", outcome.ReportPath)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Runner triggers one pipeline run on demand.
type Runner interface {
	Run(ctx context.Context) domain.PipelineOutcome
}

// RunLister reads recent run history.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// StartTelegramBot serves /ping, /run and /last until ctx is cancelled.
// history may be nil when run history is disabled.
func StartTelegramBot(ctx context.Context, token string, runner Runner, history RunLister) {
	if token == "" {
		slog.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		slog.Error("failed to create Telegram bot", "error", err)
		return
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/run", func(c tele.Context) error {
		_ = c.Send("Running pipeline...")
		outcome := runner.Run(ctx)
		return c.Send(FormatRunSummary(outcome, domain.Aggregate{}))
	})

	b.Handle("/last", func(c tele.Context) error {
		if history == nil {
			return c.Send("Run history is disabled")
		}
		runs, err := history.ListRuns(ctx, 1)
		if err != nil {
			return c.Send(fmt.Sprintf("Error reading run history: %v", err))
		}
		if len(runs) == 0 {
			return c.Send("No runs recorded yet")
		}
		return c.Send(FormatRunRecord(runs[0]))
	})

	slog.Info("Telegram bot started")
	go b.Start()
	go func() {
		<-ctx.Done()
		b.Stop()
	}()
}

// FormatRunRecord renders a stored run.
func FormatRunRecord(run domain.RunRecord) string {
	outcome := domain.PipelineOutcome{
		Success:       run.Success,
		RunID:         run.RunID,
		BTCPrice:      run.BTCPrice,
		AvgSentiment:  run.AvgSentiment,
		PostsAnalyzed: run.PostCount,
		ReportPath:    run.ReportPath,
		ReportURL:     run.ReportURL,
		Error:         run.Error,
	}
	return FormatRunSummary(outcome, domain.Aggregate{
		Count:       run.PostCount,
		PctPositive: run.PctPositive,
		PctNegative: run.PctNegative,
		PctNeutral:  run.PctNeutral,
	})
}
