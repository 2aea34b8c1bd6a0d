package handler

import (
	"context"
	"sync"

	"crypto-sentinel/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// PipelineRunner executes one synchronous pipeline run.
type PipelineRunner interface {
	Run(ctx context.Context) domain.PipelineOutcome
}

// RunHistory lists stored runs, newest first.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// PriceReader serves the current Bitcoin snapshot.
type PriceReader interface {
	FetchSnapshot(ctx context.Context) (domain.PriceSnapshot, error)
}

// MoodReader serves the crypto Fear & Greed index.
type MoodReader interface {
	FetchMood(ctx context.Context) (domain.MarketMood, error)
}

type Handler struct {
	tracer  trace.Tracer
	runner  PipelineRunner
	history RunHistory
	prices  PriceReader
	mood    MoodReader
	apiKey  string

	// running rejects overlapping runs; two runs in the same second would
	// share a report file name.
	running sync.Mutex
}

// New builds the HTTP surface. history and prices may be nil.
// WithMood enables /api/mood.
func New(tracer trace.Tracer, runner PipelineRunner, history RunHistory, prices PriceReader, apiKey string) *Handler {
	return &Handler{
		tracer:  tracer,
		runner:  runner,
		history: history,
		prices:  prices,
		apiKey:  apiKey,
	}
}

func (h *Handler) WithMood(m MoodReader) *Handler {
	h.mood = m
	return h
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/price", h.GetPrice)
	r.GET("/api/mood", h.GetMood)
	r.GET("/api/runs", h.ListRuns)
	r.POST("/api/runs", APIKeyAuth(h.apiKey), h.TriggerRun)
}
