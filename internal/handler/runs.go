package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"crypto-sentinel/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// TriggerRun executes the pipeline once and returns its outcome. A failed
// price fetch maps to 502; any other failure to 500.
func (h *Handler) TriggerRun(c *gin.Context) {
	if !h.running.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "a pipeline run is already in progress"})
		return
	}
	defer h.running.Unlock()

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-run")
	defer span.End()

	outcome := h.runner.Run(ctx)
	span.SetAttributes(attribute.Bool("success", outcome.Success), attribute.String("run_id", outcome.RunID))

	switch {
	case outcome.Success:
		c.JSON(http.StatusOK, outcome)
	case strings.HasPrefix(outcome.Error, "price:"):
		c.JSON(http.StatusBadGateway, outcome)
	default:
		c.JSON(http.StatusInternalServerError, outcome)
	}
}

type runResponse struct {
	ID           int64          `json:"id"`
	RunID        string         `json:"run_id"`
	Success      bool           `json:"success"`
	BTCPrice     *string        `json:"btc_price,omitempty"`
	AvgSentiment *float64       `json:"avg_sentiment,omitempty"`
	Distribution map[string]any `json:"distribution"`
	PostCount    int            `json:"posts_analyzed"`
	ReportPath   string         `json:"report_path,omitempty"`
	ReportURL    string         `json:"report_url,omitempty"`
	Error        string         `json:"error,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}

func toRunResponse(r domain.RunRecord) runResponse {
	out := runResponse{
		ID:           r.ID,
		RunID:        r.RunID,
		Success:      r.Success,
		AvgSentiment: r.AvgSentiment,
		Distribution: map[string]any{
			"positive": r.PctPositive,
			"negative": r.PctNegative,
			"neutral":  r.PctNeutral,
		},
		PostCount:  r.PostCount,
		ReportPath: r.ReportPath,
		ReportURL:  r.ReportURL,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.BTCPrice != nil {
		v := r.BTCPrice.String()
		out.BTCPrice = &v
	}
	return out
}

// ListRuns returns recent run history, newest first.
func (h *Handler) ListRuns(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-runs")
	defer span.End()

	limit := defaultRunsLimit
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxRunsLimit {
			limit = n
		}
	}
	span.SetAttributes(attribute.Int("limit", limit))

	runs, err := h.history.ListRuns(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, toRunResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}
