// Package httpapi exposes health, metrics and a manual digest trigger over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/metrics"
)

const defaultRunsLimit = 10

// Firer starts a guarded digest cycle.
type Firer interface {
	Fire(ctx context.Context) (domain.DigestPayload, domain.DeliveryReport, error)
	Running() bool
}

// RunLister reads recent run history.
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// Handler serves the trigger and history endpoints.
type Handler struct {
	trigger Firer
	runs    RunLister
	logger  *slog.Logger
}

// NewHandler wires the handler. runs may be nil when no history store is configured.
func NewHandler(trigger Firer, runs RunLister, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{trigger: trigger, runs: runs, logger: logger}
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handler, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := router.Group("/api/v1")
	v1.POST("/digest/run", h.RunDigest)
	v1.GET("/runs", h.ListRuns)

	return router
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"running": h.trigger.Running(),
	})
}

// RunDigest handles POST /api/v1/digest/run.
func (h *Handler) RunDigest(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	payload, report, err := h.trigger.Fire(ctx)
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("manual digest run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	counts := payload.Counts()
	c.JSON(http.StatusAccepted, gin.H{
		"status": "completed",
		"counts": gin.H{
			"discussion": counts[domain.SourceDiscussion],
			"paper":      counts[domain.SourcePaper],
			"news":       counts[domain.SourceNews],
		},
		"delivery": gin.H{
			"attempts":       report.Attempts(),
			"delivered":      report.Delivered(),
			"failed_batches": report.Failed(),
		},
	})
}

type runView struct {
	StartedAt       string         `json:"started_at"`
	Counts          map[string]int `json:"counts"`
	EmailSent       bool           `json:"email_sent"`
	RecipientsCount int            `json:"recipients_count"`
	FailedBatches   int            `json:"failed_batches"`
	Status          string         `json:"status"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	DurationMS      int64          `json:"duration_ms"`
}

// ListRuns handles GET /api/v1/runs?limit=N.
func (h *Handler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []runView{}})
		return
	}

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := h.runs.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list runs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]runView, 0, len(records))
	for _, rec := range records {
		counts := make(map[string]int, len(rec.Counts))
		for st, n := range rec.Counts {
			counts[string(st)] = n
		}
		views = append(views, runView{
			StartedAt:       rec.StartedAt.UTC().Format(time.RFC3339),
			Counts:          counts,
			EmailSent:       rec.EmailSent,
			RecipientsCount: rec.RecipientsCount,
			FailedBatches:   rec.FailedBatches,
			Status:          string(rec.Status),
			ErrorMessage:    rec.ErrorMessage,
			DurationMS:      rec.Duration.Milliseconds(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": views})
}
