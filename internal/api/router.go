package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"stockpulse/internal/service"
)

// DefaultStaleAfter is how old the latest cycle may be before /readyz fails.
const DefaultStaleAfter = time.Minute

// SnapshotSource exposes the most recent cycle.
type SnapshotSource interface {
	Latest() (service.Snapshot, bool)
}

// Options configure the router.
type Options struct {
	StaleAfter time.Duration
	Now        func() time.Time
}

type handler struct {
	source SnapshotSource
	opts   Options
}

// NewRouter mounts health, metrics and card endpoints.
func NewRouter(source SnapshotSource, opts Options, logger zerolog.Logger) *gin.Engine {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &handler{source: source, opts: opts}

	router := gin.New()
	router.Use(
		RequestID(),
		AccessLog(logger.With().Str("component", "api").Logger()),
		gin.Recovery(),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", h.ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/cards", h.cards)
	}
	return router
}

func (h *handler) ready(c *gin.Context) {
	snap, ok := h.source.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	age := h.opts.Now().Sub(snap.At)
	if age > h.opts.StaleAfter {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stale", "last_cycle": snap.At})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "last_cycle": snap.At})
}

func (h *handler) cards(c *gin.Context) {
	snap, ok := h.source.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no cycle has completed yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}
