// Package server exposes the watchdog's state over HTTP.
// Endpoints:
//
//	GET {basePath}/status    full state snapshot
//	GET {basePath}/healthz   liveness plus health classification
//	GET {basePath}/history   recent audit events (when a sink is configured)
//	GET {basePath}/metrics   Prometheus metrics from the default registry
//
// basePath may be empty or start with '/'; no trailing slash.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/boxwatch/boxwatch/internal/history"
	"github.com/boxwatch/boxwatch/internal/metrics"
	"github.com/boxwatch/boxwatch/internal/watchdog"
)

// StatusSource yields the state snapshot served by the API.
type StatusSource interface {
	Status() watchdog.Status
}

// Router provides embeddable HTTP handlers for the watchdog.
type Router struct {
	src      StatusSource
	hist     *history.SQLiteSink
	basePath string
}

// NewRouter constructs a Router with a configurable basePath. hist may be
// nil, in which case the history endpoint answers 404.
func NewRouter(src StatusSource, hist *history.SQLiteSink, basePath string) *Router {
	return &Router{src: src, hist: hist, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server or mux.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/healthz", r.handleHealthz)
	group.GET("/history", r.handleHistory)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, src StatusSource, hist *history.SQLiteSink) *http.Server {
	r := NewRouter(src, hist, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

type errorResp struct {
	Error string `json:"error"`
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.src.Status())
}

func (r *Router) handleHealthz(c *gin.Context) {
	// Liveness stays 200 even when degraded; the body carries the
	// classification for alerting.
	st := r.src.Status()
	c.JSON(http.StatusOK, gin.H{"health": st.Health, "reason": st.HealthReason})
}

func (r *Router) handleHistory(c *gin.Context) {
	if r.hist == nil {
		c.JSON(http.StatusNotFound, errorResp{Error: "history is not configured"})
		return
	}
	limit := 20
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, errorResp{Error: "limit must be an integer between 1 and 1000"})
			return
		}
		limit = n
	}
	events, err := r.hist.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if events == nil {
		events = []history.Event{}
	}
	c.JSON(http.StatusOK, events)
}
