package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/scheduler"
)

// StatusFunc reports the scanner state for /status.
type StatusFunc func() scheduler.Status

func newRouter(service string, status StatusFunc, gatherer prometheus.Gatherer, now func() time.Time) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": float64(now().UnixNano()) / 1e9,
			"service":   service,
		})
	}
	router.GET("/", health)
	router.HEAD("/", health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, status())
	})
	return router
}

func newServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}
}

// serve runs srv until it is shut down; a listen failure is fatal to the process.
func serve(ctx context.Context, srv *http.Server, fatal func(error)) {
	logger.Info(ctx, "Health server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal(fmt.Errorf("health server: %w", err))
	}
}
