// Package server exposes the habit and task service over HTTP for local
// widgets and scripts.
package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/metrics"
	"github.com/julianstephens/streaks/internal/service"
)

func NewRouter(svc *service.Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), requestMetrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handler{svc: svc}

	habits := r.Group("/habits")
	habits.GET("", h.listHabits)
	habits.POST("", h.createHabit)
	habits.PATCH("/:id", h.updateHabit)
	habits.DELETE("/:id", h.deleteHabit)
	habits.POST("/:id/toggle", h.toggleHabit)
	habits.PUT("/:id/completions/:day", h.markHabit(true))
	habits.DELETE("/:id/completions/:day", h.markHabit(false))

	tasks := r.Group("/tasks")
	tasks.GET("", h.listTasks)
	tasks.POST("", h.createTask)
	tasks.PATCH("/:id", h.updateTask)
	tasks.DELETE("/:id", h.deleteTask)
	tasks.POST("/:id/toggle", h.toggleTask)

	r.GET("/calendar", h.calendar)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// requestMetrics labels by route template so ids do not explode cardinality.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
