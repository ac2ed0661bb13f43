package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zaakiraza/khd-adminPanel-sub000/internal/backendapi"
	"github.com/zaakiraza/khd-adminPanel-sub000/internal/config"
	"github.com/zaakiraza/khd-adminPanel-sub000/internal/httpmiddleware"
	"github.com/zaakiraza/khd-adminPanel-sub000/internal/metrics"
	"github.com/zaakiraza/khd-adminPanel-sub000/internal/reconcile"
	"github.com/zaakiraza/khd-adminPanel-sub000/internal/roster"
	"github.com/zaakiraza/khd-adminPanel-sub000/internal/store"
	"github.com/zaakiraza/khd-adminPanel-sub000/internal/tabular"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	backend := backendapi.New(cfg.BackendAPIURL, cfg.BackendAPIToken, cfg.BackendTimeout)

	var redisClient *store.Redis
	var cache roster.Cache
	if cfg.RosterCacheBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer func() { _ = redisClient.Close() }()
		cache = roster.NewRedisCache(redisClient.Client, cfg.RosterCacheTTL)
		log.Println("roster cache: redis at", cfg.RedisAddr)
	} else {
		cache = roster.NewMemoryCache(cfg.RosterCacheTTL)
		log.Println("roster cache: in-memory")
	}

	rosters := roster.NewService(backend, cache)
	sessions := reconcile.NewManager(rosters, backend, cfg.SessionIdleTTL)

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	// CORS middleware
	r.Use(corsMiddleware())

	// Security headers
	r.Use(securityHeaders())

	// Rate limiting
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		backendHealthy := backend.Health(c.Request.Context()) == nil
		status := http.StatusOK
		body := gin.H{"status": "ok", "backend": backendHealthy}
		if redisClient != nil {
			body["redis"] = redisClient.Healthy(c.Request.Context())
		}
		if !backendHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, body)
	})

	v1 := r.Group("/v1")

	v1.GET("/classes/:classId/students", func(c *gin.Context) {
		classID := c.Param("classId")
		var (
			students []backendapi.Student
			err      error
		)
		if c.Query("refresh") == "1" {
			students, err = rosters.Refresh(c.Request.Context(), classID)
		} else {
			students, err = rosters.Roster(c.Request.Context(), classID)
		}
		if err != nil {
			log.Printf("roster fetch failed for class %s: %v", classID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load class roster"})
			return
		}
		if students == nil {
			students = []backendapi.Student{}
		}
		c.JSON(http.StatusOK, gin.H{"students": students})
	})

	v1.POST("/reconcile/sessions", func(c *gin.Context) {
		var req struct {
			ClassID string `json:"classId" binding:"required"`
			Date    string `json:"date" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		view, err := sessions.Create(req.ClassID, req.Date)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, view)
	})

	v1.GET("/reconcile/sessions/:id", func(c *gin.Context) {
		view, err := sessions.Get(c.Param("id"))
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, view)
	})

	v1.POST("/reconcile/sessions/:id/parse", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxUploadBytes)

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			status, msg := uploadError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		defer file.Close()

		view, err := sessions.Parse(c.Request.Context(), c.Param("id"), header.Filename, file)
		if err != nil {
			switch {
			case errors.Is(err, reconcile.ErrNoParticipants):
				metrics.Parses.WithLabelValues("empty").Inc()
			default:
				metrics.Parses.WithLabelValues("error").Inc()
			}
			log.Printf("parse failed for session %s (%s): %v", c.Param("id"), header.Filename, err)
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}

		metrics.Parses.WithLabelValues("ok").Inc()
		c.JSON(http.StatusOK, view)
	})

	v1.PATCH("/reconcile/sessions/:id/results/:studentId", func(c *gin.Context) {
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		view, err := sessions.Override(c.Param("id"), c.Param("studentId"), reconcile.Status(req.Status))
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, view)
	})

	v1.POST("/reconcile/sessions/:id/commit", func(c *gin.Context) {
		if err := sessions.Commit(c.Request.Context(), c.Param("id")); err != nil {
			metrics.Commits.WithLabelValues("error").Inc()
			log.Printf("commit failed for session %s: %v", c.Param("id"), err)
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}

		metrics.Commits.WithLabelValues("ok").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "committed"})
	})

	v1.POST("/reconcile/sessions/:id/reset", func(c *gin.Context) {
		view, err := sessions.Reset(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, view)
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// errStatus maps domain errors to HTTP codes; anything unrecognized is a
// backend collaborator failure.
func errStatus(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconcile.ErrNoParticipants):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tabular.ErrUnsupportedFormat),
		errors.Is(err, tabular.ErrBadFile),
		errors.Is(err, reconcile.ErrClassRequired),
		errors.Is(err, reconcile.ErrInvalidDate),
		errors.Is(err, reconcile.ErrInvalidStatus),
		errors.Is(err, reconcile.ErrUnknownStudent):
		return http.StatusBadRequest
	case errors.Is(err, reconcile.ErrSessionActive),
		errors.Is(err, reconcile.ErrAlreadyParsed),
		errors.Is(err, reconcile.ErrNotReviewing),
		errors.Is(err, reconcile.ErrParseInProgress),
		errors.Is(err, reconcile.ErrSessionReset):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// uploadError classifies a multipart form failure. Exceeding the request body
// cap surfaces from FormFile as a MaxBytesError; report that as the upload
// being too large rather than a missing field.
func uploadError(err error) (int, string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("file too large: limit is %d bytes", maxErr.Limit)
	}
	return http.StatusBadRequest, "file field required"
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
