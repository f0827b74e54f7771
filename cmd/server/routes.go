package main

import (
	"context"
	"net/http"
	"time"

	"github.com/fekuna/cafe-stock-service/pkg/logger"
	"github.com/fekuna/cafe-stock-service/pkg/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouteRegistrar is implemented by every HTTP handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

type routerDeps struct {
	logger    logger.ZapLogger
	db        Pinger
	rateLimit string
	handlers  []RouteRegistrar
}

func newRouter(deps routerDeps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.logger))

	r.GET("/health", healthCheckHandler(deps.db, deps.logger))

	api := r.Group("/api")
	if deps.rateLimit != "" {
		limit, err := middleware.RateLimit(deps.rateLimit)
		if err != nil {
			return nil, err
		}
		api.Use(limit)
	}
	for _, h := range deps.handlers {
		h.RegisterRoutes(api)
	}
	return r, nil
}

func healthCheckHandler(db Pinger, log logger.ZapLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "healthy"
		httpStatus := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			log.Error("health check: database unreachable", zap.Error(err))
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":    status,
			"timestamp": time.Now(),
		})
	}
}
