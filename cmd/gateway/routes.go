package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Yo-Self/yo-self.github.io-sub001/config"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/gateway/handlers"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/gateway/middleware"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/service"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/metrics"
)

func setupRouter(cfg config.Config, svc *service.Service, redisClient *redis.Client, zl *zap.Logger) (*gin.Engine, error) {
	if cfg.Log.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	rateLimit, err := middleware.RateLimit(cfg.RateSpec)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(middleware.CORS())
	r.Use(middleware.RequestID(zl))
	r.Use(middleware.AccessLog())
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())
	r.Use(cacheModeMiddleware(redisClient))

	menuHandler := handlers.NewMenuHTTPHandler(svc, cfg.Source.HTTPTimeout)

	// --- API Group ---
	api := r.Group("/api/v1")
	api.Use(rateLimit)
	var adminAuth gin.HandlerFunc
	if cfg.Auth.JWTSecret != "" {
		adminAuth = middleware.JWTAuth([]byte(cfg.Auth.JWTSecret))
	} else {
		zl.Warn("JWT_SECRET not set, admin routes disabled")
	}
	menuHandler.RegisterRoutes(api, adminAuth)

	r.GET("/health", healthCheckHandler(cfg, redisClient))
	r.GET("/health/detailed", detailedHealthCheckHandler(svc, redisClient))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r, nil
}

func cacheModeMiddleware(redisClient *redis.Client) gin.HandlerFunc {
	mode := "memory"
	if redisClient != nil {
		mode = "memory+redis"
	}
	return func(c *gin.Context) {
		c.Header("X-Menu-Cache", mode)
		c.Next()
	}
}

func healthCheckHandler(cfg config.Config, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		httpStatus := http.StatusOK

		unavailable := []string{}
		if cfg.Cache.RedisEnabled && redisClient == nil {
			unavailable = append(unavailable, "redis")
		}

		if len(unavailable) > 0 {
			status = "degraded"
			httpStatus = http.StatusPartialContent
		}

		c.JSON(httpStatus, gin.H{
			"status":               status,
			"message":              "Server is running",
			"source":               cfg.Source.Kind,
			"unavailable_services": unavailable,
			"timestamp":            time.Now(),
		})
	}
}

func detailedHealthCheckHandler(svc *service.Service, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, sourceErr := svc.FetchRestaurantIDs(ctx)
		services := map[string]interface{}{
			"menu_source": checkServiceHealth(sourceErr),
		}
		if redisClient != nil {
			services["redis"] = checkServiceHealth(redisClient.Ping(ctx).Err())
		}

		overallStatus := "healthy"
		for _, s := range services {
			if serviceMap, ok := s.(map[string]interface{}); ok {
				if serviceMap["status"] != "healthy" {
					overallStatus = "degraded"
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"overall_status": overallStatus,
			"services":       services,
			"timestamp":      time.Now(),
		})
	}
}

func checkServiceHealth(err error) map[string]interface{} {
	if err != nil {
		return map[string]interface{}{
			"status":  "unavailable",
			"message": err.Error(),
		}
	}
	return map[string]interface{}{
		"status":  "healthy",
		"message": "Service is responding",
	}
}
