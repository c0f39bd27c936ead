package main

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/cutoff-service/internal/application"
	"github.com/wms-platform/cutoff-service/internal/config"
	"github.com/wms-platform/cutoff-service/pkg/logging"
	"github.com/wms-platform/cutoff-service/pkg/metrics"
	"github.com/wms-platform/cutoff-service/pkg/middleware"
)

// Rate-limited endpoint names, used in limiter keys and metrics
const (
	endpointCapacityCheck = "capacity_check"
	endpointCutoff        = "cutoff"
	endpointStatus        = "status"
	endpointSimulate      = "simulate"
)

type routerDeps struct {
	Config    *config.Config
	Cutoff    *application.CutoffService
	Demo      *application.DemoService // nil disables the demo routes
	Limiter   middleware.RateLimiter
	Metrics   *metrics.Metrics
	Logger    *logging.Logger
	Readiness map[string]func() error
}

func newRouter(deps routerDeps) *gin.Engine {
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, deps.Logger.Logger)
	middlewareConfig.AllowedOrigins = deps.Config.AllowedOrigins
	middleware.Setup(router, middlewareConfig)

	router.Use(middleware.MetricsMiddleware(deps.Metrics))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName, deps.Config.Version))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, deps.Readiness))
	router.GET("/metrics", middleware.MetricsEndpoint(deps.Metrics))

	limits := deps.Config.RateLimits
	limit := func(endpoint string, perWindow int) gin.HandlerFunc {
		return middleware.RateLimit(deps.Limiter, endpoint, perWindow, deps.Metrics)
	}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/capacity/check", limit(endpointCapacityCheck, limits.CapacityCheck), checkCapacityHandler(deps.Cutoff, deps.Logger))
		apiV1.GET("/cutoff/current", limit(endpointCutoff, limits.Cutoff), currentCutoffHandler(deps.Cutoff, deps.Logger))
		apiV1.POST("/simulate", limit(endpointSimulate, limits.Simulate), simulateHandler(deps.Cutoff, deps.Logger))
		apiV1.GET("/status/:warehouseId", limit(endpointStatus, limits.Status), warehouseStatusHandler(deps.Cutoff, deps.Logger))
	}

	if deps.Demo != nil {
		demo := apiV1.Group("/demo")
		demo.GET("/scenarios", listScenariosHandler(deps.Demo))
		demo.POST("/scenario/:name", switchScenarioHandler(deps.Demo, deps.Logger))
	}

	return router
}
