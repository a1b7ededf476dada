package handlers

import "github.com/gin-gonic/gin"

// NewRouter builds the engine used both by the Lambda adapter and local mode.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), Metrics())

	RegisterExchangeRoutes(r, cfg)
	RegisterMetricsRoute(r)
	return r
}
