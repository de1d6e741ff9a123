package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusdash/campusdash/internal/config"
	"github.com/campusdash/campusdash/internal/logger"
)

// NewRouter builds the gin engine with all routes registered.
func NewRouter(handler *Handler, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	SetupRoutes(router, handler)
	return router
}

// NewServer wraps the router in an http.Server with the configured
// timeouts. The caller owns startup and shutdown.
func NewServer(handler *Handler, cfg config.ServerConfig, debug bool, log logger.Logger) *http.Server {
	log.Info("configuring http server", logger.String("address", cfg.Address))

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      NewRouter(handler, debug),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
