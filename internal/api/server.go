// internal/api/server.go
package api

import (
	"context"
	"net/http"
	"time"

	"loan-management-service/internal/common/auth"
	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/common/ratelimit"
	"loan-management-service/internal/services/application"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps the HTTP listener around the routed gin engine.
type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

// NewRouter assembles the full route table. limiter may be nil when rate
// limiting is disabled.
func NewRouter(h *Handlers, verifier *auth.Verifier, limiter *ratelimit.Limiter, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))
	router.Use(Observe())

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(Authenticate(verifier))
	{
		apps := v1.Group("/applications")
		apps.POST("", RequirePermission(auth.PermApplicationsCreate), RateLimit(limiter), h.CreateApplication)
		apps.GET("", RequirePermission(auth.PermApplicationsViewAll), h.ListApplications)
		apps.GET("/recent", RequirePermission(auth.PermApplicationsViewAll), h.RecentApplications)
		apps.GET("/mine", RequirePermission(auth.PermApplicationsView), h.MyApplications)
		apps.GET("/search", RequirePermission(auth.PermApplicationsViewAll), h.SearchApplications)
		apps.GET("/:id", RequirePermission(auth.PermApplicationsView), h.GetApplication)
		apps.PUT("/:id", RequirePermission(auth.PermApplicationsEdit), h.UpdateApplication)
		apps.DELETE("/:id", RequirePermission(auth.PermApplicationsDelete), h.DeleteApplication)
		apps.POST("/:id/submit", RequirePermission(auth.PermApplicationsEdit), h.applyEvent(application.EventSubmit))
		apps.POST("/:id/review", RequirePermission(auth.PermApplicationsDecide), h.applyEvent(application.EventStartReview))
		apps.POST("/:id/approve", RequirePermission(auth.PermApplicationsDecide), h.applyEvent(application.EventApprove))
		apps.POST("/:id/reject", RequirePermission(auth.PermApplicationsDecide), h.applyEvent(application.EventReject))

		v1.POST("/validate", RequirePermission(auth.PermApplicationsCreate), RateLimit(limiter), h.ValidateApplication)
		v1.GET("/statistics", RequirePermission(auth.PermReportsView), h.GetStatistics)

		m := v1.Group("/masters")
		m.GET("", RequirePermission(auth.PermMastersView), h.GetMasters)
		m.GET("/districts/:code/talukas", RequirePermission(auth.PermMastersView), h.DistrictTalukas)
		m.GET("/talukas/:code/villages", RequirePermission(auth.PermMastersView), h.TalukaVillages)

		edit := m.Group("", RequirePermission(auth.PermMastersEdit))
		edit.POST("/districts", h.AddDistrict)
		edit.PUT("/districts/:code", h.UpdateMasterEntry(h.updateDistrict))
		edit.DELETE("/districts/:code", h.DeleteMasterEntry(h.deleteDistrict))
		edit.POST("/districts/:code/talukas", h.AddTaluka)
		edit.PUT("/talukas/:code", h.UpdateMasterEntry(h.updateTaluka))
		edit.DELETE("/talukas/:code", h.DeleteMasterEntry(h.deleteTaluka))
		edit.POST("/talukas/:code/villages", h.AddVillage)
		edit.PUT("/villages/:code", h.UpdateMasterEntry(h.updateVillage))
		edit.DELETE("/villages/:code", h.DeleteMasterEntry(h.deleteVillage))
	}

	return router
}

// NewServer binds the router to the configured listen address.
func NewServer(cfg config.ServerConfig, router *gin.Engine, log logger.Logger) *Server {
	readTimeout := time.Duration(cfg.ReadTimeout) * time.Millisecond
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := time.Duration(cfg.WriteTimeout) * time.Millisecond
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.log.Info("http server listening", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down", nil)
	return s.httpServer.Shutdown(ctx)
}
