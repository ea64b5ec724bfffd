package api

import (
	"net/http"
	"time"

	"goldennest/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// NewRouter builds the gin engine serving /api/v1
func NewRouter(cfg *config.Config, h *Handler) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(AccessLog())

	if len(cfg.CORSAllowedOrigins) > 0 {
		log.WithField("origins", cfg.CORSAllowedOrigins).Info("CORS enabled")
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", UserIDHeader},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", h.Health)

	v1 := router.Group("/api/v1")
	v1.POST("/users", h.RegisterUser)

	protected := v1.Group("/")
	protected.Use(RequireUser())
	{
		protected.POST("/families", h.CreateFamily)
		protected.POST("/families/join", h.JoinFamily)
		protected.GET("/families/:id", h.GetFamily)
		protected.GET("/families/:id/members", h.ListMembers)
		protected.PUT("/families/:id/savings-target", h.UpdateSavingsTarget)
		protected.GET("/families/:id/equity", h.GetEquity)

		protected.POST("/families/:id/approvals", h.CreateApproval)
		protected.GET("/families/:id/approvals", h.ListApprovals)
		protected.GET("/families/:id/approvals/pending", h.ListPendingApprovals)
		protected.GET("/approvals/:id", h.GetApproval)
		protected.POST("/approvals/:id/votes", h.Vote)
		protected.POST("/approvals/:id/cancel", h.CancelApproval)
		protected.POST("/approvals/:id/dividend-claim", h.ClaimDividend)

		protected.POST("/families/:id/dividends", h.ProposeDividend)
		protected.GET("/dividends/:id", h.GetDividend)
		protected.POST("/dividends/:id/resolve", h.ResolveDividend)
	}

	return router
}
