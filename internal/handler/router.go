package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smartbin/portal/internal/config"
	"smartbin/portal/internal/handler/middleware"
	"smartbin/portal/internal/observe"
	"smartbin/portal/pkg/authz"
)

// Handlers groups the route handlers mounted by SetupRouter.
type Handlers struct {
	Auth       *AuthHandler
	Bins       *BinHandler
	Users      *UserHandler
	Submission *SubmissionHandler
	Dashboard  *DashboardHandler
	// Metrics is optional; nil leaves /metrics unmounted.
	Metrics *observe.Metrics
}

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authenticator middleware.Authenticator,
	h Handlers,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))
	if h.Metrics != nil {
		r.Use(middleware.RequestMetrics(h.Metrics))
		r.GET(cfg.Metrics.Path, gin.WrapH(h.Metrics.Handler()))
	}

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	// Public routes
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/contact", h.Submission.Contact)
	api.POST("/careers", h.Submission.Career)

	// Session routes
	protected := api.Group("")
	protected.Use(middleware.SessionAuth(authenticator, cfg.Auth.CookieName))
	{
		protected.POST("/auth/logout", h.Auth.Logout)
		protected.GET("/auth/me", h.Auth.Me)

		can := middleware.RequirePermission

		bins := protected.Group("/bins")
		bins.GET("", can(authz.PermBinsView), h.Bins.List)
		bins.GET("/:id", can(authz.PermBinsView), h.Bins.Get)
		bins.POST("", can(authz.PermBinsManage), h.Bins.Create)
		bins.PUT("/:id", can(authz.PermBinsManage), h.Bins.Update)
		bins.DELETE("/:id", can(authz.PermBinsManage), h.Bins.Delete)
		bins.POST("/:id/fill", can(authz.PermBinsOperate), h.Bins.ReportFill)
		bins.POST("/:id/empty", can(authz.PermBinsOperate), h.Bins.Empty)

		users := protected.Group("/users")
		users.GET("", can(authz.PermUsersView), h.Users.List)
		users.POST("", can(authz.PermUsersManage), h.Users.Create)
		users.PUT("/:id", can(authz.PermUsersManage), h.Users.Update)
		users.DELETE("/:id", can(authz.PermUsersManage), h.Users.Delete)

		subs := protected.Group("/submissions")
		subs.GET("", can(authz.PermSubmissionsView), h.Submission.List)
		subs.POST("/:id/review", can(authz.PermSubmissionsManage), h.Submission.Review)

		protected.GET("/dashboard/stats", can(authz.PermAnalyticsView), h.Dashboard.Stats)
		protected.GET("/hq/overview", can(authz.PermHQView), h.Dashboard.Overview)
	}

	return r
}
