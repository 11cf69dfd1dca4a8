package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xplorer1/eskalate-news-api/config"
	"github.com/xplorer1/eskalate-news-api/controllers"
	"github.com/xplorer1/eskalate-news-api/metrics"
	"github.com/xplorer1/eskalate-news-api/middleware"
	"github.com/xplorer1/eskalate-news-api/models"
	"github.com/xplorer1/eskalate-news-api/services"
	"github.com/xplorer1/eskalate-news-api/utils"
)

// Dependencies are the long-lived components the HTTP layer is built on.
type Dependencies struct {
	Config    config.AppConfig
	DB        *gorm.DB
	Logger    *zap.Logger
	Tokens    middleware.TokenVerifier
	Auth      *services.AuthService
	Articles  *services.ArticleService
	Analytics *services.AnalyticsService
	ReadGate  middleware.ReadGate
	ReadSink  middleware.ReadSink
	Metrics   *metrics.Metrics
	// AuthLimiter throttles /auth per client IP. When nil one is built from
	// Config.RateLimitPerMinute without a janitor.
	AuthLimiter *middleware.IPRateLimiter
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	if err := controllers.RegisterValidators(); err != nil {
		return nil, err
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(utils.RollingFile{
		Path:       cfg.GinPath,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	}, cfg.LogLevel)
	if err != nil {
		log.Warn("access log unavailable, using application logger", zap.Error(err))
		gl = log
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, !cfg.IsProduction()))
	r.Use(middleware.RequestID())
	r.Use(middleware.HTTPMetrics(deps.Metrics))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.ErrorHandler(log, cfg.IsProduction()))

	healthController := controllers.NewHealthController(deps.DB)
	authController := controllers.NewAuthController(deps.Auth)
	articleController := controllers.NewArticleController(deps.Articles)
	analyticsController := controllers.NewAnalyticsController(deps.Analytics)

	r.GET("/health", healthController.Health)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	authRequired := middleware.AuthRequired(deps.Tokens)
	authorOnly := middleware.RequireRole(models.RoleAuthor)

	authGroup := r.Group("/auth")
	authLimiter := deps.AuthLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewIPRateLimiter(cfg.RateLimitPerMinute)
	}
	authGroup.Use(authLimiter.Middleware())
	authGroup.POST("/signup", authController.Signup)
	authGroup.POST("/login", authController.Login)

	articles := r.Group("/articles")
	articles.GET("", articleController.PublicFeed)
	articles.GET("/me", authRequired, authorOnly, articleController.ListMine)
	articles.GET("/:id",
		middleware.OptionalAuth(deps.Tokens),
		middleware.ReadTracker(deps.ReadGate, deps.ReadSink, deps.Metrics),
		articleController.GetByID,
	)
	articles.POST("", authRequired, authorOnly, articleController.Create)
	articles.PUT("/:id", authRequired, authorOnly, articleController.Update)
	articles.DELETE("/:id", authRequired, authorOnly, articleController.Delete)

	r.GET("/author/dashboard", authRequired, authorOnly, analyticsController.Dashboard)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, "Route not found")
	})

	return r, nil
}
