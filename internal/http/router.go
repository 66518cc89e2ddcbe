package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/zioncity/backend/internal/config"
	"github.com/zioncity/backend/internal/http/handlers"
	"github.com/zioncity/backend/internal/http/middleware"

	_ "github.com/zioncity/backend/docs"
)

type Deps struct {
	Engine      handlers.AgentEngine
	Settings    handlers.SettingsStore
	Eligibility handlers.EligibilityEvaluator
	DB          handlers.Pinger
}

func Router(cfg config.Config, deps Deps, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = config.SplitList(cfg.CORSAllowed)
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Engine:      deps.Engine,
		Settings:    deps.Settings,
		Eligibility: deps.Eligibility,
		DB:          deps.DB,
		Validator:   validator.New(),
		Logger:      logger,
		AdminKey:    cfg.AdminKey,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		api.POST("/agent/query-businesses", h.QueryBusinesses)
		api.POST("/agent/chat-with-search", h.ChatWithSearch)
		api.GET("/work/organizations/:id/eric-settings", h.GetEricSettings)
		api.PUT("/work/organizations/:id/eric-settings", h.PutEricSettings)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.GET("/agent/debug/eligibility", h.DebugEligibility)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
