package http

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	"github.com/zacharykka/qa-manager/internal/config"
	"github.com/zacharykka/qa-manager/internal/infra/cache"
	"github.com/zacharykka/qa-manager/internal/infra/database"
	"github.com/zacharykka/qa-manager/internal/middleware"
	"go.uber.org/zap"
)

// HealthDependencies 汇总健康检查所需的依赖。
type HealthDependencies struct {
	DB    *sql.DB
	Redis *redis.Client
}

// RouterOptions 用于自定义路由行为，例如注入中间件。
type RouterOptions struct {
	Middlewares        []gin.HandlerFunc
	HealthHandler      gin.HandlerFunc
	HealthDeps         *HealthDependencies
	AuthHandler        *AuthHandler
	StoreHandler       *StoreHandler
	EnvironmentHandler *EnvironmentHandler
	ActivityHandler    *ActivityHandler
}

// NewEngine 根据环境配置初始化 Gin 引擎，并注册基础路由。
func NewEngine(cfg *config.Config, logger *zap.Logger, opts RouterOptions) *gin.Engine {
	ginMode := gin.DebugMode
	if cfg.App.Env == "production" {
		ginMode = gin.ReleaseMode
	}
	gin.SetMode(ginMode)

	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.SecurityHeaders(cfg.Server.SecurityHeaders))
	engine.Use(cors.New(buildCORSConfig(cfg.Server)))
	engine.Use(middleware.LimitRequestBody(cfg.Server.MaxRequestBody))

	if cfg.Server.RateLimit.Enabled {
		l := limiter.New(memorystore.NewStore(), limiter.Rate{
			Period: cfg.Server.RateLimit.Window,
			Limit:  cfg.Server.RateLimit.Requests,
		})
		engine.Use(middleware.RateLimit(l, middleware.KeyByUserOrIP()))
	}

	for _, mw := range opts.Middlewares {
		if mw != nil {
			engine.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler(cfg, opts.HealthDeps)
	}

	engine.GET("/healthz", healthHandler)

	api := engine.Group("/api/v1")
	if opts.AuthHandler != nil {
		authGroup := api.Group("/auth")
		opts.AuthHandler.RegisterRoutes(authGroup)
	}

	storeGroup := api.Group("/stores")
	storeGroup.Use(middleware.AuthGuard(cfg.Auth.AccessTokenSecret))
	if opts.StoreHandler != nil {
		opts.StoreHandler.RegisterRoutes(storeGroup)
	}
	if opts.EnvironmentHandler != nil {
		opts.EnvironmentHandler.RegisterRoutes(storeGroup)
	}

	if opts.ActivityHandler != nil {
		activityGroup := api.Group("/activity")
		activityGroup.Use(middleware.AuthGuard(cfg.Auth.AccessTokenSecret))
		opts.ActivityHandler.RegisterRoutes(activityGroup)
	}

	logger.Info("http router ready", zap.String("env", cfg.App.Env))

	return engine
}

// buildCORSConfig 将配置白名单翻译为 gin-contrib/cors 配置。
// 支持三种写法：通配所有来源的 "*"、精确来源、带子域通配符的模式（如 https://*.example.com）。
func buildCORSConfig(cfg config.ServerConfig) cors.Config {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = cfg.CORS.AllowCredentials
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Organization-ID")

	var exact []string
	var patterns []string
	for _, origin := range cfg.CORS.AllowOrigins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "":
			continue
		case origin == "*":
			corsCfg.AllowAllOrigins = true
		case strings.Contains(origin, "*"):
			patterns = append(patterns, origin)
		default:
			exact = append(exact, origin)
		}
	}

	if corsCfg.AllowAllOrigins {
		return corsCfg
	}

	corsCfg.AllowOrigins = exact
	if len(patterns) > 0 {
		corsCfg.AllowOriginFunc = func(origin string) bool {
			for _, candidate := range exact {
				if strings.EqualFold(candidate, origin) {
					return true
				}
			}
			for _, pattern := range patterns {
				if matchWildcardOrigin(pattern, origin) {
					return true
				}
			}
			return false
		}
	}
	return corsCfg
}

// matchWildcardOrigin 匹配形如 https://*.example.com 的单通配符模式。
func matchWildcardOrigin(pattern, origin string) bool {
	idx := strings.Index(pattern, "*")
	if idx < 0 {
		return strings.EqualFold(pattern, origin)
	}
	prefix := strings.ToLower(pattern[:idx])
	suffix := strings.ToLower(pattern[idx+1:])
	origin = strings.ToLower(origin)
	if len(origin) < len(prefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix)
}

func defaultHealthHandler(cfg *config.Config, deps *HealthDependencies) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		httpStatus := http.StatusOK
		result := gin.H{
			"status":  "ok",
			"service": cfg.App.Name,
			"env":     cfg.App.Env,
		}

		if deps != nil {
			dependencies := gin.H{}
			if deps.DB != nil {
				if err := database.Health(ctx.Request.Context(), deps.DB); err != nil {
					httpStatus = http.StatusServiceUnavailable
					result["status"] = "degraded"
					dependencies["database"] = gin.H{
						"status": "error",
						"error":  err.Error(),
					}
				} else {
					dependencies["database"] = gin.H{"status": "ok"}
				}
			} else {
				dependencies["database"] = gin.H{"status": "missing"}
			}

			if deps.Redis != nil {
				if err := cache.Health(ctx.Request.Context(), deps.Redis); err != nil {
					httpStatus = http.StatusServiceUnavailable
					result["status"] = "degraded"
					dependencies["redis"] = gin.H{
						"status": "error",
						"error":  err.Error(),
					}
				} else {
					dependencies["redis"] = gin.H{"status": "ok"}
				}
			} else {
				dependencies["redis"] = gin.H{"status": "missing"}
			}

			result["dependencies"] = dependencies
		}

		ctx.JSON(httpStatus, result)
	}
}
