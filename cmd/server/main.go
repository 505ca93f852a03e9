package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/zacharykka/qa-manager/internal/app"
	"github.com/zacharykka/qa-manager/internal/config"
	"github.com/zacharykka/qa-manager/internal/infra"
	"github.com/zacharykka/qa-manager/internal/middleware"
	httpserver "github.com/zacharykka/qa-manager/internal/server/http"
	activitysvc "github.com/zacharykka/qa-manager/internal/service/activity"
	authsvc "github.com/zacharykka/qa-manager/internal/service/auth"
	envsvc "github.com/zacharykka/qa-manager/internal/service/environment"
	storesvc "github.com/zacharykka/qa-manager/internal/service/store"
	"github.com/zacharykka/qa-manager/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigDir, opts.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := infra.Initialize(ctx, cfg, log)
	if err != nil {
		log.Fatal("初始化依赖失败", zap.Error(err))
	}
	defer func() {
		if err := cleanup(context.Background()); err != nil {
			log.Warn("释放依赖失败", zap.Error(err))
		}
	}()

	activityService := activitysvc.NewService(container.Repos, cfg.Retention.ActivityLogMaxAge, log)
	authService := authsvc.NewService(container.Repos, cfg.Auth)
	storeService := storesvc.NewService(container.Repos, activityService, container.StoreListCache, log)
	environmentService := envsvc.NewService(container.Repos, activityService, container.EnvListCache, log)

	engine := httpserver.NewEngine(cfg, log, httpserver.RouterOptions{
		Middlewares: []gin.HandlerFunc{
			middleware.RequestLogger(log),
			middleware.OrganizationInjector(),
		},
		HealthDeps: &httpserver.HealthDependencies{
			DB:    container.DB,
			Redis: container.Redis,
		},
		AuthHandler:        httpserver.NewAuthHandler(authService, cfg.Auth.AccessTokenSecret),
		StoreHandler:       httpserver.NewStoreHandler(storeService),
		EnvironmentHandler: httpserver.NewEnvironmentHandler(environmentService),
		ActivityHandler:    httpserver.NewActivityHandler(activityService),
	})

	application := app.New(cfg, log, engine)

	if err := application.Run(ctx); err != nil {
		log.Fatal("服务运行异常", zap.Error(err))
	}
}

// options 控制命令行参数。
type options struct {
	ConfigDir string
	Env       string
}

func parseFlags() options {
	var opts options
	pflag.StringVar(&opts.ConfigDir, "config-dir", "./config", "配置文件目录")
	pflag.StringVar(&opts.Env, "env", "", "强制指定运行环境，覆盖 QA_MANAGER_ENV")
	pflag.Parse()
	return opts
}
