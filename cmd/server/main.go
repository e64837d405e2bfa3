package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/api"
	"github.com/navojoa/electoral-map/internal/app"
	"github.com/navojoa/electoral-map/internal/config"
	"github.com/navojoa/electoral-map/internal/logging"
	"github.com/navojoa/electoral-map/internal/middleware"
	"github.com/navojoa/electoral-map/internal/session"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 初始化数据库与服务
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}
	defer a.Close()

	// 后台预加载选区多边形
	go func() {
		if err := a.Sections.EnsurePolygons(context.Background()); err != nil {
			logger.Warn("section polygons not loaded", zap.Error(err))
		}
	}()

	sessions := session.NewStore(a.SessionDeps(), cfg.SessionTTL)
	defer sessions.Close()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
		defer limiter.Stop()
	}

	// 初始化路由
	router := api.SetupRouter(cfg, api.Services{
		Persons:  a.Persons,
		Sections: a.Sections,
		Maps:     a.Maps,
		Sessions: sessions,
		Limiter:  limiter,
	}, logger)

	srv := &http.Server{Addr: cfg.Port, Handler: router}

	// 启动服务器
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
