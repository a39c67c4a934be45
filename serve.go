package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"snowtricks-server/internal/config"
	"snowtricks-server/internal/consts"
	"snowtricks-server/internal/logger"
	mediaservice "snowtricks-server/internal/modules/media/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(*configDir)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt)
		},
	}
}

func serve(ctx context.Context, rt *instance) error {
	cfg := config.Get()
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(logger.GinLogger(rt.log), logger.GinRecovery(rt.log))
	rt.app.Router.Init(r)

	printWelcomeMessage(cfg)

	// 停机配置
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go runMaintenance(ctx, rt.app.Modules.Media.Service, rt.log)

	errCh := make(chan error, 1)
	go func() {
		rt.log.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	rt.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务强制关闭: %w", err)
	}
	rt.log.Info("server exited")
	return nil
}

// runMaintenance 定期清理过期暂存图片与孤儿文件，直到 ctx 结束。
func runMaintenance(ctx context.Context, media *mediaservice.Service, log *zap.Logger) {
	sweep := time.NewTicker(consts.TempSweepInterval)
	purge := time.NewTicker(consts.OrphanPurgeInterval)
	defer sweep.Stop()
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			report, err := media.SweepTemporary(ctx)
			logReport(log, "temp sweep", report, err)
		case <-purge.C:
			for _, dir := range media.Dirs().All() {
				report, err := media.Purger().Purge(ctx, dir)
				logReport(log, "orphan purge", report, err)
			}
		}
	}
}

func logReport(log *zap.Logger, task string, report mediaservice.PurgeReport, err error) {
	if errors.Is(err, mediaservice.ErrPurgeBusy) {
		log.Debug("maintenance skipped, purge in progress", zap.String("task", task))
		return
	}
	if err != nil {
		log.Warn("maintenance failed", zap.String("task", task), zap.Error(err))
		return
	}
	if len(report.Deleted) > 0 || len(report.Failed) > 0 {
		log.Info("maintenance finished",
			zap.String("task", task),
			zap.String("dir", report.Dir),
			zap.Int("deleted", len(report.Deleted)),
			zap.Int("failed", len(report.Failed)),
		)
	}
}

func printWelcomeMessage(cfg config.Config) {
	fmt.Println()
	fmt.Println(" ┌───────────────────────────────────────────────────────┐")
	fmt.Printf(" │   🚀  %s\n", consts.ApplicationName)
	fmt.Println(" ├───────────────────────────────────────────────────────┤")
	fmt.Printf(" │   📦  版本     : %s\n", consts.ApplicationVersion)
	fmt.Printf(" │   💾  存储驱动 : %s\n", cfg.Upload.Driver)
	fmt.Printf(" │   🔥  服务端口 : %s\n", cfg.Server.Port)
	fmt.Println(" └───────────────────────────────────────────────────────┘")
	fmt.Println()
}

// checkSecurePath 本地上传目录必须位于工作目录下的安全子目录中，防止把源码目录当作静态目录暴露。
func checkSecurePath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("路径解析失败: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("无法获取当前工作目录: %w", err)
	}

	// 检查是否直接指向项目根目录
	if absPath == cwd {
		return fmt.Errorf("安全配置错误: 上传目录 '%s' 不能设置为项目根目录", path)
	}

	rel, err := filepath.Rel(cwd, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		// 工作目录之外的绝对路径由部署方自行负责
		return nil
	}

	// 只有位于这些目录下的路径才被允许作为静态资源目录
	allowedDirs := []string{"uploads", "public", "media", "static", "tmp"}
	firstComponent := strings.Split(filepath.ToSlash(rel), "/")[0]
	for _, allowed := range allowedDirs {
		if strings.EqualFold(firstComponent, allowed) {
			return nil
		}
	}
	return fmt.Errorf("安全配置错误: 上传目录 '%s' 必须位于项目根目录下的安全子目录中 (如 %v)", path, allowedDirs)
}
