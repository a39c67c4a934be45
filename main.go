package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"snowtricks-server/internal/cache"
	"snowtricks-server/internal/config"
	"snowtricks-server/internal/db"
	"snowtricks-server/internal/di"
	"snowtricks-server/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:           "snowtricks-server",
		Short:         "SnowTricks 技巧文章与媒体服务",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "config", "配置文件所在目录")

	rootCmd.AddCommand(newServeCommand(&configDir))
	rootCmd.AddCommand(newPurgeCommand(&configDir))
	rootCmd.AddCommand(newMigrateCommand(&configDir))

	return rootCmd
}

// instance 一个子命令运行所需的全部依赖。
type instance struct {
	log *zap.Logger
	app *di.Application
}

func (rt *instance) Close() {
	_ = cache.Close()
	_ = rt.log.Sync()
}

// bootstrap 加载配置、连接数据库并完成依赖注入。
func bootstrap(configDir string) (*instance, error) {
	config.InitConfig(configDir)
	log := logger.NewFromConfig()

	cfg := config.Get()
	for _, dir := range []string{cfg.Upload.TrickPath, cfg.Upload.AvatarPath, cfg.Upload.TempPath} {
		if err := checkSecurePath(dir); err != nil {
			return nil, err
		}
	}

	gdb, err := db.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}
	cache.Init(cfg.Redis, log)

	app, err := di.InitializeApplication(gdb, log)
	if err != nil {
		return nil, fmt.Errorf("初始化应用失败: %w", err)
	}
	return &instance{log: log, app: app}, nil
}

func newMigrateCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "同步数据库表结构后退出",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.InitConfig(*configDir)
			log := logger.NewFromConfig()
			defer func() { _ = log.Sync() }()

			gdb, err := db.Open(config.Get().Database, log)
			if err != nil {
				return err
			}
			if err := db.Migrate(gdb); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ 数据库迁移完成")
			return nil
		},
	}
}
