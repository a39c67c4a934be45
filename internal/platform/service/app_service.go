package service

import (
	"snowtricks-server/internal/config"

	"go.uber.org/zap"
)

// AppService 各业务模块共享的运行时依赖：配置快照与日志器。
type AppService struct {
	log      *zap.Logger
	snapshot func() config.Config
}

func NewAppService(log *zap.Logger) *AppService {
	return &AppService{log: log, snapshot: config.Get}
}

// NewAppServiceWithConfig 使用固定配置，主要供测试使用。
func NewAppServiceWithConfig(log *zap.Logger, cfg config.Config) *AppService {
	return &AppService{log: log, snapshot: func() config.Config { return cfg }}
}

func (s *AppService) Config() config.Config {
	return s.snapshot()
}

func (s *AppService) Logger() *zap.Logger {
	if s.log == nil {
		return zap.NewNop()
	}
	return s.log
}
