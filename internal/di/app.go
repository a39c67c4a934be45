package di

import (
	"context"

	"snowtricks-server/internal/modules"
	"snowtricks-server/internal/platform/service"
	"snowtricks-server/internal/router"
	"snowtricks-server/internal/storage"

	"go.uber.org/zap"
)

type Application struct {
	Router  *router.Router
	Modules *modules.AppModules
	Service *service.AppService
}

func NewApplication(r *router.Router, m *modules.AppModules, s *service.AppService) *Application {
	return &Application{
		Router:  r,
		Modules: m,
		Service: s,
	}
}

// provideFileStore 按配置选择存储驱动，MinIO 驱动启动时确保存储桶存在。
func provideFileStore(appService *service.AppService) (storage.FileStore, error) {
	files, err := storage.New(appService.Config(), appService.Logger())
	if err != nil {
		return nil, err
	}
	if m, ok := files.(*storage.MinioStore); ok {
		if err := m.EnsureBucket(context.Background()); err != nil {
			appService.Logger().Error("failed to ensure minio bucket", zap.Error(err))
			return nil, err
		}
	}
	return files, nil
}
