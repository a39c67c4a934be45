package media

import (
	"snowtricks-server/internal/modules/media/handler"
	"snowtricks-server/internal/modules/media/repo"
	"snowtricks-server/internal/modules/media/service"
	platformservice "snowtricks-server/internal/platform/service"
	"snowtricks-server/internal/storage"
)

type Module struct {
	Service *service.Service
	Handler *handler.Handler
}

func New(appService *platformservice.AppService, mediaStore repo.MediaStore, files storage.FileStore) *Module {
	moduleService := service.New(appService, mediaStore, files, service.NewImagingResizer())
	moduleHandler := handler.New(moduleService)

	return &Module{
		Service: moduleService,
		Handler: moduleHandler,
	}
}
