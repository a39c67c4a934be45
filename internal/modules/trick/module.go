package trick

import (
	mediaservice "snowtricks-server/internal/modules/media/service"
	"snowtricks-server/internal/modules/trick/handler"
	"snowtricks-server/internal/modules/trick/repo"
	"snowtricks-server/internal/modules/trick/service"
	platformservice "snowtricks-server/internal/platform/service"
)

type Module struct {
	Service *service.Service
	Handler *handler.Handler
}

func New(appService *platformservice.AppService, articleStore repo.ArticleStore, mediaService *mediaservice.Service) *Module {
	moduleService := service.New(appService, articleStore, mediaService)
	moduleHandler := handler.New(moduleService)

	return &Module{
		Service: moduleService,
		Handler: moduleHandler,
	}
}
