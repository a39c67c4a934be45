package service

import (
	mediaservice "snowtricks-server/internal/modules/media/service"
	"snowtricks-server/internal/modules/trick/repo"
	platformservice "snowtricks-server/internal/platform/service"

	"go.uber.org/zap"
)

type Service struct {
	*platformservice.AppService
	articles repo.ArticleStore
	media    *mediaservice.Service
	log      *zap.Logger
}

func New(appService *platformservice.AppService, articles repo.ArticleStore, media *mediaservice.Service) *Service {
	return &Service{
		AppService: appService,
		articles:   articles,
		media:      media,
		log:        appService.Logger().Named("trick"),
	}
}
