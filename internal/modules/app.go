package modules

import (
	"snowtricks-server/internal/modules/media"
	mediarepo "snowtricks-server/internal/modules/media/repo"
	"snowtricks-server/internal/modules/trick"
	trickrepo "snowtricks-server/internal/modules/trick/repo"
	platformservice "snowtricks-server/internal/platform/service"
	"snowtricks-server/internal/storage"
)

type AppModules struct {
	Media *media.Module
	Trick *trick.Module
}

func New(
	appService *platformservice.AppService,
	mediaStore mediarepo.MediaStore,
	articleStore trickrepo.ArticleStore,
	files storage.FileStore,
) *AppModules {
	mediaModule := media.New(appService, mediaStore, files)
	trickModule := trick.New(appService, articleStore, mediaModule.Service)

	return &AppModules{
		Media: mediaModule,
		Trick: trickModule,
	}
}
