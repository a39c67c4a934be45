//go:build wireinject
// +build wireinject

package di

import (
	"snowtricks-server/internal/modules"
	mediarepo "snowtricks-server/internal/modules/media/repo"
	trickrepo "snowtricks-server/internal/modules/trick/repo"
	"snowtricks-server/internal/platform/service"
	"snowtricks-server/internal/router"

	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func InitializeApplication(gormDB *gorm.DB, log *zap.Logger) (*Application, error) {
	wire.Build(
		service.NewAppService,
		mediarepo.NewMediaRepository,
		trickrepo.NewArticleRepository,
		provideFileStore,
		modules.New,
		router.NewRouter,
		NewApplication,
	)
	return nil, nil
}
