package repo

import (
	"context"

	"snowtricks-server/internal/model"
	mediarepo "snowtricks-server/internal/modules/media/repo"

	"gorm.io/gorm"
)

type ListTricksParams struct {
	Group         string
	OnlyPublished bool
	Offset        int
	Limit         int
}

// ArticleStore 文章的持久化接口。媒体由 media 模块管理，这里只负责与文章字段同事务写入。
type ArticleStore interface {
	CreateWithOwner(ctx context.Context, article *model.Article) error
	SaveWithMedia(ctx context.Context, article *model.Article, plan mediarepo.CommitPlan) error
	FindByID(ctx context.Context, id uint) (*model.Article, error)
	FindBySlug(ctx context.Context, slug string) (*model.Article, error)
	IsNameOrSlugTaken(ctx context.Context, name, slug string, excludeID uint) (bool, error)
	ListTricks(ctx context.Context, params ListTricksParams) ([]model.Article, int64, error)
}

func NewArticleRepository(db *gorm.DB) ArticleStore {
	return &ArticleRepository{db: db}
}
