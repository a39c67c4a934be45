package repo

import (
	"context"

	"snowtricks-server/internal/model"
	mediarepo "snowtricks-server/internal/modules/media/repo"

	"gorm.io/gorm"
)

type ArticleRepository struct {
	db *gorm.DB
}

// CreateWithOwner 在一个事务内创建媒体持有者与文章。
func (r *ArticleRepository) CreateWithOwner(ctx context.Context, article *model.Article) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner := &model.MediaOwner{}
		if err := tx.Create(owner).Error; err != nil {
			return err
		}
		article.MediaOwnerID = owner.ID
		return tx.Omit("MediaOwner").Create(article).Error
	})
}

// SaveWithMedia 终态保存：文章字段与媒体变更在同一事务内写入。
func (r *ArticleRepository) SaveWithMedia(ctx context.Context, article *model.Article, plan mediarepo.CommitPlan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(article).
			Select("name", "slug", "description", "trick_group", "is_published").
			Updates(article)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return mediarepo.ApplyCommitPlan(tx, plan)
	})
}

func (r *ArticleRepository) FindByID(ctx context.Context, id uint) (*model.Article, error) {
	var article model.Article
	if err := r.db.WithContext(ctx).First(&article, id).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *ArticleRepository) FindBySlug(ctx context.Context, slug string) (*model.Article, error) {
	var article model.Article
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *ArticleRepository) IsNameOrSlugTaken(ctx context.Context, name, slug string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.Article{}).Where("(name = ? OR slug = ?)", name, slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ArticleRepository) ListTricks(ctx context.Context, params ListTricksParams) ([]model.Article, int64, error) {
	var articles []model.Article
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Article{})
	if params.Group != "" {
		query = query.Where("trick_group = ?", params.Group)
	}
	if params.OnlyPublished {
		query = query.Where("is_published = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("updated_at desc, id desc").Offset(params.Offset).Limit(params.Limit).Find(&articles).Error; err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}
