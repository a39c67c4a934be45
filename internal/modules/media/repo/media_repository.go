package repo

import (
	"context"
	"fmt"

	"snowtricks-server/internal/model"

	"gorm.io/gorm"
)

type MediaRepository struct {
	db *gorm.DB
}

// RemovalPlan 一次性删除的实体集合。ArticleID/OwnerID 非零时一并删除文章与媒体持有者。
type RemovalPlan struct {
	ImageIDs  []uint
	VideoIDs  []uint
	ArticleID uint
	OwnerID   uint
}

func (p RemovalPlan) Empty() bool {
	return len(p.ImageIDs) == 0 && len(p.VideoIDs) == 0 && p.ArticleID == 0 && p.OwnerID == 0
}

func (r *MediaRepository) CreateOwner(ctx context.Context) (*model.MediaOwner, error) {
	owner := &model.MediaOwner{}
	if err := r.db.WithContext(ctx).Create(owner).Error; err != nil {
		return nil, err
	}
	return owner, nil
}

func (r *MediaRepository) CreateImage(ctx context.Context, image *model.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *MediaRepository) CreateVideo(ctx context.Context, video *model.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

func (r *MediaRepository) CreateSource(ctx context.Context, source *model.MediaSource) error {
	if err := source.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(source).Error
}

func (r *MediaRepository) CreateMedia(ctx context.Context, media *model.Media) error {
	return r.db.WithContext(ctx).Create(media).Error
}

func (r *MediaRepository) AttachToOwner(ctx context.Context, mediaID, ownerID uint) error {
	res := r.db.WithContext(ctx).Model(&model.Media{}).Where("id = ?", mediaID).
		Update("media_owner_id", ownerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByOwner 按展示顺序返回持有者的全部媒体，预加载图片/视频。
func (r *MediaRepository) ListByOwner(ctx context.Context, ownerID uint) ([]model.Media, error) {
	var medias []model.Media
	err := r.db.WithContext(ctx).
		Preload("MediaSource.Image").
		Preload("MediaSource.Video").
		Where("media_owner_id = ?", ownerID).
		Order("show_list_rank asc, id asc").
		Find(&medias).Error
	if err != nil {
		return nil, err
	}
	return medias, nil
}

func (r *MediaRepository) ListImageNames(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&model.Image{}).Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}

// Remove 在单个事务内删除计划中的全部实体。
func (r *MediaRepository) Remove(ctx context.Context, plan RemovalPlan) error {
	if plan.Empty() {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return RemoveInTx(tx, plan)
	})
}

// RemoveInTx 在调用方的事务中执行删除。
// 媒体来源与媒体依赖外键级联，这里仍显式删除以保证各数据库驱动行为一致。
func RemoveInTx(tx *gorm.DB, plan RemovalPlan) error {
	if len(plan.ImageIDs) > 0 || len(plan.VideoIDs) > 0 {
		var sourceIDs []uint
		query := tx.Model(&model.MediaSource{})
		switch {
		case len(plan.ImageIDs) > 0 && len(plan.VideoIDs) > 0:
			query = query.Where("image_id IN ? OR video_id IN ?", plan.ImageIDs, plan.VideoIDs)
		case len(plan.ImageIDs) > 0:
			query = query.Where("image_id IN ?", plan.ImageIDs)
		default:
			query = query.Where("video_id IN ?", plan.VideoIDs)
		}
		if err := query.Pluck("id", &sourceIDs).Error; err != nil {
			return err
		}

		if len(sourceIDs) > 0 {
			if err := tx.Where("media_source_id IN ?", sourceIDs).Delete(&model.Media{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", sourceIDs).Delete(&model.MediaSource{}).Error; err != nil {
				return err
			}
		}
		if len(plan.ImageIDs) > 0 {
			if err := tx.Where("id IN ?", plan.ImageIDs).Delete(&model.Image{}).Error; err != nil {
				return err
			}
		}
		if len(plan.VideoIDs) > 0 {
			if err := tx.Where("id IN ?", plan.VideoIDs).Delete(&model.Video{}).Error; err != nil {
				return err
			}
		}
	}

	if plan.ArticleID != 0 {
		if err := tx.Delete(&model.Article{}, plan.ArticleID).Error; err != nil {
			return err
		}
	}
	if plan.OwnerID != 0 {
		if err := removeOwner(tx, plan.OwnerID); err != nil {
			return err
		}
	}
	return nil
}

// removeOwner 仅删除空的媒体持有者。
func removeOwner(tx *gorm.DB, ownerID uint) error {
	var count int64
	if err := tx.Model(&model.Media{}).Where("media_owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return model.ErrOwnerNotEmpty
	}
	return tx.Delete(&model.MediaOwner{}, ownerID).Error
}

// RenameImages 单次事务更新图片标识符。
func (r *MediaRepository) RenameImages(ctx context.Context, names map[uint]string) error {
	if len(names) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, name := range names {
			res := tx.Model(&model.Image{}).Where("id = ?", id).Update("name", name)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("image %d: %w", id, gorm.ErrRecordNotFound)
			}
		}
		return nil
	})
}
