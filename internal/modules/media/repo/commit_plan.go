package repo

import (
	"context"

	"snowtricks-server/internal/model"

	"gorm.io/gorm"
)

// MediaUpdate 匹配成功的媒体在原位更新的字段。
type MediaUpdate struct {
	MediaID uint
	Rank    int
	IsMain  bool
}

type ImageUpdate struct {
	ImageID     uint
	Description string
}

type VideoUpdate struct {
	VideoID     uint
	URL         string
	Type        model.MediaType
	Description string
}

// CommitPlan 终态保存时与文章字段一起写入的媒体变更。
type CommitPlan struct {
	MediaUpdates []MediaUpdate
	ImageUpdates []ImageUpdate
	VideoUpdates []VideoUpdate
	Removal      RemovalPlan
}

// ApplyCommitPlan 在调用方事务中写入全部媒体变更。
func ApplyCommitPlan(tx *gorm.DB, plan CommitPlan) error {
	for _, u := range plan.MediaUpdates {
		err := tx.Model(&model.Media{}).Where("id = ?", u.MediaID).Updates(map[string]any{
			"show_list_rank": u.Rank,
			"is_main":        u.IsMain,
		}).Error
		if err != nil {
			return err
		}
	}
	for _, u := range plan.ImageUpdates {
		if err := tx.Model(&model.Image{}).Where("id = ?", u.ImageID).Update("description", u.Description).Error; err != nil {
			return err
		}
	}
	for _, u := range plan.VideoUpdates {
		err := tx.Model(&model.Video{}).Where("id = ?", u.VideoID).Updates(map[string]any{
			"url":         u.URL,
			"description": u.Description,
		}).Error
		if err != nil {
			return err
		}
		if u.Type == "" {
			continue
		}
		var sourceIDs []uint
		if err := tx.Model(&model.MediaSource{}).Where("video_id = ?", u.VideoID).Pluck("id", &sourceIDs).Error; err != nil {
			return err
		}
		if len(sourceIDs) == 0 {
			continue
		}
		if err := tx.Model(&model.Media{}).Where("media_source_id IN ?", sourceIDs).Update("type", u.Type).Error; err != nil {
			return err
		}
	}
	return RemoveInTx(tx, plan.Removal)
}

// Commit 在独立事务中写入媒体变更，用于不需要同时更新文章字段的场景。
func (r *MediaRepository) Commit(ctx context.Context, plan CommitPlan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ApplyCommitPlan(tx, plan)
	})
}
