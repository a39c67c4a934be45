package repo

import (
	"context"

	"snowtricks-server/internal/model"

	"gorm.io/gorm"
)

// MediaStore 媒体聚合的持久化接口。创建类方法逐行写入（不包事务），
// 删除与批量更新在单个事务内完成。
type MediaStore interface {
	CreateOwner(ctx context.Context) (*model.MediaOwner, error)
	CreateImage(ctx context.Context, image *model.Image) error
	CreateVideo(ctx context.Context, video *model.Video) error
	CreateSource(ctx context.Context, source *model.MediaSource) error
	CreateMedia(ctx context.Context, media *model.Media) error
	AttachToOwner(ctx context.Context, mediaID, ownerID uint) error

	ListByOwner(ctx context.Context, ownerID uint) ([]model.Media, error)
	ListImageNames(ctx context.Context) (map[string]struct{}, error)

	Remove(ctx context.Context, plan RemovalPlan) error
	Commit(ctx context.Context, plan CommitPlan) error
	RenameImages(ctx context.Context, names map[uint]string) error
}

func NewMediaRepository(db *gorm.DB) MediaStore {
	return &MediaRepository{db: db}
}
