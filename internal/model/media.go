package model

import (
	"errors"
	"time"
)

type MediaType string

const (
	MediaTypeTrickBig       MediaType = "trick_big"
	MediaTypeTrickNormal    MediaType = "trick_normal"
	MediaTypeTrickThumbnail MediaType = "trick_thumbnail"
	MediaTypeAvatar         MediaType = "avatar"
	MediaTypeYouTube        MediaType = "youtube"
	MediaTypeVimeo          MediaType = "vimeo"
	MediaTypeDailymotion    MediaType = "dailymotion"
)

func (t MediaType) IsImage() bool {
	switch t {
	case MediaTypeTrickBig, MediaTypeTrickNormal, MediaTypeTrickThumbnail, MediaTypeAvatar:
		return true
	}
	return false
}

func (t MediaType) IsVideo() bool {
	switch t {
	case MediaTypeYouTube, MediaTypeVimeo, MediaTypeDailymotion:
		return true
	}
	return false
}

var (
	ErrOwnerNotEmpty   = errors.New("媒体持有者仍有关联媒体，不能删除")
	ErrSourceAmbiguous = errors.New("媒体来源必须且只能引用图片或视频之一")
)

// MediaOwner 把任意持有实体（文章、用户头像）绑定到一组媒体。
type MediaOwner struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	Medias    []Media   `json:"medias" gorm:"foreignKey:MediaOwnerID;constraint:OnDelete:RESTRICT;"`
}

// Media 一条附件记录。
type Media struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	MediaOwnerID  *uint        `json:"-" gorm:"index"`
	MediaSourceID uint         `json:"-" gorm:"not null;uniqueIndex"`
	MediaSource   *MediaSource `json:"source,omitempty" gorm:"foreignKey:MediaSourceID;constraint:OnDelete:CASCADE;"`
	Type          MediaType    `json:"type" gorm:"not null;size:32;index"`
	IsMain        bool         `json:"is_main" gorm:"not null;default:false"`
	ShowListRank  int          `json:"show_list_rank" gorm:"not null"`
	IsPublished   bool         `json:"is_published" gorm:"not null"`
	CreatorID     uint         `json:"creator_id" gorm:"not null;index"`
}

// MediaSource 绑定 Media 与其具体载荷（图片或视频，二选一）。
type MediaSource struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	ImageID *uint  `json:"-" gorm:"uniqueIndex"`
	Image   *Image `json:"image,omitempty" gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE;"`
	VideoID *uint  `json:"-" gorm:"uniqueIndex"`
	Video   *Video `json:"video,omitempty" gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE;"`
}

func (s MediaSource) Validate() error {
	if (s.ImageID == nil) == (s.VideoID == nil) {
		return ErrSourceAmbiguous
	}
	return nil
}

// All 返回需要迁移的全部模型。
func All() []any {
	return []any{
		&User{},
		&MediaOwner{},
		&Image{},
		&Video{},
		&MediaSource{},
		&Media{},
		&Article{},
	}
}
