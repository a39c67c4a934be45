package dto

import (
	"time"

	mediadto "snowtricks-server/internal/modules/media/dto"
)

type PaginationRequest struct {
	Page     int
	PageSize int
}

type TrickListRequest struct {
	PaginationRequest
	Group string
	// OnlyPublished 为 false 时包含草稿，仅对作者本人开放
	OnlyPublished bool
}

// SaveTrickRequest 创建与更新共用的提交内容。Images/Videos 为完整集合，未提交的旧媒体会被删除。
type SaveTrickRequest struct {
	Name        string                     `json:"name" binding:"required,max=255"`
	Description string                     `json:"description" binding:"required"`
	Group       string                     `json:"group" binding:"max=64"`
	IsPublished bool                       `json:"is_published"`
	Images      []mediadto.ImageDescriptor `json:"images"`
	Videos      []mediadto.VideoDescriptor `json:"videos"`
}

type TrickResponse struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	Group       string           `json:"group"`
	IsPublished bool             `json:"is_published"`
	CreatorID   uint             `json:"creator_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Media       mediadto.Gallery `json:"media"`
}

type TrickSummary struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Group       string    `json:"group"`
	IsPublished bool      `json:"is_published"`
	Thumbnail   string    `json:"thumbnail"`
	UpdatedAt   time.Time `json:"updated_at"`
}
