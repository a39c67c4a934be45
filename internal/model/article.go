package model

import "time"

// Article 技巧文章，持有唯一的 MediaOwner。
type Article struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Name         string      `json:"name" gorm:"not null;unique;size:255"`
	Slug         string      `json:"slug" gorm:"not null;unique;size:255"`
	Description  string      `json:"description" gorm:"type:text"`
	Group        string      `json:"group" gorm:"column:trick_group;size:64;index"`
	IsPublished  bool        `json:"is_published" gorm:"not null;default:false"`
	CreatorID    uint        `json:"creator_id" gorm:"not null;index"`
	MediaOwnerID uint        `json:"-" gorm:"not null;uniqueIndex"`
	MediaOwner   *MediaOwner `json:"media_owner,omitempty" gorm:"foreignKey:MediaOwnerID;constraint:OnDelete:RESTRICT;"`
}
