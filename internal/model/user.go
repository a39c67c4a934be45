package model

import (
	"time"
)

// User 文章作者。头像通过 MediaOwner 关联（与文章共用同一套媒体模型）。
type User struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Username     string      `json:"username" gorm:"unique;not null"`
	MediaOwnerID *uint       `json:"-" gorm:"uniqueIndex"`
	MediaOwner   *MediaOwner `json:"-" gorm:"foreignKey:MediaOwnerID;constraint:OnDelete:SET NULL;"`
}
