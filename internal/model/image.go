package model

import "time"

// Image 物理图片文件的元数据。Name 为不含扩展名的标识符，
// 同一张逻辑图片的 big/normal/thumbnail 三行共享同一个版本组键。
type Image struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"name" gorm:"not null;unique;size:255"`
	Format      string    `json:"format" gorm:"not null;size:16"`
	Size        int64     `json:"size" gorm:"not null"`
	Description string    `json:"description" gorm:"size:255"`
}

// FileName 返回磁盘上的文件名。
func (i Image) FileName() string {
	return i.Name + "." + i.Format
}

// Video 外部视频。只保存地址，不落盘。
type Video struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"name" gorm:"not null;unique;size:255"`
	URL         string    `json:"url" gorm:"not null;size:512"`
	Description string    `json:"description" gorm:"size:255"`
}
