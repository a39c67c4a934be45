package dto

import "mime/multipart"

// CropRect 客户端确认的裁剪区域（原图像素坐标）。
type CropRect struct {
	X      int `json:"x" form:"crop_x" validate:"gte=0"`
	Y      int `json:"y" form:"crop_y" validate:"gte=0"`
	Width  int `json:"width" form:"crop_w" validate:"gte=0"`
	Height int `json:"height" form:"crop_h" validate:"gte=0"`
}

func (r CropRect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ImageDescriptor 提交的单张图片。Identifier 为空或带临时前缀表示新图片；
// 新图片必须携带临时标识符或上传文件之一。
type ImageDescriptor struct {
	Identifier  string                `json:"identifier" validate:"omitempty,max=255"`
	Description string                `json:"description" validate:"max=255"`
	Rank        int                   `json:"rank" validate:"gte=1"`
	IsMain      bool                  `json:"is_main"`
	File        *multipart.FileHeader `json:"-"`
	Crop        *CropRect             `json:"-"`
}

// VideoDescriptor 提交的单个视频。Identifier 为空表示新视频。
type VideoDescriptor struct {
	Identifier  string `json:"identifier" validate:"omitempty,max=255"`
	URL         string `json:"url" validate:"required,url,max=512"`
	Description string `json:"description" validate:"max=255"`
	Rank        int    `json:"rank" validate:"gte=1"`
}

type StageResponse struct {
	Identifier string `json:"identifier"`
	URL        string `json:"url"`
}

// ImageView 一张逻辑图片，Versions 以媒体类型为键给出各版本地址。
type ImageView struct {
	Identifier  string            `json:"identifier"`
	Description string            `json:"description"`
	Rank        int               `json:"rank"`
	IsMain      bool              `json:"is_main"`
	Versions    map[string]string `json:"versions"`
}

type VideoView struct {
	Identifier  string `json:"identifier"`
	Provider    string `json:"provider"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Rank        int    `json:"rank"`
}

type Gallery struct {
	Images []ImageView `json:"images"`
	Videos []VideoView `json:"videos"`
}

// StageRequest 暂存上传请求。
type StageRequest struct {
	File *multipart.FileHeader
	Crop *CropRect
}
