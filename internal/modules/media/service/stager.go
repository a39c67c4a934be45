package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"mime/multipart"
	"path/filepath"
	"strings"

	"snowtricks-server/internal/modules/media/dto"
	"snowtricks-server/internal/modules/media/naming"
	platformservice "snowtricks-server/internal/platform/service"
	"snowtricks-server/internal/storage"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// 允许的扩展名及其对应的内容类型，扩展名统一为存储格式
var allowedImageTypes = map[string]struct {
	format string
	mime   string
}{
	".jpg":  {format: "jpg", mime: "image/jpeg"},
	".jpeg": {format: "jpg", mime: "image/jpeg"},
	".png":  {format: "png", mime: "image/png"},
	".gif":  {format: "gif", mime: "image/gif"},
}

// Stager 把上传的原图按裁剪区域处理为临时 big 版本，等待文章保存时确认。
type Stager struct {
	files    storage.FileStore
	tempDir  string
	maxBytes int64
}

func NewStager(files storage.FileStore, tempDir string, maxUploadMB int) *Stager {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &Stager{files: files, tempDir: tempDir, maxBytes: int64(maxUploadMB) * 1024 * 1024}
}

// StagedFile 暂存结果。
type StagedFile struct {
	Identifier string
	FileName   string
	Size       int64
}

// validate 检查大小、扩展名与文件内容，返回存储格式。
func (s *Stager) validate(file *multipart.FileHeader) (string, error) {
	if file.Size > s.maxBytes {
		return "", platformservice.NewValidationError(fmt.Sprintf("文件大小不能超过 %dMB", s.maxBytes/1024/1024))
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed, ok := allowedImageTypes[ext]
	if !ok {
		return "", platformservice.NewValidationError(fmt.Sprintf("不支持的文件类型: %s", ext))
	}

	src, err := file.Open()
	if err != nil {
		return "", platformservice.NewValidationError("无法打开上传的文件")
	}
	defer func() { _ = src.Close() }()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", platformservice.NewValidationError("读取文件内容失败")
	}
	if !mtype.Is(allowed.mime) {
		return "", platformservice.NewValidationError("文件内容与扩展名不匹配")
	}
	return allowed.format, nil
}

// Stage 校验、裁剪并缩放为 1600x900，写入临时目录。
func (s *Stager) Stage(ctx context.Context, file *multipart.FileHeader, crop *dto.CropRect) (*StagedFile, error) {
	if file == nil {
		return nil, platformservice.NewValidationError("请选择文件")
	}
	format, err := s.validate(file)
	if err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, platformservice.NewValidationError("无法打开上传的文件")
	}
	defer func() { _ = src.Close() }()

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, platformservice.NewValidationError("图片解析失败")
	}

	big := naming.BigFormat
	cropped := imaging.Crop(img, cropRectangle(img.Bounds(), crop, big.Width, big.Height))
	resized := imaging.Resize(cropped, big.Width, big.Height, imaging.Lanczos)

	encFormat, err := imaging.FormatFromExtension(format)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, encFormat, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode staged image: %w", err)
	}

	id := naming.TemporaryIdentifier(naming.NewToken())
	name := id + "." + format
	n, err := s.files.Write(ctx, s.tempDir, name, &buf)
	if err != nil {
		return nil, fmt.Errorf("write staged image: %w", err)
	}
	return &StagedFile{Identifier: id, FileName: name, Size: n}, nil
}

// cropRectangle 把客户端裁剪区域限制在图片范围内；区域为空时取居中的最大目标比例区域。
func cropRectangle(bounds image.Rectangle, crop *dto.CropRect, ratioW, ratioH int) image.Rectangle {
	if crop != nil && !crop.Empty() {
		r := image.Rect(crop.X, crop.Y, crop.X+crop.Width, crop.Y+crop.Height).Add(bounds.Min)
		r = r.Intersect(bounds)
		if !r.Empty() {
			return r
		}
	}

	w, h := bounds.Dx(), bounds.Dy()
	if w*ratioH > h*ratioW {
		w = h * ratioW / ratioH
	} else {
		h = w * ratioH / ratioW
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x := bounds.Min.X + (bounds.Dx()-w)/2
	y := bounds.Min.Y + (bounds.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}
