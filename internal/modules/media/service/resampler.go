package service

import (
	"context"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// Resizer 把 big 版本重采样为指定尺寸。
type Resizer interface {
	Resize(ctx context.Context, src io.Reader, format string, width, height int, dst io.Writer) error
}

// ImagingResizer 使用 Lanczos 滤波居中填充到目标尺寸。
type ImagingResizer struct {
	JPEGQuality int
}

func NewImagingResizer() *ImagingResizer {
	return &ImagingResizer{JPEGQuality: 85}
}

func (r *ImagingResizer) Resize(ctx context.Context, src io.Reader, format string, width, height int, dst io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encFormat, err := imaging.FormatFromExtension(format)
	if err != nil {
		return fmt.Errorf("unsupported image format %q: %w", format, err)
	}
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	out := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	return imaging.Encode(dst, out, encFormat, imaging.JPEGQuality(r.JPEGQuality))
}
