// Package storage 抽象上传目录。每一类媒体对应一个目录（文章图片、头像、临时区），
// 目录内的文件名即媒体标识符加扩展名。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"snowtricks-server/internal/config"

	"go.uber.org/zap"
)

// ErrNotExist 文件不存在。
var ErrNotExist = fs.ErrNotExist

type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileStore 上传目录的读写接口。Remove 对不存在的文件返回 nil。
type FileStore interface {
	Open(ctx context.Context, dir, name string) (io.ReadCloser, error)
	Write(ctx context.Context, dir, name string, r io.Reader) (int64, error)
	Rename(ctx context.Context, srcDir, srcName, dstDir, dstName string) error
	Remove(ctx context.Context, dir, name string) error
	Stat(ctx context.Context, dir, name string) (FileInfo, error)
	List(ctx context.Context, dir string) ([]FileInfo, error)
}

// Lookup 在目录中查找以 identifier 为主名的文件（扩展名未知时使用）。
func Lookup(ctx context.Context, store FileStore, dir, identifier string) (FileInfo, error) {
	files, err := store.List(ctx, dir)
	if err != nil {
		return FileInfo{}, err
	}
	for _, f := range files {
		if f.IsDir {
			continue
		}
		if strings.HasPrefix(f.Name, identifier+".") && !strings.Contains(f.Name[len(identifier)+1:], ".") {
			return f, nil
		}
	}
	return FileInfo{}, fmt.Errorf("%s: %w", identifier, ErrNotExist)
}

// New 按 upload.driver 创建存储实现。
func New(cfg config.Config, log *zap.Logger) (FileStore, error) {
	switch cfg.Upload.Driver {
	case "", "local":
		return NewLocalStore(), nil
	case "minio":
		return NewMinioStore(cfg.Minio, log)
	default:
		return nil, errors.New("不支持的存储驱动: " + cfg.Upload.Driver)
	}
}
