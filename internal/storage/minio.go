package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"snowtricks-server/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioStore 对象存储实现。目录映射为对象键前缀。
type MinioStore struct {
	client *minio.Client
	bucket string
	log    *zap.Logger
}

func NewMinioStore(cfg config.MinioConfig, log *zap.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 minio 客户端失败: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, log: log.Named("minio")}, nil
}

// EnsureBucket 存储桶不存在时创建。
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	s.log.Info("creating bucket", zap.String("bucket", s.bucket))
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

func dirPrefix(dir string) string {
	p := strings.Trim(path.Clean(filepath.ToSlash(dir)), "/")
	if p == "." {
		return ""
	}
	return p
}

func objectKey(dir, name string) string {
	prefix := dirPrefix(dir)
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *MinioStore) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	key := objectKey(dir, name)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotExist)
		}
		return nil, err
	}
	return obj, nil
}

func (s *MinioStore) Write(ctx context.Context, dir, name string, r io.Reader) (int64, error) {
	info, err := s.client.PutObject(ctx, s.bucket, objectKey(dir, name), r, -1, minio.PutObjectOptions{})
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (s *MinioStore) Rename(ctx context.Context, srcDir, srcName, dstDir, dstName string) error {
	src := objectKey(srcDir, srcName)
	dst := objectKey(dstDir, dstName)

	if _, err := s.client.StatObject(ctx, s.bucket, dst, minio.StatObjectOptions{}); err == nil {
		return fmt.Errorf("目标文件已存在: %s", dstName)
	}

	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: s.bucket, Object: src},
	)
	if err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("%s: %w", src, ErrNotExist)
		}
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, src, minio.RemoveObjectOptions{}); err != nil {
		s.log.Warn("failed to remove source object after copy", zap.String("key", src), zap.Error(err))
	}
	return nil
}

func (s *MinioStore) Remove(ctx context.Context, dir, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey(dir, name), minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return err
	}
	return nil
}

func (s *MinioStore) Stat(ctx context.Context, dir, name string) (FileInfo, error) {
	key := objectKey(dir, name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return FileInfo{}, fmt.Errorf("%s: %w", key, ErrNotExist)
		}
		return FileInfo{}, err
	}
	return FileInfo{Name: name, Size: info.Size, ModTime: info.LastModified}, nil
}

func (s *MinioStore) List(ctx context.Context, dir string) ([]FileInfo, error) {
	prefix := dirPrefix(dir)
	if prefix != "" {
		prefix += "/"
	}

	var files []FileInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		isDir := strings.HasSuffix(name, "/")
		files = append(files, FileInfo{
			Name:    strings.TrimSuffix(name, "/"),
			Size:    obj.Size,
			ModTime: obj.LastModified,
			IsDir:   isDir,
		})
	}
	return files, nil
}
