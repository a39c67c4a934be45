package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// LocalStore 本地磁盘实现，dir 为上传目录路径。
type LocalStore struct{}

func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

func (s *LocalStore) Open(_ context.Context, dir, name string) (io.ReadCloser, error) {
	p, err := secureJoin(dir, name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *LocalStore) Write(_ context.Context, dir, name string, r io.Reader) (int64, error) {
	if err := ensureDir(dir); err != nil {
		return 0, err
	}
	dst, err := secureJoin(dir, name)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, copyErr := io.Copy(out, r)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		// 写入失败时不留下半截文件
		_ = os.Remove(dst)
		return 0, errors.Join(copyErr, closeErr)
	}
	return n, nil
}

func (s *LocalStore) Rename(_ context.Context, srcDir, srcName, dstDir, dstName string) error {
	src, err := secureJoin(srcDir, srcName)
	if err != nil {
		return err
	}
	if err := ensureDir(dstDir); err != nil {
		return err
	}
	dst, err := secureJoin(dstDir, dstName)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("目标文件已存在: %s", dstName)
	}

	if err := os.Rename(src, dst); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return err
		}
		// 跨设备时回退为复制后删除
		if err := copyThenRemove(src, dst); err != nil {
			return err
		}
	}
	// 修改时间记为移动时刻，孤儿清理的宽限期从这里开始计算
	now := time.Now()
	return os.Chtimes(dst, now, now)
}

func copyThenRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

func (s *LocalStore) Remove(_ context.Context, dir, name string) error {
	p, err := secureJoin(dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) Stat(_ context.Context, dir, name string) (FileInfo, error) {
	p, err := secureJoin(dir, name)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Name: info.Name(), Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}, nil
}

func (s *LocalStore) List(_ context.Context, dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			// 列目录与 stat 之间文件可能已被删除
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime(), IsDir: e.IsDir()})
	}
	return files, nil
}

func ensureDir(dir string) error {
	if err := ensureNotSymlink(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// secureJoin 把文件名拼接到目录下，拒绝绝对路径、越界与符号链接。
func secureJoin(dir, name string) (string, error) {
	baseAbs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("路径解析失败: %w", err)
	}
	cleanName := filepath.Clean(name)
	if cleanName == "." || filepath.IsAbs(cleanName) {
		return "", fmt.Errorf("非法文件名: %q", name)
	}

	target := filepath.Join(baseAbs, cleanName)
	rel, err := filepath.Rel(baseAbs, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("非法路径: 目标超出上传目录")
	}

	// 从目标逐级回溯到目录本身，已存在的节点都不能是符号链接
	for current := target; ; current = filepath.Dir(current) {
		if err := ensureNotSymlink(current); err != nil {
			return "", err
		}
		if samePath(current, baseAbs) || filepath.Dir(current) == current {
			break
		}
	}
	return target, nil
}

func ensureNotSymlink(p string) error {
	info, err := os.Lstat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("检查路径失败: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("检测到符号链接穿透风险: %s", p)
	}
	return nil
}

func samePath(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
