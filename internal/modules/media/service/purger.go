package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"snowtricks-server/internal/modules/media/naming"
	"snowtricks-server/internal/modules/media/repo"
	"snowtricks-server/internal/storage"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// PurgeReport 一次清理的结果。Skipped 为宽限期内刚写入、暂不处理的文件。
type PurgeReport struct {
	Dir     string
	Scanned int
	Deleted []string
	Failed  []string
	Skipped []string
}

// Purger 删除上传目录中没有对应图片记录的文件。
// 进程内用互斥锁、进程间用文件锁保证同一时刻只有一个清理在运行。
type Purger struct {
	store  repo.MediaStore
	files  storage.FileStore
	lock   *flock.Flock
	mu     sync.Mutex
	minAge time.Duration
	now    func() time.Time
	log    *zap.Logger
}

func NewPurger(store repo.MediaStore, files storage.FileStore, lockPath string, minAge time.Duration, log *zap.Logger) *Purger {
	p := &Purger{
		store:  store,
		files:  files,
		minAge: minAge,
		now:    time.Now,
		log:    log.Named("purger"),
	}
	if lockPath != "" {
		p.lock = flock.New(lockPath)
	}
	return p
}

// withLock wait 为 false 时拿不到锁立即返回 ErrPurgeBusy。
func (p *Purger) withLock(ctx context.Context, wait bool, fn func() error) error {
	if wait {
		p.mu.Lock()
	} else if !p.mu.TryLock() {
		return ErrPurgeBusy
	}
	defer p.mu.Unlock()

	if p.lock == nil {
		return fn()
	}
	if err := os.MkdirAll(filepath.Dir(p.lock.Path()), 0755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	var (
		locked bool
		err    error
	)
	if wait {
		locked, err = p.lock.TryLockContext(ctx, 200*time.Millisecond)
	} else {
		locked, err = p.lock.TryLock()
	}
	if err != nil {
		return fmt.Errorf("acquire purge lock: %w", err)
	}
	if !locked {
		return ErrPurgeBusy
	}
	defer func() {
		if err := p.lock.Unlock(); err != nil {
			p.log.Warn("failed to release purge lock", zap.Error(err))
		}
	}()
	return fn()
}

// candidates 列出目录中的普通文件，忽略子目录与点文件。
func (p *Purger) candidates(ctx context.Context, dir string) ([]storage.FileInfo, error) {
	files, err := p.files.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	out := files[:0]
	for _, f := range files {
		if f.IsDir || strings.HasPrefix(f.Name, ".") {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (p *Purger) tooFresh(f storage.FileInfo) bool {
	return p.minAge > 0 && p.now().Sub(f.ModTime) < p.minAge
}

// FindOrphans 返回目录中没有对应图片记录的文件（不删除）。
func (p *Purger) FindOrphans(ctx context.Context, dir string) (PurgeReport, []storage.FileInfo, error) {
	report := PurgeReport{Dir: dir}
	files, err := p.candidates(ctx, dir)
	if err != nil {
		return report, nil, err
	}
	names, err := p.store.ListImageNames(ctx)
	if err != nil {
		return report, nil, err
	}

	var orphans []storage.FileInfo
	for _, f := range files {
		report.Scanned++
		id, _ := naming.StripExtension(f.Name)
		if _, ok := names[id]; ok {
			continue
		}
		if p.tooFresh(f) {
			report.Skipped = append(report.Skipped, f.Name)
			continue
		}
		orphans = append(orphans, f)
	}
	return report, orphans, nil
}

func (p *Purger) purge(ctx context.Context, dir string) (PurgeReport, error) {
	report, orphans, err := p.FindOrphans(ctx, dir)
	if err != nil {
		return report, err
	}
	for _, f := range orphans {
		if err := p.files.Remove(ctx, dir, f.Name); err != nil {
			p.log.Warn("failed to remove orphan file", zap.String("dir", dir), zap.String("file", f.Name), zap.Error(err))
			report.Failed = append(report.Failed, f.Name)
			continue
		}
		report.Deleted = append(report.Deleted, f.Name)
	}
	if len(report.Deleted) > 0 {
		p.log.Info("orphan files purged", zap.String("dir", dir), zap.Int("deleted", len(report.Deleted)))
	}
	return report, nil
}

// Purge 清理一个目录；已有清理在运行时返回 ErrPurgeBusy。
func (p *Purger) Purge(ctx context.Context, dir string) (PurgeReport, error) {
	var report PurgeReport
	err := p.withLock(ctx, false, func() error {
		var err error
		report, err = p.purge(ctx, dir)
		return err
	})
	return report, err
}

// PurgeDirs 等待锁后依次清理多个目录，dryRun 时只列出孤儿文件。
func (p *Purger) PurgeDirs(ctx context.Context, dirs []string, dryRun bool) ([]PurgeReport, error) {
	var reports []PurgeReport
	err := p.withLock(ctx, true, func() error {
		for _, dir := range dirs {
			if dryRun {
				report, orphans, err := p.FindOrphans(ctx, dir)
				if err != nil {
					return fmt.Errorf("%s: %w", dir, err)
				}
				for _, f := range orphans {
					report.Deleted = append(report.Deleted, f.Name)
				}
				reports = append(reports, report)
				continue
			}
			report, err := p.purge(ctx, dir)
			if err != nil {
				return fmt.Errorf("%s: %w", dir, err)
			}
			reports = append(reports, report)
		}
		return nil
	})
	return reports, err
}

// PurgeStaleTemporary 删除临时目录中超过 olderThan 的暂存文件。
func (p *Purger) PurgeStaleTemporary(ctx context.Context, dir string, olderThan time.Duration) (PurgeReport, error) {
	report := PurgeReport{Dir: dir}
	err := p.withLock(ctx, false, func() error {
		files, err := p.candidates(ctx, dir)
		if err != nil {
			return err
		}
		cutoff := p.now().Add(-olderThan)
		for _, f := range files {
			report.Scanned++
			id, _ := naming.StripExtension(f.Name)
			if !naming.IsTemporary(id) || f.ModTime.After(cutoff) {
				continue
			}
			if err := p.files.Remove(ctx, dir, f.Name); err != nil {
				p.log.Warn("failed to remove stale upload", zap.String("file", f.Name), zap.Error(err))
				report.Failed = append(report.Failed, f.Name)
				continue
			}
			report.Deleted = append(report.Deleted, f.Name)
		}
		return nil
	})
	return report, err
}
