package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"snowtricks-server/internal/config"
	"snowtricks-server/internal/model"
	"snowtricks-server/internal/modules/media/dto"
	"snowtricks-server/internal/modules/media/repo"
	platformservice "snowtricks-server/internal/platform/service"
	"snowtricks-server/internal/storage"
	"snowtricks-server/internal/testutils"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var errInjected = errors.New("injected failure")

// countingResizer 在第 failAt 次调用时失败（从 1 开始，0 表示从不失败）。
type countingResizer struct {
	inner  Resizer
	calls  atomic.Int32
	failAt int32
}

func (r *countingResizer) Resize(ctx context.Context, src io.Reader, format string, w, h int, dst io.Writer) error {
	n := r.calls.Add(1)
	if r.failAt > 0 && n == r.failAt {
		return errInjected
	}
	return r.inner.Resize(ctx, src, format, w, h, dst)
}

type testEnv struct {
	svc     *Service
	db      *gorm.DB
	store   repo.MediaStore
	resizer *countingResizer
	dirs    Dirs
	creator *model.User
}

func testConfig(root string) config.Config {
	return config.Config{
		Upload: config.UploadConfig{
			Driver:        "local",
			TrickPath:     filepath.Join(root, "tricks"),
			AvatarPath:    filepath.Join(root, "avatars"),
			TempPath:      filepath.Join(root, "tmp"),
			URLPrefix:     "/media/",
			TempTTL:       time.Hour,
			MaxUploadSize: 10,
			PurgeLock:     filepath.Join(root, ".purge.lock"),
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := testutils.SetupDB(t)
	cfg := testConfig(t.TempDir())

	resizer := &countingResizer{inner: NewImagingResizer()}
	store := repo.NewMediaRepository(gdb)
	appService := platformservice.NewAppServiceWithConfig(zaptest.NewLogger(t), cfg)
	svc := New(appService, store, storage.NewLocalStore(), resizer)

	return &testEnv{
		svc:     svc,
		db:      gdb,
		store:   store,
		resizer: resizer,
		dirs:    svc.Dirs(),
		creator: testutils.CreateUser(t, gdb, "author"),
	}
}

// stage 暂存一张 PNG，返回临时标识符。
func (e *testEnv) stage(t *testing.T) string {
	t.Helper()
	fh := testutils.FileHeader(t, "shot.png", testutils.PNG(t, 320, 180))
	resp, err := e.svc.StageUpload(context.Background(), dto.StageRequest{File: fh})
	require.NoError(t, err)
	return resp.Identifier
}

// articleHooks 创建文章与媒体持有者，模拟文章层的 Prepare 钩子。
func (e *testEnv) articleHooks(name, slug string) (Hooks, *model.Article) {
	article := &model.Article{Name: name, Slug: slug, CreatorID: e.creator.ID}
	hooks := Hooks{
		Prepare: func(ctx context.Context) (uint, uint, error) {
			owner, err := e.store.CreateOwner(ctx)
			if err != nil {
				return 0, 0, err
			}
			article.MediaOwnerID = owner.ID
			if err := e.db.WithContext(ctx).Create(article).Error; err != nil {
				return 0, 0, err
			}
			return article.ID, owner.ID, nil
		},
	}
	return hooks, article
}

// createArticle 通过完整流水线创建一篇带媒体的文章。
func (e *testEnv) createArticle(t *testing.T, name, slug string, images []dto.ImageDescriptor, videos []dto.VideoDescriptor) *model.Article {
	t.Helper()
	ctx := context.Background()
	op, err := e.svc.Plan(ctx, PlanInput{Kind: KindCreate, CreatorID: e.creator.ID, Slug: slug, Images: images, Videos: videos})
	require.NoError(t, err)
	hooks, article := e.articleHooks(name, slug)
	require.NoError(t, e.svc.Execute(ctx, op, hooks))
	return article
}

func (e *testEnv) listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

func (e *testEnv) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

func fileExists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

// failCreatesOf 对指定模型的第 nth 次插入注入失败（nth 为 0 时每次都失败）。
func failCreatesOf(t *testing.T, gdb *gorm.DB, schemaName string, nth int32) {
	t.Helper()
	var seen atomic.Int32
	name := "test:fail_" + schemaName
	err := gdb.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Schema == nil || tx.Statement.Schema.Name != schemaName {
			return
		}
		if n := seen.Add(1); nth == 0 || n == nth {
			_ = tx.AddError(errInjected)
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = gdb.Callback().Create().Remove(name) })
}
