package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snowtricks-server/internal/model"
	"snowtricks-server/internal/modules/media/dto"
	"snowtricks-server/internal/modules/media/naming"
	"snowtricks-server/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func readFiles(t *testing.T, dir string, names []string) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		out[name] = data
	}
	return out
}

// 测试内容：文章从 old-trick 改名为 new-trick 后，三个版本的标识符与文件一致改名，内容不变。
func TestExecute_RenameCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := env.createArticle(t, "Old Trick", "old-trick", []dto.ImageDescriptor{{Identifier: env.stage(t), Rank: 1}}, nil)
	before, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	oldFiles := env.listFiles(t, env.dirs.Trick)
	contents := readFiles(t, env.dirs.Trick, oldFiles)
	big := imageOf(onlyBig(t, before))
	token, ok := naming.TokenOf(big.Name)
	require.True(t, ok)

	op, err := env.svc.Plan(ctx, PlanInput{
		Kind:         KindUpdate,
		ArticleID:    article.ID,
		OwnerID:      article.MediaOwnerID,
		Slug:         "new-trick",
		PreviousSlug: "old-trick",
		Images:       []dto.ImageDescriptor{{Identifier: big.Name, Rank: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, env.svc.Execute(ctx, op, Hooks{}))

	after, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	require.Len(t, after, naming.ImageVersionCount)
	for _, m := range after {
		img := imageOf(m)
		f, ok := naming.FormatForType(m.Type)
		require.True(t, ok)
		assert.Equal(t, naming.BuildIdentifier("new-trick", token, f), img.Name)
		assert.True(t, fileExists(env.dirs.Trick, img.FileName()))
	}

	for _, name := range oldFiles {
		assert.False(t, fileExists(env.dirs.Trick, name), name)
		id, ext := naming.StripExtension(name)
		newID, ok := naming.Rename(id, "new-trick")
		require.True(t, ok)
		data, err := os.ReadFile(filepath.Join(env.dirs.Trick, newID+"."+ext))
		require.NoError(t, err)
		assert.Equal(t, contents[name], data)
	}
}

// 测试内容：验证单个标识符的改名规则（对应 old-trick-ab12-1600x900.jpg）。
func TestRenameCascade_IdentifierScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner, err := env.store.CreateOwner(ctx)
	require.NoError(t, err)
	for _, f := range naming.Formats() {
		id := naming.BuildIdentifier("old-trick", "ab12", f)
		writeFile(t, env.dirs.Trick, id+".jpg")
		img := &model.Image{Name: id, Format: "jpg", Size: 1}
		require.NoError(t, env.store.CreateImage(ctx, img))
		src := &model.MediaSource{ImageID: &img.ID}
		require.NoError(t, env.store.CreateSource(ctx, src))
		media := &model.Media{MediaSourceID: src.ID, Type: f.Type, ShowListRank: 1}
		require.NoError(t, env.store.CreateMedia(ctx, media))
		require.NoError(t, env.store.AttachToOwner(ctx, media.ID, owner.ID))
	}

	report := env.svc.RenameCascade(ctx, owner.ID, "new-trick")
	assert.Empty(t, report.Failed)
	assert.Equal(t, "new-trick-ab12-1600x900", report.Renamed["old-trick-ab12-1600x900"])
	assert.Len(t, report.Renamed, naming.ImageVersionCount)

	assert.True(t, fileExists(env.dirs.Trick, "new-trick-ab12-1600x900.jpg"))
	assert.True(t, fileExists(env.dirs.Trick, "new-trick-ab12-880x495.jpg"))
	assert.True(t, fileExists(env.dirs.Trick, "new-trick-ab12-400x225.jpg"))
	assert.False(t, fileExists(env.dirs.Trick, "old-trick-ab12-1600x900.jpg"))

	var img model.Image
	require.NoError(t, env.db.Where("name = ?", "new-trick-ab12-1600x900").First(&img).Error)
}

// 测试内容：验证标识符写入失败时已改名的文件被改回，文章数据不受影响。
func TestRenameCascade_RevertsFilesWhenFlushFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := env.createArticle(t, "Old Trick", "old-trick", []dto.ImageDescriptor{{Identifier: env.stage(t), Rank: 1}}, nil)
	oldFiles := env.listFiles(t, env.dirs.Trick)

	err := env.db.Callback().Update().Before("gorm:update").Register("test:fail_rename", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Name == "Image" {
			_ = tx.AddError(errInjected)
		}
	})
	require.NoError(t, err)

	report := env.svc.RenameCascade(ctx, article.MediaOwnerID, "new-trick")
	assert.Empty(t, report.Renamed)
	assert.Len(t, report.Failed, naming.ImageVersionCount)
	assert.ElementsMatch(t, oldFiles, env.listFiles(t, env.dirs.Trick))
}

// renameFailingStore 对源文件名包含 failOn 的改名返回错误，其余操作交给内部实现。
type renameFailingStore struct {
	storage.FileStore
	failOn string
}

func (s *renameFailingStore) Rename(ctx context.Context, srcDir, srcName, dstDir, dstName string) error {
	if strings.Contains(srcName, s.failOn) {
		return errInjected
	}
	return s.FileStore.Rename(ctx, srcDir, srcName, dstDir, dstName)
}

// 测试内容：某张图片的 normal 版本改名失败时，该图片三个版本全部保留旧名，其他图片正常改名；之后原样提交不会产生重复媒体。
func TestRenameCascade_GroupKeptWhenOneVersionFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := env.createArticle(t, "Old Trick", "old-trick", []dto.ImageDescriptor{
		{Identifier: env.stage(t), Rank: 1},
		{Identifier: env.stage(t), Rank: 2},
	}, nil)
	before, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	groups, _ := GroupMedia(before)
	require.Len(t, groups, 2)
	broken, healthy := groups[0], groups[1]

	files := &renameFailingStore{FileStore: storage.NewLocalStore(), failOn: broken.Key + "-880x495"}
	env.svc = New(env.svc.AppService, env.store, files, env.resizer)

	report := env.svc.RenameCascade(ctx, article.MediaOwnerID, "new-trick")
	assert.Len(t, report.Failed, naming.ImageVersionCount)
	assert.Len(t, report.Renamed, naming.ImageVersionCount)
	for _, v := range broken.Versions {
		img := imageOf(v)
		assert.Contains(t, report.Failed, img.Name)
		assert.True(t, fileExists(env.dirs.Trick, img.FileName()), img.FileName())
	}
	for _, v := range healthy.Versions {
		img := imageOf(v)
		newID, ok := report.Renamed[img.Name]
		require.True(t, ok, img.Name)
		assert.True(t, strings.HasPrefix(newID, "new-trick-"))
		assert.True(t, fileExists(env.dirs.Trick, newID+"."+img.Format))
		assert.False(t, fileExists(env.dirs.Trick, img.FileName()))
	}

	after, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	regrouped, _ := GroupMedia(after)
	require.Len(t, regrouped, 2)
	for _, g := range regrouped {
		assert.Len(t, g.Versions, naming.ImageVersionCount)
	}

	op, err := env.svc.Plan(ctx, PlanInput{
		Kind:         KindUpdate,
		ArticleID:    article.ID,
		OwnerID:      article.MediaOwnerID,
		Slug:         "new-trick",
		PreviousSlug: "new-trick",
		Images: []dto.ImageDescriptor{
			{Identifier: imageOf(regrouped[0].Big()).Name, Rank: 1},
			{Identifier: imageOf(regrouped[1].Big()).Name, Rank: 2},
		},
	})
	require.NoError(t, err)
	require.NoError(t, env.svc.Execute(ctx, op, Hooks{}))
	assert.Equal(t, int64(2*naming.ImageVersionCount), env.count(t, &model.Media{}))
}

// onlyBig 返回唯一一张逻辑图片的 big 版本。
func onlyBig(t *testing.T, medias []model.Media) model.Media {
	t.Helper()
	groups, _ := GroupMedia(medias)
	require.Len(t, groups, 1)
	return groups[0].Big()
}
