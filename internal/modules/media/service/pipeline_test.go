package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"snowtricks-server/internal/model"
	"snowtricks-server/internal/modules/media/dto"
	"snowtricks-server/internal/modules/media/naming"
	"snowtricks-server/internal/modules/media/repo"
	platformservice "snowtricks-server/internal/platform/service"
	"snowtricks-server/internal/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试内容：验证创建文章时每张图片生成三个版本，共享同一个版本组键，文件全部落盘。
func TestExecute_CreateProducesTriplets(t *testing.T) {
	env := newTestEnv(t)

	images := []dto.ImageDescriptor{
		{Identifier: env.stage(t), Description: "first", Rank: 1, IsMain: true},
		{Identifier: env.stage(t), Description: "second", Rank: 2},
	}
	videos := []dto.VideoDescriptor{{URL: ytA, Rank: 1}}
	article := env.createArticle(t, "Old Trick", "old-trick", images, videos)

	medias, err := env.store.ListByOwner(context.Background(), article.MediaOwnerID)
	require.NoError(t, err)
	require.Len(t, medias, 2*naming.ImageVersionCount+1)

	groups, vids := GroupMedia(medias)
	require.Len(t, groups, 2)
	require.Len(t, vids, 1)
	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ", videoOf(vids[0]).URL)

	for _, g := range groups {
		require.Len(t, g.Versions, naming.ImageVersionCount)
		for _, v := range g.Versions {
			img := imageOf(v)
			assert.Equal(t, g.Key, naming.VersionGroupKey(img.Name))
			assert.True(t, fileExists(env.dirs.Trick, img.FileName()), img.FileName())
			f, ok := naming.FormatFromIdentifier(img.Name)
			require.True(t, ok)
			assert.Equal(t, f.Type, v.Type)
		}
	}
	assert.True(t, groups[0].Big().IsMain)
	assert.Empty(t, env.listFiles(t, env.dirs.Temp), "暂存文件应已移入文章目录")
	assert.Len(t, env.listFiles(t, env.dirs.Trick), 2*naming.ImageVersionCount)
}

// 测试内容：验证带上传文件（无临时标识符）的新图片会先暂存再进入流水线。
func TestExecute_CreateFromUploadedFile(t *testing.T) {
	env := newTestEnv(t)
	fh := testutils.FileHeader(t, "shot.png", testutils.PNG(t, 320, 180))

	article := env.createArticle(t, "Method", "method", []dto.ImageDescriptor{{File: fh, Rank: 1}}, nil)

	medias, err := env.store.ListByOwner(context.Background(), article.MediaOwnerID)
	require.NoError(t, err)
	assert.Len(t, medias, naming.ImageVersionCount)
	assert.Empty(t, env.listFiles(t, env.dirs.Temp))
}

// 测试内容：创建 2 张图片与 1 个视频，第二张图片重采样失败后文章、媒体、视频与文件全部不存在。
func TestExecute_CreateRollsBackOnSecondImageResample(t *testing.T) {
	env := newTestEnv(t)
	// 第一张图片重采样两次，第二张图片的第一次重采样失败
	env.resizer.failAt = 3

	images := []dto.ImageDescriptor{
		{Identifier: env.stage(t), Rank: 1},
		{Identifier: env.stage(t), Rank: 2},
	}
	videos := []dto.VideoDescriptor{{URL: ytA, Rank: 1}}

	ctx := context.Background()
	op, err := env.svc.Plan(ctx, PlanInput{Kind: KindCreate, CreatorID: env.creator.ID, Slug: "old-trick", Images: images, Videos: videos})
	require.NoError(t, err)
	hooks, article := env.articleHooks("Old Trick", "old-trick")

	err = env.svc.Execute(ctx, op, hooks)
	require.Error(t, err)
	pe, ok := AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, StageResample, pe.Stage)
	assert.Equal(t, article.ID, pe.ArticleID)
	assert.Contains(t, pe.Item, "image#2")
	assert.ErrorIs(t, err, errInjected)
	assert.NoError(t, pe.Compensation)

	assert.Equal(t, StateTerminated, op.State())
	assert.Equal(t, OutcomeFailure, op.Outcome())

	assert.Zero(t, env.count(t, &model.Article{}))
	assert.Zero(t, env.count(t, &model.MediaOwner{}))
	assert.Zero(t, env.count(t, &model.Media{}))
	assert.Zero(t, env.count(t, &model.MediaSource{}))
	assert.Zero(t, env.count(t, &model.Image{}))
	assert.Zero(t, env.count(t, &model.Video{}))
	assert.Empty(t, env.listFiles(t, env.dirs.Trick))
}

// 测试内容：更新 [A,B] 为 [A(改描述),C(新)]，A 原位更新、B 实体与文件删除、C 新建三个版本。
func TestExecute_UpdateScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := env.createArticle(t, "Old Trick", "old-trick", []dto.ImageDescriptor{
		{Identifier: env.stage(t), Description: "a", Rank: 1, IsMain: true},
		{Identifier: env.stage(t), Description: "b", Rank: 2},
	}, nil)

	before, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	groups, _ := GroupMedia(before)
	require.Len(t, groups, 2)
	groupA, groupB := groups[0], groups[1]

	cID := env.stage(t)
	op, err := env.svc.Plan(ctx, PlanInput{
		Kind:         KindUpdate,
		ArticleID:    article.ID,
		OwnerID:      article.MediaOwnerID,
		CreatorID:    env.creator.ID,
		Slug:         "old-trick",
		PreviousSlug: "old-trick",
		Images: []dto.ImageDescriptor{
			{Identifier: imageOf(groupA.Big()).Name, Description: "a updated", Rank: 2},
			{Identifier: cID, Description: "c", Rank: 1, IsMain: true},
		},
	})
	require.NoError(t, err)
	require.NoError(t, env.svc.Execute(ctx, op, Hooks{}))
	assert.Equal(t, OutcomeSuccess, op.Outcome())

	after, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	require.Len(t, after, 2*naming.ImageVersionCount)
	groupsAfter, _ := GroupMedia(after)

	byKey := make(map[string]ImageGroup)
	for _, g := range groupsAfter {
		byKey[g.Key] = g
	}
	require.Contains(t, byKey, groupA.Key)
	assert.NotContains(t, byKey, groupB.Key)

	// A 保留原标识符与文件，可变字段更新
	for _, v := range byKey[groupA.Key].Versions {
		img := imageOf(v)
		assert.Equal(t, "a updated", img.Description)
		assert.Equal(t, 2, v.ShowListRank)
		assert.False(t, v.IsMain)
		assert.True(t, fileExists(env.dirs.Trick, img.FileName()))
	}
	assert.ElementsMatch(t, groupA.ImageIDs(), byKey[groupA.Key].ImageIDs())

	// B 的实体与文件全部删除
	for _, v := range groupB.Versions {
		img := imageOf(v)
		assert.False(t, fileExists(env.dirs.Trick, img.FileName()), img.FileName())
		var n int64
		require.NoError(t, env.db.Model(&model.Image{}).Where("id = ?", img.ID).Count(&n).Error)
		assert.Zero(t, n)
	}

	// C 新建三个版本
	var groupC ImageGroup
	for key, g := range byKey {
		if key != groupA.Key {
			groupC = g
		}
	}
	require.Len(t, groupC.Versions, naming.ImageVersionCount)
	for _, v := range groupC.Versions {
		assert.Equal(t, "c", imageOf(v).Description)
		assert.Equal(t, 1, v.ShowListRank)
		assert.True(t, v.IsMain)
		assert.True(t, fileExists(env.dirs.Trick, imageOf(v).FileName()))
	}
	assert.Len(t, env.listFiles(t, env.dirs.Trick), 2*naming.ImageVersionCount)
}

// 测试内容：验证视频更新时地址与平台类型原位更新，标识符保持不变。
func TestExecute_UpdateVideoInPlace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := env.createArticle(t, "Grab", "grab", nil, []dto.VideoDescriptor{{URL: ytA, Description: "yt", Rank: 1}})
	before, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	require.Len(t, before, 1)
	video := videoOf(before[0])

	op, err := env.svc.Plan(ctx, PlanInput{
		Kind:      KindUpdate,
		ArticleID: article.ID,
		OwnerID:   article.MediaOwnerID,
		Slug:      "grab",
		Videos:    []dto.VideoDescriptor{{Identifier: video.Name, URL: vim, Description: "vimeo now", Rank: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, env.svc.Execute(ctx, op, Hooks{}))

	after, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, model.MediaTypeVimeo, after[0].Type)
	assert.Equal(t, video.Name, videoOf(after[0]).Name)
	assert.Equal(t, "https://player.vimeo.com/video/76979871", videoOf(after[0]).URL)
	assert.Equal(t, "vimeo now", videoOf(after[0]).Description)
}

// 测试内容：验证终态保存失败时，本次新建的媒体与文件被回滚，原有媒体与文件保持不变。
func TestExecute_UpdateRollsBackOnCommitFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := env.createArticle(t, "Old Trick", "old-trick", []dto.ImageDescriptor{
		{Identifier: env.stage(t), Description: "a", Rank: 1},
		{Identifier: env.stage(t), Description: "b", Rank: 2},
	}, nil)
	before, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	filesBefore := env.listFiles(t, env.dirs.Trick)
	groups, _ := GroupMedia(before)

	op, err := env.svc.Plan(ctx, PlanInput{
		Kind:      KindUpdate,
		ArticleID: article.ID,
		OwnerID:   article.MediaOwnerID,
		Slug:      "old-trick",
		Images: []dto.ImageDescriptor{
			{Identifier: imageOf(groups[0].Big()).Name, Description: "changed", Rank: 1},
			{Identifier: env.stage(t), Rank: 2},
		},
		Videos: []dto.VideoDescriptor{{URL: ytA, Rank: 1}},
	})
	require.NoError(t, err)

	saveErr := errors.New("database is locked")
	err = env.svc.Execute(ctx, op, Hooks{Save: func(context.Context, repo.CommitPlan) error { return saveErr }})
	pe, ok := AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, StageCommit, pe.Stage)
	assert.ErrorIs(t, err, saveErr)
	assert.Equal(t, OutcomeFailure, op.Outcome())

	after, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	assert.ElementsMatch(t, mediaIDs(before), mediaIDs(after))
	for _, m := range after {
		if img := imageOf(m); img != nil && naming.VersionGroupKey(img.Name) == groups[0].Key {
			assert.Equal(t, "a", img.Description)
		}
	}
	assert.ElementsMatch(t, filesBefore, env.listFiles(t, env.dirs.Trick))
	assert.Zero(t, env.count(t, &model.Video{}))
	assert.Equal(t, int64(1), env.count(t, &model.Article{}))
}

// 测试内容：验证挂载步骤任一次插入失败都会回滚，文章与文件不残留。
func TestExecute_RollsBackOnAttachFailureAtAnyStep(t *testing.T) {
	// 一张图片产生三次媒体插入，视频产生第四次
	for nth := int32(1); nth <= 4; nth++ {
		env := newTestEnv(t)
		failCreatesOf(t, env.db, "Media", nth)

		ctx := context.Background()
		op, err := env.svc.Plan(ctx, PlanInput{
			Kind:   KindCreate,
			Slug:   "ollie",
			Images: []dto.ImageDescriptor{{Identifier: env.stage(t), Rank: 1}},
			Videos: []dto.VideoDescriptor{{URL: ytA, Rank: 1}},
		})
		require.NoError(t, err)
		hooks, _ := env.articleHooks("Ollie", "ollie")

		err = env.svc.Execute(ctx, op, hooks)
		pe, ok := AsPipelineError(err)
		require.True(t, ok, "step %d", nth)
		assert.Equal(t, StageAttach, pe.Stage, "step %d", nth)

		assert.Zero(t, env.count(t, &model.Article{}), "step %d", nth)
		assert.Zero(t, env.count(t, &model.Media{}), "step %d", nth)
		assert.Zero(t, env.count(t, &model.MediaSource{}), "step %d", nth)
		assert.Zero(t, env.count(t, &model.Image{}), "step %d", nth)
		assert.Zero(t, env.count(t, &model.Video{}), "step %d", nth)
		assert.Empty(t, env.listFiles(t, env.dirs.Trick), "step %d", nth)
	}
}

// 测试内容：验证临时文件不存在时在移动步骤失败并回滚。
func TestExecute_MissingStagedFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.stage(t)
	require.NoError(t, os.Remove(filepath.Join(env.dirs.Temp, id+".png")))

	op, err := env.svc.Plan(ctx, PlanInput{Kind: KindCreate, Slug: "nollie", Images: []dto.ImageDescriptor{{Identifier: id, Rank: 1}}})
	require.NoError(t, err)
	hooks, _ := env.articleHooks("Nollie", "nollie")

	err = env.svc.Execute(ctx, op, hooks)
	pe, ok := AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, StageMoveImage, pe.Stage)
	assert.Zero(t, env.count(t, &model.Article{}))
}

// 测试内容：验证文章创建失败时在 prepare 步骤终止，不产生任何文件。
func TestExecute_PrepareFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	op, err := env.svc.Plan(ctx, PlanInput{Kind: KindCreate, Slug: "frontflip"})
	require.NoError(t, err)

	prepErr := errors.New("duplicate slug")
	err = env.svc.Execute(ctx, op, Hooks{Prepare: func(context.Context) (uint, uint, error) { return 0, 0, prepErr }})
	pe, ok := AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, StagePrepare, pe.Stage)
	assert.ErrorIs(t, err, prepErr)
	assert.Equal(t, StateTerminated, op.State())
}

// 测试内容：验证同一个操作不能执行两次。
func TestExecute_RejectsReusedOperation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	op, err := env.svc.Plan(ctx, PlanInput{Kind: KindCreate, Slug: "backflip"})
	require.NoError(t, err)
	hooks, _ := env.articleHooks("Backflip", "backflip")
	require.NoError(t, env.svc.Execute(ctx, op, hooks))

	assert.ErrorIs(t, env.svc.Execute(ctx, op, hooks), ErrIllegalTransition)
}

// 测试内容：验证删除文章会移除全部媒体实体、文件以及文章和持有者。
func TestTeardown(t *testing.T) {
	env := newTestEnv(t)
	article := env.createArticle(t, "Old Trick", "old-trick",
		[]dto.ImageDescriptor{{Identifier: env.stage(t), Rank: 1}},
		[]dto.VideoDescriptor{{URL: ytA, Rank: 1}})
	require.NotEmpty(t, env.listFiles(t, env.dirs.Trick))

	require.NoError(t, env.svc.Teardown(context.Background(), article.ID, article.MediaOwnerID))

	assert.Zero(t, env.count(t, &model.Article{}))
	assert.Zero(t, env.count(t, &model.MediaOwner{}))
	assert.Zero(t, env.count(t, &model.Media{}))
	assert.Zero(t, env.count(t, &model.Image{}))
	assert.Zero(t, env.count(t, &model.Video{}))
	assert.Empty(t, env.listFiles(t, env.dirs.Trick))
}

// 测试内容：验证图库按排序返回逻辑图片及各版本地址。
func TestGallery(t *testing.T) {
	env := newTestEnv(t)
	article := env.createArticle(t, "Old Trick", "old-trick", []dto.ImageDescriptor{
		{Identifier: env.stage(t), Description: "second", Rank: 2},
		{Identifier: env.stage(t), Description: "first", Rank: 1, IsMain: true},
	}, []dto.VideoDescriptor{{URL: ytA, Rank: 1}})

	gallery, err := env.svc.Gallery(context.Background(), article.MediaOwnerID)
	require.NoError(t, err)
	require.Len(t, gallery.Images, 2)
	require.Len(t, gallery.Videos, 1)

	first := gallery.Images[0]
	assert.Equal(t, "first", first.Description)
	assert.True(t, first.IsMain)
	assert.Len(t, first.Versions, naming.ImageVersionCount)
	assert.Regexp(t, `^/media/tricks/old-trick-[0-9a-f]{10}-1600x900\.png$`, first.Versions[string(model.MediaTypeTrickBig)])
	assert.Equal(t, string(model.MediaTypeYouTube), gallery.Videos[0].Provider)
}

func mediaIDs(medias []model.Media) []uint {
	ids := make([]uint, 0, len(medias))
	for _, m := range medias {
		ids = append(ids, m.ID)
	}
	return ids
}

// 测试内容：随表单提交的文件类型或内容不合法时，Plan 直接返回校验错误，不创建文章也不处理图片。
func TestPlan_RejectsInvalidUploadedFile(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"不支持的扩展名", "notes.txt", []byte("plain text")},
		{"内容与扩展名不符", "fake.png", []byte("not really an image")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			fh := testutils.FileHeader(t, tc.filename, tc.content)

			op, err := env.svc.Plan(context.Background(), PlanInput{
				Kind:   KindCreate,
				Slug:   "method",
				Images: []dto.ImageDescriptor{{File: fh, Rank: 1}},
			})
			require.Error(t, err)
			assert.Nil(t, op)
			assert.True(t, platformservice.IsValidation(err))

			assert.Zero(t, env.resizer.calls.Load())
			assert.Zero(t, env.count(t, &model.Article{}))
			assert.Zero(t, env.count(t, &model.Media{}))
			assert.Empty(t, env.listFiles(t, env.dirs.Temp))
		})
	}
}

// 测试内容：重采样失败回滚后，客户端暂存的文件回到临时目录，使用同一标识符重试可以成功。
func TestExecute_RollbackRestoresStagedUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.resizer.failAt = 1

	id := env.stage(t)
	images := []dto.ImageDescriptor{{Identifier: id, Rank: 1}}

	op, err := env.svc.Plan(ctx, PlanInput{Kind: KindCreate, CreatorID: env.creator.ID, Slug: "nose-grab", Images: images})
	require.NoError(t, err)
	hooks, _ := env.articleHooks("Nose Grab", "nose-grab")
	err = env.svc.Execute(ctx, op, hooks)
	pe, ok := AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, StageResample, pe.Stage)
	assert.NoError(t, pe.Compensation)

	assert.True(t, fileExists(env.dirs.Temp, id+".png"))
	assert.Empty(t, env.listFiles(t, env.dirs.Trick))
	assert.Zero(t, env.count(t, &model.Image{}))

	env.resizer.failAt = 0
	article := env.createArticle(t, "Nose Grab", "nose-grab", images, nil)
	medias, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	assert.Len(t, medias, naming.ImageVersionCount)
	assert.False(t, fileExists(env.dirs.Temp, id+".png"))
}

// 测试内容：标识符带首尾空白时按去除空白后的值匹配，已有图片原位保留，新暂存图片正常创建。
func TestPlan_TrimsIdentifiers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := env.createArticle(t, "Indy", "indy", []dto.ImageDescriptor{{Identifier: " " + env.stage(t) + "\t", Rank: 1}}, nil)
	before, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	require.Len(t, before, naming.ImageVersionCount)
	big := imageOf(onlyBig(t, before))

	op, err := env.svc.Plan(ctx, PlanInput{
		Kind:      KindUpdate,
		ArticleID: article.ID,
		OwnerID:   article.MediaOwnerID,
		Slug:      "indy",
		Images:    []dto.ImageDescriptor{{Identifier: "  " + big.Name + " ", Description: "tail grab", Rank: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, env.svc.Execute(ctx, op, Hooks{}))

	after, err := env.store.ListByOwner(ctx, article.MediaOwnerID)
	require.NoError(t, err)
	assert.ElementsMatch(t, mediaIDs(before), mediaIDs(after))
	assert.Equal(t, int64(naming.ImageVersionCount), env.count(t, &model.Image{}))
	assert.Equal(t, "tail grab", imageOf(onlyBig(t, after)).Description)
}
