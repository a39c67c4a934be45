package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"snowtricks-server/internal/model"
	"snowtricks-server/internal/modules/media/dto"
	"snowtricks-server/internal/modules/media/naming"
	"snowtricks-server/internal/modules/media/repo"
	"snowtricks-server/internal/storage"

	"go.uber.org/zap"
)

type stageError struct {
	stage Stage
	err   error
}

func (e *stageError) Error() string { return string(e.stage) + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func atStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: stage, err: err}
}

// Hooks 由文章层提供的两个持久化步骤。
type Hooks struct {
	// Prepare 在挂载媒体之前执行，创建文章时写入文章与媒体持有者并返回其 ID
	Prepare func(ctx context.Context) (articleID, ownerID uint, err error)
	// Save 终态保存，文章字段与媒体变更必须在同一事务内写入；为空时只写媒体变更
	Save func(ctx context.Context, plan repo.CommitPlan) error
}

// Execute 执行整个操作：挂载新媒体、终态保存、改名与孤儿清理。
// 任一步骤失败都会执行补偿并返回 *PipelineError。
func (s *Service) Execute(ctx context.Context, op *Operation, hooks Hooks) error {
	if err := op.transition(StateAttachingMedia); err != nil {
		return err
	}

	if hooks.Prepare != nil {
		articleID, ownerID, err := hooks.Prepare(ctx)
		if err != nil {
			return s.rollback(ctx, op, "article", atStage(StagePrepare, err))
		}
		op.Bind(articleID, ownerID)
	}

	for i, desc := range op.diff.ImagesToCreate {
		if err := s.createImage(ctx, op, desc); err != nil {
			return s.rollback(ctx, op, itemLabel("image", i, desc.Identifier), err)
		}
	}
	for i, desc := range op.diff.VideosToCreate {
		if err := s.createVideo(ctx, op, desc); err != nil {
			return s.rollback(ctx, op, itemLabel("video", i, desc.URL), err)
		}
	}

	if err := op.transition(StateCommitting); err != nil {
		return err
	}
	op.plan = s.buildCommitPlan(op)
	save := hooks.Save
	if save == nil {
		save = s.store.Commit
	}
	if err := save(ctx, op.plan); err != nil {
		return s.rollback(ctx, op, "article", atStage(StageCommit, err))
	}
	if err := op.terminate(OutcomeSuccess); err != nil {
		return err
	}

	// 实体删除已提交，再删除被移除媒体的文件
	s.removeFiles(ctx, s.dirs.Trick, op.removedFiles)
	s.finish(ctx, op)
	return nil
}

func itemLabel(kind string, index int, ref string) string {
	if ref == "" {
		return fmt.Sprintf("%s#%d", kind, index+1)
	}
	return fmt.Sprintf("%s#%d(%s)", kind, index+1, ref)
}

// finish 终态保存成功后的收尾，失败只记录日志。
func (s *Service) finish(ctx context.Context, op *Operation) {
	if op.Kind == KindUpdate && op.PreviousSlug != "" && op.PreviousSlug != op.Slug {
		s.RenameCascade(ctx, op.OwnerID, op.Slug)
	}
	if _, err := s.purger.Purge(ctx, s.dirs.Trick); err != nil {
		if errors.Is(err, ErrPurgeBusy) {
			s.log.Info("orphan purge skipped, another purge is running")
			return
		}
		s.log.Warn("orphan purge failed", zap.Error(err))
	}
}

// createImage 新建一张逻辑图片：确认 big 版本，重采样出 normal 与 thumbnail，再逐个挂载。
func (s *Service) createImage(ctx context.Context, op *Operation, desc dto.ImageDescriptor) error {
	tempID := desc.Identifier
	// 客户端事先暂存的文件回滚时要移回临时目录，以便用同一标识符重试
	restorable := tempID != ""
	if tempID == "" {
		staged, err := produced(s.stager.Stage(ctx, desc.File, desc.Crop))
		if err != nil {
			return atStage(StageStageUpload, err)
		}
		op.trackFile(s.dirs.Temp, staged.FileName)
		tempID = staged.Identifier
	}

	big, err := s.persistBig(ctx, op, tempID, desc.Description, restorable)
	if err != nil {
		return err
	}

	images := []*model.Image{big}
	for _, f := range naming.Formats()[1:] {
		img, err := s.generateVersion(ctx, op, big, f)
		if err != nil {
			return err
		}
		images = append(images, img)
	}

	for i, img := range images {
		source := &model.MediaSource{ImageID: &img.ID}
		if err := s.attach(ctx, op, source, naming.Formats()[i].Type, desc.Rank, desc.IsMain); err != nil {
			return err
		}
	}
	return nil
}

// persistBig 把临时文件移入文章目录并以永久标识符保存。
func (s *Service) persistBig(ctx context.Context, op *Operation, tempID, description string, restorable bool) (*model.Image, error) {
	info, err := storage.Lookup(ctx, s.files, s.dirs.Temp, tempID)
	if err != nil {
		return nil, atStage(StageMoveImage, err)
	}
	_, format := naming.StripExtension(info.Name)

	id := naming.BuildIdentifier(op.Slug, naming.NewToken(), naming.BigFormat)
	name := id + "." + format
	if err := s.files.Rename(ctx, s.dirs.Temp, info.Name, s.dirs.Trick, name); err != nil {
		return nil, atStage(StageMoveImage, err)
	}
	moved := storedFile{dir: s.dirs.Trick, name: name}
	if restorable {
		op.trackRestore(moved, storedFile{dir: s.dirs.Temp, name: info.Name})
	} else {
		op.trackFile(moved.dir, moved.name)
	}

	img, err := produced(s.persistImage(ctx, op, id, format, info.Size, description))
	if err != nil {
		return nil, atStage(StagePersist, err)
	}
	return img, nil
}

// generateVersion 由 big 版本重采样出目标尺寸的文件并保存记录。
func (s *Service) generateVersion(ctx context.Context, op *Operation, big *model.Image, f naming.Format) (*model.Image, error) {
	_, token, _, ok := naming.SplitIdentifier(big.Name)
	if !ok {
		return nil, atStage(StageResample, fmt.Errorf("malformed identifier %q", big.Name))
	}

	src, err := s.files.Open(ctx, s.dirs.Trick, big.FileName())
	if err != nil {
		return nil, atStage(StageResample, err)
	}
	var buf bytes.Buffer
	err = s.resizer.Resize(ctx, src, big.Format, f.Width, f.Height, &buf)
	_ = src.Close()
	if err != nil {
		return nil, atStage(StageResample, err)
	}

	id := naming.BuildIdentifier(op.Slug, token, f)
	name := id + "." + big.Format
	size, err := s.files.Write(ctx, s.dirs.Trick, name, &buf)
	if err != nil {
		return nil, atStage(StageResample, err)
	}
	op.trackFile(s.dirs.Trick, name)

	img, err := produced(s.persistImage(ctx, op, id, big.Format, size, big.Description))
	if err != nil {
		return nil, atStage(StagePersist, err)
	}
	return img, nil
}

func (s *Service) persistImage(ctx context.Context, op *Operation, id, format string, size int64, description string) (*model.Image, error) {
	img := &model.Image{Name: id, Format: format, Size: size, Description: description}
	if err := s.store.CreateImage(ctx, img); err != nil {
		return nil, err
	}
	op.createdImageIDs = append(op.createdImageIDs, img.ID)
	return img, nil
}

// createVideo 识别平台后依次创建视频、媒体来源与媒体并挂载。
func (s *Service) createVideo(ctx context.Context, op *Operation, desc dto.VideoDescriptor) error {
	typ, embed, ok := ResolveVideo(desc.URL)
	if !ok {
		return atStage(StageVideo, ErrUnsupportedVideo)
	}

	video := &model.Video{
		Name:        naming.VideoIdentifier(op.Slug, naming.NewToken()),
		URL:         embed,
		Description: desc.Description,
	}
	if err := s.store.CreateVideo(ctx, video); err != nil {
		return atStage(StageVideo, err)
	}
	op.createdVideoIDs = append(op.createdVideoIDs, video.ID)

	return s.attach(ctx, op, &model.MediaSource{VideoID: &video.ID}, typ, desc.Rank, false)
}

// attach 媒体来源 → 媒体 → 挂载到持有者，任一步无结果即中止。
func (s *Service) attach(ctx context.Context, op *Operation, source *model.MediaSource, typ model.MediaType, rank int, isMain bool) error {
	src, err := produced(s.createSource(ctx, source))
	if err != nil {
		return atStage(StageAttach, err)
	}
	media, err := produced(s.createMedia(ctx, &model.Media{
		MediaSourceID: src.ID,
		Type:          typ,
		IsMain:        isMain,
		ShowListRank:  rank,
		IsPublished:   true,
		CreatorID:     op.CreatorID,
	}))
	if err != nil {
		return atStage(StageAttach, err)
	}
	if err := s.store.AttachToOwner(ctx, media.ID, op.OwnerID); err != nil {
		return atStage(StageAttach, err)
	}
	return nil
}

func (s *Service) createSource(ctx context.Context, source *model.MediaSource) (*model.MediaSource, error) {
	if err := s.store.CreateSource(ctx, source); err != nil {
		return nil, err
	}
	return source, nil
}

func (s *Service) createMedia(ctx context.Context, media *model.Media) (*model.Media, error) {
	if err := s.store.CreateMedia(ctx, media); err != nil {
		return nil, err
	}
	return media, nil
}

// buildCommitPlan 匹配项原位更新，剩余的旧媒体整体删除。
func (s *Service) buildCommitPlan(op *Operation) repo.CommitPlan {
	var plan repo.CommitPlan

	for _, m := range op.diff.ImagesToUpdate {
		for _, v := range m.Previous.Versions {
			plan.MediaUpdates = append(plan.MediaUpdates, repo.MediaUpdate{
				MediaID: v.ID,
				Rank:    m.Submitted.Rank,
				IsMain:  m.Submitted.IsMain,
			})
			if img := imageOf(v); img != nil {
				plan.ImageUpdates = append(plan.ImageUpdates, repo.ImageUpdate{ImageID: img.ID, Description: m.Submitted.Description})
			}
		}
	}
	for _, m := range op.diff.VideosToUpdate {
		typ, embed, _ := ResolveVideo(m.Submitted.URL)
		plan.MediaUpdates = append(plan.MediaUpdates, repo.MediaUpdate{MediaID: m.Previous.ID, Rank: m.Submitted.Rank})
		plan.VideoUpdates = append(plan.VideoUpdates, repo.VideoUpdate{
			VideoID:     videoOf(m.Previous).ID,
			URL:         embed,
			Type:        typ,
			Description: m.Submitted.Description,
		})
	}

	op.removedFiles = nil
	for _, g := range op.diff.ImagesToRemove {
		for _, v := range g.Versions {
			if img := imageOf(v); img != nil {
				plan.Removal.ImageIDs = append(plan.Removal.ImageIDs, img.ID)
				op.removedFiles = append(op.removedFiles, img.FileName())
			}
		}
	}
	for _, m := range op.diff.VideosToRemove {
		plan.Removal.VideoIDs = append(plan.Removal.VideoIDs, videoOf(m).ID)
	}
	return plan
}
