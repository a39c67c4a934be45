package service

import (
	"context"
	"errors"
	"slices"

	"snowtricks-server/internal/modules/media/repo"

	"go.uber.org/zap"
)

// rollback 进入补偿流程：删除本次操作产生的文件与实体，创建操作还会删除文章与持有者。
// 始终返回 *PipelineError。
func (s *Service) rollback(ctx context.Context, op *Operation, item string, cause error) error {
	// 请求被取消时补偿仍需完成
	ctx = context.WithoutCancel(ctx)

	pe := &PipelineError{Stage: StagePrepare, ArticleID: op.ArticleID, Item: item, Err: cause}
	var se *stageError
	if errors.As(cause, &se) {
		pe.Stage = se.stage
		pe.Err = se.err
	}

	if err := op.transition(StateRollingBack); err != nil {
		pe.Compensation = err
		return pe
	}
	pe.Compensation = s.compensate(ctx, op)
	_ = op.terminate(OutcomeFailure)

	fields := []zap.Field{
		zap.Uint("article_id", op.ArticleID),
		zap.String("item", item),
		zap.String("stage", string(pe.Stage)),
		zap.Error(pe.Err),
	}
	if pe.Compensation != nil {
		fields = append(fields, zap.NamedError("compensation_error", pe.Compensation))
	}
	s.log.Error("media pipeline failed, operation rolled back", fields...)
	return pe
}

// compensate 先把客户端暂存的文件移回临时目录并删除其余文件（尽力而为），再在单个事务内删除实体。
func (s *Service) compensate(ctx context.Context, op *Operation) error {
	imageIDs := make(map[uint]struct{})
	videoIDs := make(map[uint]struct{})
	files := append([]storedFile(nil), op.createdFiles...)

	var listErr error
	if op.OwnerID != 0 {
		medias, err := s.store.ListByOwner(ctx, op.OwnerID)
		if err != nil {
			listErr = err
			s.log.Error("failed to load media for compensation", zap.Uint("owner_id", op.OwnerID), zap.Error(err))
		}
		for _, m := range medias {
			if op.existedBefore(m.ID) {
				continue
			}
			if img := imageOf(m); img != nil {
				imageIDs[img.ID] = struct{}{}
				files = append(files, storedFile{dir: s.dirs.Trick, name: img.FileName()})
			}
			if v := videoOf(m); v != nil {
				videoIDs[v.ID] = struct{}{}
			}
		}
	}
	// 尚未挂载到持有者的实体只能通过创建记录找到
	for _, id := range op.createdImageIDs {
		imageIDs[id] = struct{}{}
	}
	for _, id := range op.createdVideoIDs {
		videoIDs[id] = struct{}{}
	}

	seen := make(map[storedFile]struct{}, len(files))
	for _, r := range op.restores {
		seen[r.moved] = struct{}{}
		err := s.files.Rename(ctx, r.moved.dir, r.moved.name, r.origin.dir, r.origin.name)
		if err == nil {
			continue
		}
		s.log.Warn("failed to restore staged file during compensation", zap.String("file", r.moved.name), zap.Error(err))
		if err := s.files.Remove(ctx, r.moved.dir, r.moved.name); err != nil {
			s.log.Warn("failed to remove file during compensation", zap.String("dir", r.moved.dir), zap.String("file", r.moved.name), zap.Error(err))
		}
	}
	for _, f := range files {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		if err := s.files.Remove(ctx, f.dir, f.name); err != nil {
			s.log.Warn("failed to remove file during compensation", zap.String("dir", f.dir), zap.String("file", f.name), zap.Error(err))
		}
	}

	plan := repo.RemovalPlan{ImageIDs: sortedKeys(imageIDs), VideoIDs: sortedKeys(videoIDs)}
	if op.Kind == KindCreate {
		plan.ArticleID = op.ArticleID
		plan.OwnerID = op.OwnerID
	}
	if err := s.store.Remove(ctx, plan); err != nil {
		s.log.Error("failed to remove entities during compensation", zap.Uint("article_id", op.ArticleID), zap.Error(err))
		return errors.Join(listErr, err)
	}
	return listErr
}

func sortedKeys(set map[uint]struct{}) []uint {
	keys := make([]uint, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
