package service

import (
	"context"
	"fmt"

	"snowtricks-server/internal/modules/media/naming"

	"go.uber.org/zap"
)

// RenameReport 改名结果。Failed 中的图片保留旧标识符。
type RenameReport struct {
	Renamed map[string]string
	Failed  []string
}

type fileMove struct {
	from string
	to   string
}

// RenameCascade 文章 slug 变化后，把持有者全部图片的文件与标识符改为新 slug。
// 同一逻辑图片的三个版本作为整体改名：任一版本失败时该组已改的文件改回，整组保留旧标识符。
// 全部文件改完后一次性写入新标识符；写入失败时把已改的文件名全部改回。
// 失败只记录日志，不影响已经保存的文章。
func (s *Service) RenameCascade(ctx context.Context, ownerID uint, newSlug string) RenameReport {
	report := RenameReport{Renamed: map[string]string{}}

	medias, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		s.log.Warn("rename cascade: failed to load media", zap.Uint("owner_id", ownerID), zap.Error(err))
		return report
	}

	names := make(map[uint]string)
	var moves []fileMove
	groups, _ := GroupMedia(medias)
	for _, g := range groups {
		groupNames, groupMoves, err := s.renameGroup(ctx, g, newSlug)
		if err != nil {
			s.log.Warn("rename cascade: image kept its old identifier", zap.String("group", g.Key), zap.Error(err))
			for _, v := range g.Versions {
				report.Failed = append(report.Failed, imageOf(v).Name)
			}
			continue
		}
		for _, v := range g.Versions {
			img := imageOf(v)
			if newID, ok := groupNames[img.ID]; ok {
				names[img.ID] = newID
				report.Renamed[img.Name] = newID
			}
		}
		moves = append(moves, groupMoves...)
	}

	if err := s.store.RenameImages(ctx, names); err != nil {
		s.log.Error("rename cascade: failed to store new identifiers", zap.Uint("owner_id", ownerID), zap.Error(err))
		s.revertMoves(ctx, moves)
		for old := range report.Renamed {
			report.Failed = append(report.Failed, old)
		}
		report.Renamed = map[string]string{}
	}
	return report
}

// renameGroup 改名一张逻辑图片的全部版本文件。失败时改回本组已改的文件并返回错误。
func (s *Service) renameGroup(ctx context.Context, g ImageGroup, newSlug string) (map[uint]string, []fileMove, error) {
	names := make(map[uint]string, len(g.Versions))
	var moves []fileMove
	for _, v := range g.Versions {
		img := imageOf(v)
		newID, ok := naming.Rename(img.Name, newSlug)
		if !ok {
			s.revertMoves(ctx, moves)
			return nil, nil, fmt.Errorf("%s: %w", img.Name, ErrMalformedIdentifier)
		}
		if newID == img.Name {
			continue
		}
		from, to := img.FileName(), newID+"."+img.Format
		if err := s.files.Rename(ctx, s.dirs.Trick, from, s.dirs.Trick, to); err != nil {
			s.revertMoves(ctx, moves)
			return nil, nil, fmt.Errorf("rename %s: %w", from, err)
		}
		names[img.ID] = newID
		moves = append(moves, fileMove{from: from, to: to})
	}
	return names, moves, nil
}

// revertMoves 按相反顺序把文件名改回，尽力而为。
func (s *Service) revertMoves(ctx context.Context, moves []fileMove) {
	for i := len(moves) - 1; i >= 0; i-- {
		mv := moves[i]
		if err := s.files.Rename(ctx, s.dirs.Trick, mv.to, s.dirs.Trick, mv.from); err != nil {
			s.log.Warn("rename cascade: failed to restore file name", zap.String("file", mv.to), zap.Error(err))
		}
	}
}
