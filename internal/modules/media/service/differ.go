package service

import (
	"snowtricks-server/internal/model"
	"snowtricks-server/internal/modules/media/dto"
	"snowtricks-server/internal/modules/media/naming"
	platformservice "snowtricks-server/internal/platform/service"
)

// ImageGroup 一张逻辑图片的全部已存版本，Key 为版本组键。
type ImageGroup struct {
	Key      string
	Versions []model.Media
}

// Big 返回 big 版本，不存在时返回第一个版本。
func (g ImageGroup) Big() model.Media {
	for _, m := range g.Versions {
		if m.Type == model.MediaTypeTrickBig {
			return m
		}
	}
	return g.Versions[0]
}

// ImageIDs 返回各版本图片 ID。
func (g ImageGroup) ImageIDs() []uint {
	ids := make([]uint, 0, len(g.Versions))
	for _, m := range g.Versions {
		if img := imageOf(m); img != nil {
			ids = append(ids, img.ID)
		}
	}
	return ids
}

type ImageMatch struct {
	Previous  ImageGroup
	Submitted dto.ImageDescriptor
}

type VideoMatch struct {
	Previous  model.Media
	Submitted dto.VideoDescriptor
}

// DiffResult 每个集合分别得到新建、原位更新与删除三类，Snapshot 为操作前已存在的媒体 ID。
type DiffResult struct {
	ImagesToCreate []dto.ImageDescriptor
	ImagesToUpdate []ImageMatch
	ImagesToRemove []ImageGroup
	VideosToCreate []dto.VideoDescriptor
	VideosToUpdate []VideoMatch
	VideosToRemove []model.Media
	Snapshot       map[uint]struct{}
}

func imageOf(m model.Media) *model.Image {
	if m.MediaSource == nil {
		return nil
	}
	return m.MediaSource.Image
}

func videoOf(m model.Media) *model.Video {
	if m.MediaSource == nil {
		return nil
	}
	return m.MediaSource.Video
}

// GroupMedia 把持有者的媒体按版本组键聚合为逻辑图片，视频单独返回。保持输入顺序。
func GroupMedia(medias []model.Media) ([]ImageGroup, []model.Media) {
	var groups []ImageGroup
	index := make(map[string]int)
	var videos []model.Media

	for _, m := range medias {
		if img := imageOf(m); img != nil {
			key := naming.VersionGroupKey(img.Name)
			if i, ok := index[key]; ok {
				groups[i].Versions = append(groups[i].Versions, m)
				continue
			}
			index[key] = len(groups)
			groups = append(groups, ImageGroup{Key: key, Versions: []model.Media{m}})
			continue
		}
		if videoOf(m) != nil {
			videos = append(videos, m)
		}
	}
	return groups, videos
}

// Diff 比较操作前的集合与新提交的集合。
// 带临时前缀或为空的标识符一律新建；其余按版本组键（图片）或标识符（视频）匹配，
// 匹配成功的从原集合中移出并原位更新；原集合剩余项全部删除。
// 不属于原集合的永久标识符视为过期的客户端状态，整体拒绝。
func Diff(prevImages []ImageGroup, prevVideos []model.Media, images []dto.ImageDescriptor, videos []dto.VideoDescriptor) (DiffResult, error) {
	result := DiffResult{Snapshot: make(map[uint]struct{})}
	for _, g := range prevImages {
		for _, m := range g.Versions {
			result.Snapshot[m.ID] = struct{}{}
		}
	}
	for _, m := range prevVideos {
		result.Snapshot[m.ID] = struct{}{}
	}

	imagePool := make(map[string]ImageGroup, len(prevImages))
	for _, g := range prevImages {
		imagePool[g.Key] = g
	}
	for _, desc := range images {
		if desc.Identifier == "" || naming.IsTemporary(desc.Identifier) {
			result.ImagesToCreate = append(result.ImagesToCreate, desc)
			continue
		}
		key := naming.VersionGroupKey(desc.Identifier)
		prev, ok := imagePool[key]
		if !ok {
			return DiffResult{}, platformservice.WrapValidationError(ErrUnknownMedia)
		}
		delete(imagePool, key)
		result.ImagesToUpdate = append(result.ImagesToUpdate, ImageMatch{Previous: prev, Submitted: desc})
	}
	for _, g := range prevImages {
		if _, left := imagePool[g.Key]; left {
			result.ImagesToRemove = append(result.ImagesToRemove, g)
		}
	}

	videoPool := make(map[string]model.Media, len(prevVideos))
	for _, m := range prevVideos {
		videoPool[videoOf(m).Name] = m
	}
	for _, desc := range videos {
		if desc.Identifier == "" {
			result.VideosToCreate = append(result.VideosToCreate, desc)
			continue
		}
		prev, ok := videoPool[desc.Identifier]
		if !ok {
			return DiffResult{}, platformservice.WrapValidationError(ErrUnknownMedia)
		}
		delete(videoPool, desc.Identifier)
		result.VideosToUpdate = append(result.VideosToUpdate, VideoMatch{Previous: prev, Submitted: desc})
	}
	for _, m := range prevVideos {
		if _, left := videoPool[videoOf(m).Name]; left {
			result.VideosToRemove = append(result.VideosToRemove, m)
		}
	}

	return result, nil
}
