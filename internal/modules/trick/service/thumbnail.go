package service

import (
	"snowtricks-server/internal/model"
	mediadto "snowtricks-server/internal/modules/media/dto"
)

// thumbnailOf 优先取主图，没有主图时取排序第一的图片。
func thumbnailOf(g mediadto.Gallery) string {
	if len(g.Images) == 0 {
		return ""
	}
	pick := g.Images[0]
	for _, img := range g.Images {
		if img.IsMain {
			pick = img
			break
		}
	}
	return pick.Versions[string(model.MediaTypeTrickThumbnail)]
}
