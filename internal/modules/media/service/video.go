package service

import (
	"regexp"
	"strings"

	"snowtricks-server/internal/model"
)

type videoProvider struct {
	typ      model.MediaType
	pattern  *regexp.Regexp
	embedURL string
}

var videoProviders = []videoProvider{
	{
		typ:      model.MediaTypeYouTube,
		pattern:  regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.)?(?:youtube\.com/(?:watch\?(?:[^#]*&)?v=|embed/|shorts/)|youtu\.be/)([A-Za-z0-9_-]{11})`),
		embedURL: "https://www.youtube.com/embed/",
	},
	{
		typ:      model.MediaTypeVimeo,
		pattern:  regexp.MustCompile(`^(?:https?://)?(?:www\.|player\.)?vimeo\.com/(?:video/)?(\d+)`),
		embedURL: "https://player.vimeo.com/video/",
	},
	{
		typ:      model.MediaTypeDailymotion,
		pattern:  regexp.MustCompile(`^(?:https?://)?(?:www\.)?(?:dailymotion\.com/(?:embed/)?video/|dai\.ly/)([A-Za-z0-9]+)`),
		embedURL: "https://www.dailymotion.com/embed/video/",
	},
}

// ResolveVideo 根据地址识别视频平台并返回规范化的嵌入地址。
func ResolveVideo(rawURL string) (model.MediaType, string, bool) {
	u := strings.TrimSpace(rawURL)
	for _, p := range videoProviders {
		if m := p.pattern.FindStringSubmatch(u); m != nil {
			return p.typ, p.embedURL + m[1], true
		}
	}
	return "", "", false
}
