// Package naming 负责媒体文件标识符的生成与解析。
//
// 图片标识符格式为 slug-token-WIDTHxHEIGHT，去掉尾部尺寸后缀即为版本组键，
// 同一张逻辑图片的三个版本（big/normal/thumbnail）共享同一个版本组键。
// 尚未确认的上传图片使用 temp- 前缀。本包不做任何 I/O。
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"snowtricks-server/internal/model"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// TemporaryPrefix 临时标识符前缀。
	TemporaryPrefix = "temp-"
	// ImageVersionCount 每张逻辑图片对应的物理版本数量。
	ImageVersionCount = 3

	tokenLength = 10
)

// Format 一种固定的图片版本。
type Format struct {
	Type   model.MediaType
	Width  int
	Height int
}

// Suffix 返回 WIDTHxHEIGHT 形式的尺寸后缀。
func (f Format) Suffix() string {
	return strconv.Itoa(f.Width) + "x" + strconv.Itoa(f.Height)
}

var (
	BigFormat       = Format{Type: model.MediaTypeTrickBig, Width: 1600, Height: 900}
	NormalFormat    = Format{Type: model.MediaTypeTrickNormal, Width: 880, Height: 495}
	ThumbnailFormat = Format{Type: model.MediaTypeTrickThumbnail, Width: 400, Height: 225}
)

// Formats 按创建顺序返回三种图片版本，big 永远在第一位。
func Formats() []Format {
	return []Format{BigFormat, NormalFormat, ThumbnailFormat}
}

// FormatForType 根据媒体类型查找版本。
func FormatForType(t model.MediaType) (Format, bool) {
	for _, f := range Formats() {
		if f.Type == t {
			return f, true
		}
	}
	return Format{}, false
}

var sizeSuffixPattern = regexp.MustCompile(`-(\d+)x(\d+)$`)

// FormatFromIdentifier 根据标识符的尺寸后缀识别它代表的版本。
func FormatFromIdentifier(id string) (Format, bool) {
	m := sizeSuffixPattern.FindStringSubmatch(id)
	if m == nil {
		return Format{}, false
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	for _, f := range Formats() {
		if f.Width == w && f.Height == h {
			return f, true
		}
	}
	return Format{}, false
}

var slugTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify 把显示名称转换为只含小写 ASCII 字母、数字与连字符的 slug。
func Slugify(name string) string {
	folded, _, err := transform.String(slugTransformer, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// NewToken 生成不含连字符的随机令牌。
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLength]
}

// BuildIdentifier 生成 slug-token-WIDTHxHEIGHT。
func BuildIdentifier(slug, token string, f Format) string {
	return fmt.Sprintf("%s-%s-%s", slug, token, f.Suffix())
}

// TemporaryIdentifier 生成尚未确认的 big 版本标识符。
func TemporaryIdentifier(token string) string {
	return TemporaryPrefix + token + "-" + BigFormat.Suffix()
}

// IsTemporary 判断标识符是否带有临时前缀。
func IsTemporary(id string) bool {
	return strings.HasPrefix(id, TemporaryPrefix)
}

// VersionGroupKey 去掉尾部的 -WIDTHxHEIGHT 后缀。
// 没有尺寸后缀的标识符（例如视频）原样返回。
func VersionGroupKey(id string) string {
	loc := sizeSuffixPattern.FindStringIndex(id)
	if loc == nil {
		return id
	}
	return id[:loc[0]]
}

// SplitIdentifier 拆分出 slug、token 与版本。
func SplitIdentifier(id string) (slug, token string, f Format, ok bool) {
	f, ok = FormatFromIdentifier(id)
	if !ok {
		return "", "", Format{}, false
	}
	key := VersionGroupKey(id)
	idx := strings.LastIndexByte(key, '-')
	if idx <= 0 || idx == len(key)-1 {
		return "", "", Format{}, false
	}
	return key[:idx], key[idx+1:], f, true
}

// TokenOf 返回标识符中的令牌部分。
func TokenOf(id string) (string, bool) {
	_, token, _, ok := SplitIdentifier(id)
	return token, ok
}

// Rename 把标识符中的 slug 部分替换为 newSlug，令牌与尺寸保持不变。
func Rename(id, newSlug string) (string, bool) {
	slug, token, f, ok := SplitIdentifier(id)
	if !ok {
		return "", false
	}
	if slug == newSlug {
		return id, true
	}
	return BuildIdentifier(newSlug, token, f), true
}

// VideoIdentifier 视频没有尺寸版本，标识符为 slug-token。
func VideoIdentifier(slug, token string) string {
	return slug + "-" + token
}

// StripExtension 去掉文件名的扩展名，得到标识符与格式。
func StripExtension(fileName string) (id, ext string) {
	idx := strings.LastIndexByte(fileName, '.')
	if idx <= 0 {
		return fileName, ""
	}
	return fileName[:idx], fileName[idx+1:]
}
