package naming

import (
	"strings"
	"testing"

	"snowtricks-server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试内容：验证 slug 会折叠重音、转小写并合并非字母数字字符。
func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Old Trick", "old-trick"},
		{"  Mute   Grab!! ", "mute-grab"},
		{"Frontside 360°", "frontside-360"},
		{"Rodéo à l'envers", "rodeo-a-l-envers"},
		{"---", ""},
		{"Backflip_Double", "backflip-double"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.in), tc.in)
	}
}

// 测试内容：验证令牌长度固定且不含连字符，多次生成结果不同。
func TestNewToken(t *testing.T) {
	a := NewToken()
	b := NewToken()
	assert.Len(t, a, tokenLength)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}

// 测试内容：验证同一组三个版本的标识符版本组键一致。
func TestVersionGroupKey_SharedByTriplet(t *testing.T) {
	token := NewToken()
	var keys []string
	for _, f := range Formats() {
		keys = append(keys, VersionGroupKey(BuildIdentifier("old-trick", token, f)))
	}
	require.Len(t, keys, ImageVersionCount)
	for _, k := range keys {
		assert.Equal(t, "old-trick-"+token, k)
	}
}

// 测试内容：验证没有尺寸后缀的标识符原样返回。
func TestVersionGroupKey_NoSuffix(t *testing.T) {
	assert.Equal(t, "old-trick-ab12", VersionGroupKey("old-trick-ab12"))
}

// 测试内容：验证临时标识符带前缀，永久标识符不带。
func TestTemporaryIdentifier(t *testing.T) {
	id := TemporaryIdentifier("ab12")
	assert.Equal(t, "temp-ab12-1600x900", id)
	assert.True(t, IsTemporary(id))
	assert.False(t, IsTemporary("old-trick-ab12-1600x900"))
}

// 测试内容：验证标识符能被拆分为 slug、令牌与版本。
func TestSplitIdentifier(t *testing.T) {
	slug, token, f, ok := SplitIdentifier("old-trick-ab12-880x495")
	require.True(t, ok)
	assert.Equal(t, "old-trick", slug)
	assert.Equal(t, "ab12", token)
	assert.Equal(t, model.MediaTypeTrickNormal, f.Type)

	_, _, _, ok = SplitIdentifier("old-trick-ab12-10x10")
	assert.False(t, ok)
	_, _, _, ok = SplitIdentifier("ab12-1600x900")
	assert.False(t, ok)
}

// 测试内容：验证改名只替换 slug 部分，三个版本保持一致。
func TestRename(t *testing.T) {
	for _, f := range Formats() {
		got, ok := Rename(BuildIdentifier("old-trick", "ab12", f), "new-trick")
		require.True(t, ok)
		assert.Equal(t, "new-trick-ab12-"+f.Suffix(), got)
	}

	got, ok := Rename("new-trick-ab12-1600x900", "new-trick")
	require.True(t, ok)
	assert.Equal(t, "new-trick-ab12-1600x900", got)

	_, ok = Rename("not-an-image", "x")
	assert.False(t, ok)
}

// 测试内容：验证根据媒体类型与尺寸后缀识别版本。
func TestFormatLookup(t *testing.T) {
	f, ok := FormatForType(model.MediaTypeTrickThumbnail)
	require.True(t, ok)
	assert.Equal(t, 400, f.Width)

	_, ok = FormatForType(model.MediaTypeYouTube)
	assert.False(t, ok)

	f, ok = FormatFromIdentifier("temp-ab12-1600x900")
	require.True(t, ok)
	assert.Equal(t, model.MediaTypeTrickBig, f.Type)
}

// 测试内容：验证文件名拆分扩展名。
func TestStripExtension(t *testing.T) {
	id, ext := StripExtension("old-trick-ab12-1600x900.jpg")
	assert.Equal(t, "old-trick-ab12-1600x900", id)
	assert.Equal(t, "jpg", ext)

	id, ext = StripExtension(".gitkeep")
	assert.Equal(t, ".gitkeep", id)
	assert.Empty(t, ext)

	assert.True(t, strings.HasPrefix(VideoIdentifier("old-trick", "ab12"), "old-trick-"))
}
