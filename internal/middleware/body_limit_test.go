package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"snowtricks-server/internal/config"
	"snowtricks-server/internal/platform/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// 测试内容：验证上传请求声明的长度超过上限时直接返回 413。
func TestUploadBodyLimitMiddleware_RejectsLargeContentLength(t *testing.T) {
	appService := service.NewAppServiceWithConfig(zap.NewNop(), config.Config{Upload: config.UploadConfig{MaxUploadSize: 1}})
	r := gin.New()
	r.POST("/upload", UploadBodyLimitMiddleware(appService, 1), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x"))
	req.ContentLength = 2 * 1024 * 1024
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("small"))
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
}

// 测试内容：验证普通请求体超过默认上限时读取失败。
func TestBodyLimitMiddleware_TruncatesJSONBody(t *testing.T) {
	r := gin.New()
	r.POST("/json", BodyLimitMiddleware(), func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusNoContent)
	})

	big := strings.Repeat("a", defaultBodyLimitMB*1024*1024+1)
	req := httptest.NewRequest(http.MethodPost, "/json", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(r, req).Code)
}
