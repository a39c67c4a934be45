package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// 测试内容：验证安全响应头与静态资源缓存头被正确设置。
func TestSecurityHeadersAndStaticCache(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/media/tricks/a.jpg", StaticCacheMiddleware(CacheImmutable), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/media/tmp/b.jpg", StaticCacheMiddleware(CacheNoStore), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/media/tricks/a.jpg", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Equal(t, CacheImmutable, w.Header().Get("Cache-Control"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/media/tmp/b.jpg", nil))
	assert.Equal(t, CacheNoStore, w.Header().Get("Cache-Control"))
}
