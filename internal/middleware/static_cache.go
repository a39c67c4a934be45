package middleware

import "github.com/gin-gonic/gin"

const (
	// 文章图片的文件名带随机令牌，同名文件内容不会变化
	CacheImmutable = "public, max-age=31536000, immutable"
	// 暂存图片随时可能被清理
	CacheNoStore = "no-store"
)

// StaticCacheMiddleware 为静态资源添加 Cache-Control 头
func StaticCacheMiddleware(cacheControl string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cacheControl != "" {
			c.Header("Cache-Control", cacheControl)
		}
		c.Next()
	}
}
