package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"snowtricks-server/internal/platform/service"

	"github.com/gin-gonic/gin"
)

// 非上传请求的请求体上限
const defaultBodyLimitMB = 2

// BodyLimitMiddleware 限制请求体大小。multipart 请求按上传上限处理。
func BodyLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Next()
			return
		}

		maxBytes := int64(defaultBodyLimitMB) * 1024 * 1024
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// UploadBodyLimitMiddleware 限制上传接口的请求体大小。
// 创建/更新技巧可能在一个表单里附带多张原图，因此允许 files 倍的上传上限。
func UploadBodyLimitMiddleware(appService *service.AppService, files int) gin.HandlerFunc {
	return func(c *gin.Context) {
		maxSizeMB := appService.Config().Upload.MaxUploadSize
		if maxSizeMB <= 0 {
			maxSizeMB = 10
		}
		if files < 1 {
			files = 1
		}
		maxBytes := int64(maxSizeMB) * int64(files) * 1024 * 1024

		if c.Request.ContentLength > maxBytes && c.Request.ContentLength != -1 {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("请求大小不能超过 %dMB", maxBytes/1024/1024)})
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
