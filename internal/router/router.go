package router

import (
	"strings"

	"snowtricks-server/internal/config"
	"snowtricks-server/internal/middleware"
	"snowtricks-server/internal/modules"
	"snowtricks-server/internal/platform/service"

	"github.com/gin-gonic/gin"
)

// 创建/更新技巧的表单最多附带的原图数量（按上传上限的倍数计算请求体上限）
const maxFormImages = 10

type Router struct {
	modules *modules.AppModules
	service *service.AppService
}

func NewRouter(appModules *modules.AppModules, appService *service.AppService) *Router {
	return &Router{
		modules: appModules,
		service: appService,
	}
}

func (rt *Router) Init(r *gin.Engine) {
	// 注册全局安全标头中间件
	r.Use(middleware.SecurityHeaders())

	api := r.Group("/api")
	api.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"msg": "pong"})
	})

	uploadLimiter := middleware.RateLimitMiddleware("upload", func() config.RateLimitConfig {
		return rt.service.Config().RateLimit
	})

	registerTrickRoutes(api, rt.modules.Trick.Handler, rt.service, uploadLimiter)
	registerMediaRoutes(api, rt.modules.Media.Handler, rt.service, uploadLimiter)
	rt.registerStatic(r)

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(404, gin.H{"error": "API not found"})
			return
		}
		c.JSON(404, gin.H{"error": "Not found"})
	})
}

// registerStatic 本地存储驱动下直接提供媒体文件；MinIO 驱动由对象存储或反向代理提供。
func (rt *Router) registerStatic(r *gin.Engine) {
	upload := rt.service.Config().Upload
	if upload.Driver != "" && upload.Driver != "local" {
		return
	}
	prefix := strings.TrimSuffix(upload.URLPrefix, "/")

	r.Group(prefix+"/tricks", middleware.StaticCacheMiddleware(middleware.CacheImmutable)).
		StaticFS("", gin.Dir(upload.TrickPath, false))
	r.Group(prefix+"/avatars", middleware.StaticCacheMiddleware(middleware.CacheImmutable)).
		StaticFS("", gin.Dir(upload.AvatarPath, false))
	r.Group(prefix+"/tmp", middleware.StaticCacheMiddleware(middleware.CacheNoStore)).
		StaticFS("", gin.Dir(upload.TempPath, false))
}
