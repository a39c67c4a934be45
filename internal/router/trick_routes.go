package router

import (
	"snowtricks-server/internal/middleware"
	trickhandler "snowtricks-server/internal/modules/trick/handler"
	"snowtricks-server/internal/platform/service"

	"github.com/gin-gonic/gin"
)

func registerTrickRoutes(api *gin.RouterGroup, h *trickhandler.Handler, appService *service.AppService, uploadLimiter gin.HandlerFunc) {
	public := api.Group("/tricks", middleware.BodyLimitMiddleware())
	{
		public.GET("", h.ListTricks)
		public.GET("/:id", h.GetTrick)
		public.GET("/slug/:slug", h.GetTrickBySlug)
	}

	authed := api.Group("/tricks", middleware.JWTAuth(), middleware.UserExistsCheck())
	{
		// 表单可附带原图，按上传接口限流
		authed.POST("", uploadLimiter, middleware.UploadBodyLimitMiddleware(appService, maxFormImages), h.CreateTrick)
		authed.PUT("/:id", uploadLimiter, middleware.UploadBodyLimitMiddleware(appService, maxFormImages), h.UpdateTrick)
		authed.DELETE("/:id", h.DeleteTrick)
	}
}
