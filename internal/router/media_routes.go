package router

import (
	"snowtricks-server/internal/middleware"
	mediahandler "snowtricks-server/internal/modules/media/handler"
	"snowtricks-server/internal/platform/service"

	"github.com/gin-gonic/gin"
)

func registerMediaRoutes(api *gin.RouterGroup, h *mediahandler.Handler, appService *service.AppService, uploadLimiter gin.HandlerFunc) {
	media := api.Group("/media", middleware.JWTAuth(), middleware.UserExistsCheck())
	{
		media.POST("/uploads", uploadLimiter, middleware.UploadBodyLimitMiddleware(appService, 1), h.StageUpload)
	}
}
