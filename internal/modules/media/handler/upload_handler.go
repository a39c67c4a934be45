package handler

import (
	"net/http"

	"snowtricks-server/internal/modules/common/httpx"
	"snowtricks-server/internal/modules/media/dto"

	"github.com/gin-gonic/gin"
)

// StageUpload 暂存一张图片，返回临时标识符，文章保存时再确认。
func (h *Handler) StageUpload(c *gin.Context) {
	if _, ok := httpx.CurrentUserID(c); !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请选择文件"})
		return
	}

	var crop dto.CropRect
	if err := c.ShouldBind(&crop); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "裁剪参数错误"})
		return
	}

	resp, err := h.mediaService.StageUpload(c.Request.Context(), dto.StageRequest{File: file, Crop: &crop})
	if err != nil {
		httpx.WriteServiceError(c, err, "上传失败，请稍后重试")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":        "上传成功",
		"identifier": resp.Identifier,
		"url":        resp.URL,
	})
}
