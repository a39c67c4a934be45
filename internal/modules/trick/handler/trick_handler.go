package handler

import (
	"net/http"
	"strconv"

	"snowtricks-server/internal/modules/common/httpx"
	"snowtricks-server/internal/modules/trick/dto"

	"github.com/gin-gonic/gin"
)

// 流水线失败只返回一条技术错误提示，细节见服务端日志
const saveFailedMessage = "保存失败，发生技术错误，请稍后重试"

func (h *Handler) CreateTrick(c *gin.Context) {
	uid, ok := httpx.CurrentUserID(c)
	if !ok {
		return
	}
	req, err := bindSaveRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	article, err := h.trickService.Create(c.Request.Context(), uid, req)
	if err != nil {
		httpx.WriteServiceError(c, err, saveFailedMessage)
		return
	}
	view, err := h.trickService.View(c.Request.Context(), article)
	if err != nil {
		httpx.WriteServiceError(c, err, "读取技巧失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"msg": "创建成功", "trick": view})
}

func (h *Handler) UpdateTrick(c *gin.Context) {
	uid, ok := httpx.CurrentUserID(c)
	if !ok {
		return
	}
	id, ok := httpx.ParseIDParam(c, "id")
	if !ok {
		return
	}
	req, err := bindSaveRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	article, err := h.trickService.Update(c.Request.Context(), id, uid, req)
	if err != nil {
		httpx.WriteServiceError(c, err, saveFailedMessage)
		return
	}
	view, err := h.trickService.View(c.Request.Context(), article)
	if err != nil {
		httpx.WriteServiceError(c, err, "读取技巧失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "更新成功", "trick": view})
}

func (h *Handler) GetTrick(c *gin.Context) {
	id, ok := httpx.ParseIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.trickService.Get(c.Request.Context(), id)
	if err != nil {
		httpx.WriteServiceError(c, err, "读取技巧失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"trick": view})
}

func (h *Handler) GetTrickBySlug(c *gin.Context) {
	view, err := h.trickService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httpx.WriteServiceError(c, err, "读取技巧失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"trick": view})
}

func (h *Handler) DeleteTrick(c *gin.Context) {
	if _, ok := httpx.CurrentUserID(c); !ok {
		return
	}
	id, ok := httpx.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.trickService.Delete(c.Request.Context(), id); err != nil {
		httpx.WriteServiceError(c, err, "删除失败，请稍后重试")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "删除成功"})
}

func (h *Handler) ListTricks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	items, total, err := h.trickService.List(c.Request.Context(), dto.TrickListRequest{
		PaginationRequest: dto.PaginationRequest{Page: page, PageSize: pageSize},
		Group:             c.Query("group"),
		OnlyPublished:     true,
	})
	if err != nil {
		httpx.WriteServiceError(c, err, "获取技巧列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"list":  items,
		"total": total,
		"page":  page,
	})
}
