package httpx

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// CurrentUserID 读取 JWT 中间件写入的用户 ID，失败时已写出 401 响应。
func CurrentUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未获取到用户信息"})
		return 0, false
	}
	uid, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的用户ID类型"})
		return 0, false
	}
	return uid, true
}

// ParseIDParam 解析路径参数中的正整数 ID，失败时已写出 400 响应。
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " 参数错误"})
		return 0, false
	}
	return uint(id), true
}
