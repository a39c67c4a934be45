package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"snowtricks-server/internal/cache"
	"snowtricks-server/internal/db"
	"snowtricks-server/internal/model"
	"snowtricks-server/internal/utils"

	"github.com/gin-gonic/gin"
)

var (
	// userCache 缓存已确认存在的作者，减少数据库查询
	// Key: userID (uint), Value: time.Time 过期时间
	userCache sync.Map
)

const userCacheTTL = 1 * time.Minute

// ClearUserCache 清除指定用户的存在性缓存
func ClearUserCache(userID uint) {
	userCache.Delete(userID)

	if redisClient := cache.Client(); redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = redisClient.Del(ctx, userCacheKey(userID)).Err()
	}
}

func userCacheKey(userID uint) string {
	return cache.Key("auth", "user", strconv.FormatUint(uint64(userID), 10))
}

// JWTAuth 校验 Bearer 令牌并把用户信息写入上下文。
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "需要认证才能访问"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token 格式错误"})
			c.Abort()
			return
		}

		claims, err := utils.ParseLoginToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token 无效或已过期"})
			c.Abort()
			return
		}

		c.Set("id", claims.ID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// UserExistsCheck 确认令牌中的用户仍然存在，文章与媒体的 creator_id 依赖它。
func UserExistsCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "未获取到用户信息"})
			c.Abort()
			return
		}
		uid, ok := userID.(uint)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的用户ID类型"})
			c.Abort()
			return
		}

		if userKnown(c.Request.Context(), uid) {
			c.Next()
			return
		}

		var user model.User
		if err := db.DB.WithContext(c.Request.Context()).Select("id").First(&user, uid).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "用户不存在"})
			c.Abort()
			return
		}
		rememberUser(c.Request.Context(), uid)
		c.Next()
	}
}

// userKnown 优先读 Redis，未命中或不可用时回退本地内存缓存。
func userKnown(ctx context.Context, uid uint) bool {
	if redisClient := cache.Client(); redisClient != nil {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if n, err := redisClient.Exists(ctx, userCacheKey(uid)).Result(); err == nil && n > 0 {
			return true
		}
	}
	if val, ok := userCache.Load(uid); ok {
		if expiresAt, typeOk := val.(time.Time); typeOk && time.Now().Before(expiresAt) {
			return true
		}
		userCache.Delete(uid)
	}
	return false
}

func rememberUser(ctx context.Context, uid uint) {
	userCache.Store(uid, time.Now().Add(userCacheTTL))
	if redisClient := cache.Client(); redisClient != nil {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		_ = redisClient.Set(ctx, userCacheKey(uid), "1", userCacheTTL).Err()
	}
}
