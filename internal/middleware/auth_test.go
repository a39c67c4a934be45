package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"snowtricks-server/internal/testutils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func authEngine() *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuth(), UserExistsCheck(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetUint("id"), "username": c.GetString("username")})
	})
	return r
}

// 测试内容：验证缺少或格式错误的 Authorization 头返回 401。
func TestJWTAuth_RejectsMissingAndMalformed(t *testing.T) {
	useSecret(t)
	r := authEngine()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

// 测试内容：验证有效令牌且用户存在时放行，并写入用户信息。
func TestJWTAuth_ValidTokenExistingUser(t *testing.T) {
	useSecret(t)
	gdb := testutils.SetupDB(t)
	user := testutils.CreateUser(t, gdb, "alice")
	t.Cleanup(func() { ClearUserCache(user.ID) })

	r := authEngine()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, user.ID, "alice"))
	w := serve(r, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

// 测试内容：验证令牌中的用户已不存在时返回 401。
func TestUserExistsCheck_UnknownUser(t *testing.T) {
	useSecret(t)
	testutils.SetupDB(t)

	r := authEngine()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, 9999, "ghost"))
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

// 测试内容：验证存在性缓存命中后不再查询数据库，清除缓存后重新校验。
func TestUserExistsCheck_CachesAndClears(t *testing.T) {
	useSecret(t)
	gdb := testutils.SetupDB(t)
	user := testutils.CreateUser(t, gdb, "bob")
	t.Cleanup(func() { ClearUserCache(user.ID) })

	r := authEngine()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, user.ID, "bob"))
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	assert.NoError(t, gdb.Unscoped().Delete(user).Error)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, user.ID, "bob"))
	assert.Equal(t, http.StatusOK, serve(r, req).Code, "缓存期内不应重新查询")

	ClearUserCache(user.ID)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, user.ID, "bob"))
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}
