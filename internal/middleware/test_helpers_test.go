package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"snowtricks-server/internal/config"
	"snowtricks-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func useSecret(t *testing.T) {
	t.Helper()
	prev := config.Get()
	cfg := prev
	cfg.JWT.Secret = "middleware_test_secret"
	config.Store(cfg)
	t.Cleanup(func() { config.Store(prev) })
}

func bearer(t *testing.T, id uint, username string) string {
	t.Helper()
	token, err := utils.GenerateLoginToken(id, username, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
