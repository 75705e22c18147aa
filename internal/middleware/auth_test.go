package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/VEB4697/smart-iot/internal/config"
	"github.com/VEB4697/smart-iot/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthTestRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}

	router := gin.New()
	router.Use(AuthMiddleware(cfg))
	router.GET("/whoami", func(c *gin.Context) {
		accountID, _ := c.Get("accountID")
		c.JSON(http.StatusOK, gin.H{"account_id": accountID.(uuid.UUID).String()})
	})
	return router
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	router := newAuthTestRouter("auth-test-secret")
	accountID := uuid.New()

	token, err := utils.GenerateToken(accountID, "auth-test-secret", 1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), accountID.String())
}

func TestAuthMiddlewareRejections(t *testing.T) {
	router := newAuthTestRouter("auth-test-secret")

	foreignToken, err := utils.GenerateToken(uuid.New(), "some-other-secret", 1)
	require.NoError(t, err)

	tests := map[string]struct {
		header      string
		wantMessage string
	}{
		"missing header": {"", "Authorization header required"},
		"wrong scheme":   {"Token abc123", "Invalid authorization header format"},
		"garbage token":  {"Bearer not.a.token", "Invalid or expired token"},
		"wrong secret":   {"Bearer " + foreignToken, "Invalid or expired token"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantMessage)
		})
	}
}
