package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appsvc "taskhub/internal/app"
	"taskhub/internal/model"
	"taskhub/internal/transport/http/response"
)

const (
	ContextUserKey  = "auth_user"
	ContextTokenKey = "auth_token"
)

// Auth verifies the bearer token and loads its user into the request
// context. Any failure aborts with 401 before the handler runs.
func Auth(authService *appsvc.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))

		const prefix = "Bearer "
		if header == "" || !strings.HasPrefix(header, prefix) {
			response.Error(c, http.StatusUnauthorized, "please authenticate")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
		user, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "please authenticate")
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// UserFromContext returns the user resolved by Auth.
func UserFromContext(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok
}

// TokenFromContext returns the raw bearer token resolved by Auth.
func TokenFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextTokenKey)
	if !exists {
		return "", false
	}
	token, ok := value.(string)
	return token, ok
}
