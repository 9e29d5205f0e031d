package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"insightportal/internal/apperr"
	"insightportal/internal/models"
)

const (
	sessionContextKey = "auth_session"
	// LoginPath is returned to unauthenticated callers as the place to go next.
	LoginPath = "/api/users/login"
)

// Middleware resolves the caller's token into a Session and stores it in the
// gin context. Requests without a valid session stop here with 401.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authToken := s.extractToken(c)
		if authToken == "" {
			abortUnauthorized(c, "authorization required")
			return
		}
		session, err := s.ValidateToken(c.Request.Context(), authToken)
		if err != nil {
			if errors.Is(err, apperr.ErrStorageUnavailable) {
				s.logger.Error("validate token", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
				return
			}
			abortUnauthorized(c, err.Error())
			return
		}
		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// RequireRole lets the request through when roles is empty or the session
// role is listed.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFromContext(c)
		if !ok || !session.IsAuthorized() {
			abortUnauthorized(c, "authorization required")
			return
		}
		if len(roles) > 0 && !session.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not permitted"})
			return
		}
		c.Next()
	}
}

// SessionFromContext retrieves the session stored by the middleware.
func SessionFromContext(c *gin.Context) (*models.Session, bool) {
	val, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	session, ok := val.(*models.Session)
	return session, ok && session != nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "redirect": LoginPath})
}

func (s *Service) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader(s.headerName)
	if usesBearer(authHeader) {
		return strings.TrimSpace(authHeader[7:])
	}
	if token, err := c.Cookie(s.cookieName); err == nil && token != "" {
		return token
	}
	return ""
}
