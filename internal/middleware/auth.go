package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/services"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/utils"
	"go.uber.org/zap"
)

// Context keys set by the auth middleware.
const (
	ContextUserID      = "userId"
	ContextUserRole    = "userRole"
	ContextCounselorID = "counselorId"

	AccessTokenCookie = "accessToken"
)

// TokenParser validates access tokens.
type TokenParser interface {
	ParseAccessToken(token string) (*services.TokenClaims, error)
}

// UserLookup loads the account behind a token.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// AuthMiddleware verifies the caller's access token and stores the caller's
// identity in the gin context.
type AuthMiddleware struct {
	tokens TokenParser
	users  UserLookup
	logger *zap.Logger
}

func NewAuthMiddleware(tokens TokenParser, users UserLookup, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, users: users, logger: logger}
}

// RequireAuth accepts "Authorization: Bearer <token>" or the accessToken
// cookie. A missing token is 401; a bad token or unknown user is 403.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortWith(c, http.StatusUnauthorized, "Access Denied. No token provided.")
			return
		}

		claims, err := am.tokens.ParseAccessToken(token)
		if err != nil {
			am.logger.Debug("Rejected access token", zap.String("token", utils.MaskToken(token)), zap.Error(err))
			abortWith(c, http.StatusForbidden, "Invalid or expired token")
			return
		}

		user, err := am.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			am.logger.Warn("Token user lookup failed", zap.Int64("user_id", claims.UserID), zap.Error(err))
			abortWith(c, http.StatusForbidden, "Invalid or expired token")
			return
		}
		if !user.IsActive {
			abortWith(c, http.StatusForbidden, "Account is not active")
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserRole, user.RoleName)
		if user.CounselorID != nil {
			c.Set(ContextCounselorID, *user.CounselorID)
		}
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		abortWith(c, http.StatusForbidden, "You do not have permission to perform this action")
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// UserID returns the authenticated user's id, or 0.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}

// ActorFromContext describes the authenticated caller for permission checks.
func ActorFromContext(c *gin.Context) services.Actor {
	actor := services.Actor{
		UserID: c.GetInt64(ContextUserID),
		Role:   c.GetString(ContextUserRole),
	}
	if v, ok := c.Get(ContextCounselorID); ok {
		if id, ok := v.(int64); ok {
			actor.CounselorID = &id
		}
	}
	return actor
}

func abortWith(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
