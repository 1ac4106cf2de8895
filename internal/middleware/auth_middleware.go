package middleware

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys populated by the auth middleware.
const (
	ContextUserIDKey    = "userID"
	ContextUserEmailKey = "userEmail"
)

// ErrorResponse is a local definition for sending standardized error
// messages. It mirrors the one in internal/api to avoid an import cycle.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AuthMiddleware provides Gin middleware for Firebase token authentication.
type AuthMiddleware struct {
	firebaseAuthClient *auth.Client
	log                *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance. It panics if the
// auth client is nil, as authenticated routes cannot function without it.
func NewAuthMiddleware(fbAuthClient *auth.Client, logger *zap.Logger) *AuthMiddleware {
	if fbAuthClient == nil {
		panic("Firebase Auth client is not initialized for AuthMiddleware")
	}
	return &AuthMiddleware{firebaseAuthClient: fbAuthClient, log: logger}
}

// VerifyToken requires a valid Firebase ID token in the Authorization header
// and aborts with 401 otherwise. On success the user id and email are set in
// the Gin context.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		idToken, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}

		token, err := m.firebaseAuthClient.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			m.log.Warn("Rejected invalid ID token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}

		setClaims(c, token)
		c.Next()
	}
}

// OptionalToken verifies a Firebase ID token when one is presented but never
// aborts: endpoints that serve both authenticated and anonymous callers read
// the absence of a user id in context as "anonymous". An invalid token is
// treated the same as no token, so a stale session cannot break the request.
func (m *AuthMiddleware) OptionalToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		idToken, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		token, err := m.firebaseAuthClient.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			m.log.Debug("Ignoring invalid ID token on optional-auth route", zap.Error(err))
			c.Next()
			return
		}

		setClaims(c, token)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func setClaims(c *gin.Context, token *auth.Token) {
	c.Set(ContextUserIDKey, token.UID)
	if email, ok := token.Claims["email"].(string); ok {
		c.Set(ContextUserEmailKey, email)
	}
}
