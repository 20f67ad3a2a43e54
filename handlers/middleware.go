package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/permgate/permgate/services"
)

// AuthMiddleware authenticates callers of the HTTP API. The bearer token
// is accepted either as an API token (database lookup, bcrypt hashed) or
// as an HS256 JWT whose subject is the actor id. On success the actor id
// is stored in the gin context under "user_id".
type AuthMiddleware struct {
	JWTSecret    string
	TokenService *services.TokenService
}

func NewAuthMiddleware(jwtSecret string, tokenService *services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		JWTSecret:    jwtSecret,
		TokenService: tokenService,
	}
}

// RequireAuth validates the Authorization header.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		token, err := extractBearerToken(authHeader)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		// API tokens carry a fixed prefix; check them before JWT parsing.
		if m.TokenService != nil && strings.HasPrefix(token, "pgt_") {
			apiToken, err := m.TokenService.ValidateToken(c.Request.Context(), token)
			if err == nil {
				c.Set("user_id", apiToken.ActorID)
				c.Set("is_api_token", true)
				c.Set("api_token_id", apiToken.ID)
				c.Next()
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API token"})
			c.Abort()
			return
		}

		actorID, err := m.validateJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token: " + err.Error()})
			c.Abort()
			return
		}

		c.Set("user_id", actorID)
		c.Next()
	}
}

func (m *AuthMiddleware) validateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token is not valid")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}

func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("Authorization header must be 'Bearer <token>'")
	}
	return strings.TrimSpace(parts[1]), nil
}
