package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "user_id"

var (
	errMissingToken = errors.New("missing authorization header")
	errInvalidToken = errors.New("invalid or expired token")
)

// Auth requires an HS256 bearer token whose claims carry a user_id. Session
// issuance lives with the identity provider; this only verifies.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		tokenString, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		userID, err := validateToken(tokenString, key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken.Error()})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("invalid authorization format")
	}
	return parts[1], nil
}

func validateToken(tokenString string, key []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errInvalidToken
	}
	if tokenType, _ := claims["type"].(string); tokenType == "refresh" {
		return "", errors.New("cannot use refresh token for authentication")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errInvalidToken
	}
	return userID, nil
}
