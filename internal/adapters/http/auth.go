package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/classmeet/internal/domain"
)

const (
	ctxUserID   = "user_id"
	ctxUserName = "user_name"
)

// Auth verifies an HS256 bearer token issued by the account service and
// stores its user_id and name claims on the context.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		scheme, tokenStr, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil {
			var ve *jwt.ValidationError
			switch {
			case errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			case errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorMalformed != 0:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is malformed"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		uid, err := claimUserID(claims["user_id"])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		name, _ := claims["name"].(string)

		log.Debug().Str("module", "adapters.http").Str("user", uid.String()).Msg("authenticated")
		c.Set(ctxUserID, uid)
		c.Set(ctxUserName, name)
		c.Next()
	}
}

func claimUserID(v any) (domain.UserID, error) {
	switch id := v.(type) {
	case float64:
		if id <= 0 || id != float64(int64(id)) {
			return 0, domain.ErrUserIDInvalid
		}
		return domain.UserID(id), nil
	case string:
		return domain.ParseUserID(id)
	default:
		return 0, domain.ErrUserIDInvalid
	}
}

func currentUser(c *gin.Context) (domain.UserID, string) {
	uid, _ := c.Get(ctxUserID)
	id, _ := uid.(domain.UserID)
	return id, c.GetString(ctxUserName)
}

// SignToken issues a token the Auth middleware accepts. Used by tests and
// local tooling.
func SignToken(secret []byte, uid domain.UserID, name string, claims jwt.MapClaims) (string, error) {
	mc := jwt.MapClaims{"user_id": strconv.FormatInt(int64(uid), 10), "name": name}
	for k, v := range claims {
		mc[k] = v
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(secret)
}
