package authgin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	verifykit "github.com/gilbert/firebase-id-token/verify"
)

const claimsKey = "auth.claims"

// AuthRequired aborts with 401 unless the request carries a verifiable
// bearer token. Verified claims are stored on the gin context.
func AuthRequired(v *verifykit.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}
		claims, err := v.Verify(token)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"path":   c.FullPath(),
				"method": c.Request.Method,
			}).Error("token verification unavailable")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "certificates_unavailable"})
			return
		}
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// AuthOptional attaches claims when a valid token is present but never
// aborts the request.
func AuthOptional(v *verifykit.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := v.Verify(token); err == nil && claims != nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

// ClaimsFromGin returns the verified claims attached by the middleware.
func ClaimsFromGin(c *gin.Context) (jwt.MapClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(jwt.MapClaims)
	return claims, ok
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (string, bool) {
	claims, ok := ClaimsFromGin(c)
	if !ok {
		return "", false
	}
	uid, _ := claims["user_id"].(string)
	return uid, uid != ""
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
