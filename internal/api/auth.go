package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"frontdesk-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const actorKey = "actor"

// Claims are the staff claims carried by an access token
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 access tokens issued for the front desk
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// IssueToken signs an access token for actor, valid for ttl.
func (a *Authenticator) IssueToken(actor models.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   actor.UserID,
		Username: actor.Username,
		Role:     actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", actor.UserID),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// Verify parses and validates a raw token.
func (a *Authenticator) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller as a models.Actor on the context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := a.Verify(strings.TrimSpace(raw))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(actorKey, models.Actor{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
			ClientIP: c.ClientIP(),
		})
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// actorFrom returns the authenticated caller. Routes outside the middleware
// get the zero Actor, which no mutating operation accepts.
func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{ClientIP: c.ClientIP()}
}
