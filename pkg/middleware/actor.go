package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actorKey = "user_id"

// ActorClaims are issued by the login collaborator; only the subject matters here.
type ActorClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Actor resolves who is calling so that audit entries can name them.
// Requests without a token pass through anonymously; a token that does not
// verify is rejected. Without a secret every request is anonymous and
// tokens are not read at all.
func Actor(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || len(secret) == 0 {
			c.Next()
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header must be a bearer token"})
			c.Abort()
			return
		}

		userID, err := ParseActorToken(secret, tokenString)
		if err != nil {
			log.Printf("⚠️  [ACTOR] Rejected token: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(actorKey, userID)
		c.Next()
	}
}

// ParseActorToken verifies an HS256 token and returns its user id.
func ParseActorToken(secret []byte, tokenString string) (uuid.UUID, error) {
	if len(secret) == 0 {
		return uuid.Nil, errors.New("no signing secret configured")
	}
	claims := &ActorClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, err
	}

	raw := claims.UserID
	if raw == "" {
		raw = claims.Subject
	}
	if raw == "" {
		return uuid.Nil, errors.New("token carries no user id")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id in token: %w", err)
	}
	return userID, nil
}

// ActorID returns the resolved caller, uuid.Nil when anonymous.
func ActorID(c *gin.Context) uuid.UUID {
	v, exists := c.Get(actorKey)
	if !exists {
		return uuid.Nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		log.Printf("⚠️  [ACTOR] Invalid user_id type in context: %T", v)
		return uuid.Nil
	}
	return id
}
