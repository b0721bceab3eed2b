package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/tasklane/tasklane-be/internal/models"
)

// ErrInvalidToken is returned when a token fails signature or expiry checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims defines the JWT claims structure.
type Claims struct {
	UserID       string `json:"userId"`
	TokenVersion int    `json:"tokenVersion"`
	jwt.RegisteredClaims
}

type contextKey string

// userContextKey is the context key under which the resolved user is stored.
const userContextKey = contextKey("authUser")

// UserResolver looks up a live account for a verified token.
type UserResolver interface {
	GetUserByID(id string) (models.User, error)
}

// Service issues and verifies signed, expiring identity tokens.
// It holds no state beyond the signing secret: rotating the secret
// invalidates every outstanding token.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a token service with the given signing secret and token lifetime.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Generate creates a new JWT for a given user.
func (s *Service) Generate(user models.User) (string, error) {
	expirationTime := time.Now().Add(s.ttl)
	claims := &Claims{
		UserID:       user.ID,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and verifies a JWT string. It never panics on untrusted
// input: a malformed token, a bad signature, and an elapsed expiry all come
// back as errors.
func (s *Service) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware creates a middleware gating every identity-scoped route.
//
// It extracts the bearer token, verifies it, resolves the embedded user ID to
// a live account, checks the token version against the stored one, and
// attaches the resolved user to the request context. Every failure mode gets
// the same 401 envelope so a caller can't tell which check tripped.
func (s *Service) Middleware(users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractBearer(r)
			if tokenStr == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := s.Validate(tokenStr)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			user, err := users.GetUserByID(claims.UserID)
			if err != nil {
				// A still-valid token for a since-deleted account
				log.Warn().Str("user_id", claims.UserID).Msg("Token references unknown user")
				writeUnauthorized(w)
				return
			}

			// Tokens minted before the last password change carry a stale version
			if claims.TokenVersion != user.TokenVersion {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user attached by Middleware, if any.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// ContextWithUser attaches a user to a context. Exposed for handler tests.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": "authentication required"})
}
