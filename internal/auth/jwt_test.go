package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/tasklane-be/internal/models"
)

func TestGenerateAndValidate(t *testing.T) {
	t.Parallel()

	svc := NewService("super-secret", 7*24*time.Hour)
	user := models.User{ID: "user-123", TokenVersion: 2}

	tok, err := svc.Generate(user)
	require.NoError(t, err)

	claims, err := svc.Validate(tok)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.UserID)
	require.Equal(t, 2, claims.TokenVersion)
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewService("right-secret", time.Hour).Generate(models.User{ID: "u1"})
	require.NoError(t, err)

	_, err = NewService("wrong-secret", time.Hour).Validate(tok)
	require.Error(t, err)
}

func TestValidate_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewService("k", time.Hour).Validate("not.a.jwt")
	require.Error(t, err)
}

// signedWithExpiry mints a token with an explicit expiry so the 7-day
// boundary can be probed without sleeping.
func signedWithExpiry(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	svc := NewService("secret", 7*24*time.Hour)

	// A 7-day token checked 6 days in is still one day from expiry.
	stillValid := signedWithExpiry(t, "secret", time.Now().Add(24*time.Hour))
	_, err := svc.Validate(stillValid)
	require.NoError(t, err)

	// Checked 8 days in, it expired a day ago.
	expired := signedWithExpiry(t, "secret", time.Now().Add(-24*time.Hour))
	_, err = svc.Validate(expired)
	require.Error(t, err)
}

type stubResolver struct {
	users map[string]models.User
}

func (s stubResolver) GetUserByID(id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, jwt.ErrTokenMalformed // any error will do; middleware treats them alike
	}
	return user, nil
}

func protectedHandler(t *testing.T, svc *Service, resolver UserResolver) http.Handler {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(user.ID))
	})
	return svc.Middleware(resolver)(next)
}

func TestMiddleware_RejectionsShareOneEnvelope(t *testing.T) {
	t.Parallel()

	svc := NewService("secret", time.Hour)
	alice := models.User{ID: "alice", TokenVersion: 0}
	handler := protectedHandler(t, svc, stubResolver{users: map[string]models.User{"alice": alice}})

	staleVersion, err := svc.Generate(models.User{ID: "alice", TokenVersion: 99})
	require.NoError(t, err)
	deletedUser, err := svc.Generate(models.User{ID: "ghost"})
	require.NoError(t, err)

	cases := map[string]string{
		"no header":       "",
		"malformed":       "Bearer not.a.jwt",
		"wrong scheme":    "Basic abc",
		"expired":         "Bearer " + signedWithExpiry(t, "secret", time.Now().Add(-time.Minute)),
		"deleted account": "Bearer " + deletedUser,
		"stale token ver": "Bearer " + staleVersion,
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			// Identical envelope regardless of which check tripped
			require.Equal(t, map[string]string{"message": "authentication required"}, body)
		})
	}
}

func TestMiddleware_AttachesIdentity(t *testing.T) {
	t.Parallel()

	svc := NewService("secret", time.Hour)
	alice := models.User{ID: "alice", TokenVersion: 0}
	handler := protectedHandler(t, svc, stubResolver{users: map[string]models.User{"alice": alice}})

	tok, err := svc.Generate(alice)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice", rec.Body.String())
}
