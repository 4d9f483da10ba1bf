package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenGenerator(t *testing.T) {
	tg := NewTokenGenerator("test-secret-key", 1*time.Hour)

	assert.NotNil(t, tg)
	assert.Equal(t, "test-secret-key", tg.secret)
	assert.Equal(t, 1*time.Hour, tg.accessTokenExpiry)
}

func TestTokenGenerator_GenerateAccessToken(t *testing.T) {
	tg := NewTokenGenerator("b8a3c2267dc85f855dea9b46b452bf20", 1*time.Hour)

	t.Run("round trip preserves userID and role", func(t *testing.T) {
		token, err := tg.GenerateAccessToken(123, RoleModerator)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		userID, role, err := tg.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, 123, userID)
		assert.Equal(t, RoleModerator, role)
	})

	t.Run("userID zero", func(t *testing.T) {
		token, err := tg.GenerateAccessToken(0, RoleStudent)
		require.NoError(t, err)

		userID, _, err := tg.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, 0, userID)
	})
}

func TestTokenGenerator_ValidateAccessToken(t *testing.T) {
	tg := NewTokenGenerator("b8a3c2267dc85f855dea9b46b452bf20", 1*time.Hour)

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		other := NewTokenGenerator("different-secret", 1*time.Hour)
		token, err := other.GenerateAccessToken(1, RoleStudent)
		require.NoError(t, err)

		_, _, err = tg.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expired := NewTokenGenerator(tg.secret, -1*time.Hour)
		token, err := expired.GenerateAccessToken(1, RoleStudent)
		require.NoError(t, err)

		_, _, err = tg.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("rejects non-access token type", func(t *testing.T) {
		claims := jwt.MapClaims{
			"user_id": float64(1),
			"role":    float64(RoleStudent),
			"exp":     time.Now().Add(1 * time.Hour).Unix(),
			"iat":     time.Now().Unix(),
			"type":    "refresh",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tg.secret))
		require.NoError(t, err)

		_, _, err = tg.ValidateAccessToken(token)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not an access token")
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, _, err := tg.ValidateAccessToken("not.a.token")
		assert.Error(t, err)
	})
}

func TestMiddleware(t *testing.T) {
	tg := NewTokenGenerator("middleware-secret", 1*time.Hour)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		require.True(t, ok)
		assert.Equal(t, 42, userID)
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(tg)(next)

	t.Run("missing token returns 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "authentication required")
	})

	t.Run("invalid token returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer token puts userID on context", func(t *testing.T) {
		token, err := tg.GenerateAccessToken(42, RoleStudent)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("access_token cookie is accepted", func(t *testing.T) {
		token, err := tg.GenerateAccessToken(42, RoleStudent)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRoleMiddleware(t *testing.T) {
	tg := NewTokenGenerator("role-secret", 1*time.Hour)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RoleMiddleware(tg, RoleModerator)(next)

	request := func(t *testing.T, role int) *httptest.ResponseRecorder {
		token, err := tg.GenerateAccessToken(7, role)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("student role is rejected", func(t *testing.T) {
		rec := request(t, RoleStudent)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "insufficient permissions")
	})

	t.Run("moderator role passes", func(t *testing.T) {
		rec := request(t, RoleModerator)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admin role passes", func(t *testing.T) {
		rec := request(t, RoleAdmin)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token returns 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
