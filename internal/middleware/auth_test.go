package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"officine/internal/authz"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func tokenFor(t *testing.T, role, typ string) string {
	return sign(t, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"email":   "x@officine.test",
		"role":    role,
		"typ":     typ,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
}

func guarded(action authz.Action) *gin.Engine {
	r := gin.New()
	r.GET("/x", JWTAuth(secret), Require(action), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).Role)
	})
	return r
}

func call(r http.Handler, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := guarded(authz.SaleRecord)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"refresh token", tokenFor(t, "pharmacist", "refresh"), http.StatusUnauthorized},
		{"unknown role", tokenFor(t, "owner", "access"), http.StatusUnauthorized},
		{"expired", sign(t, jwt.MapClaims{
			"user_id": uuid.NewString(), "role": "pharmacist", "typ": "access",
			"exp": time.Now().Add(-time.Minute).Unix(),
		}), http.StatusUnauthorized},
		{"wrong role", tokenFor(t, "client", "access"), http.StatusForbidden},
		{"allowed", tokenFor(t, "pharmacist", "access"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, call(r, tt.token).Code)
		})
	}
}

func TestParseToken_Claims(t *testing.T) {
	id := uuid.New()
	raw := sign(t, jwt.MapClaims{
		"user_id": id.String(), "email": "a@b.fr", "role": "admin", "typ": "access",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	claims, err := ParseToken(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserUUID())
	assert.Equal(t, authz.RoleAdmin, claims.AuthRole())

	_, err = ParseToken("other-secret", raw)
	assert.Error(t, err)
}
