package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/robonova/competition-core/services"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, userID int, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		jwtClaimUserID: userID,
		jwtClaimRole:   role,
	})
	raw, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func echoClaims(t *testing.T, gotUser *int, gotRole *services.Role) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := GetUserIDFromContext(r.Context()); err == nil {
			*gotUser = id
		}
		if role, err := GetRoleFromContext(r.Context()); err == nil {
			*gotRole = role
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateValidToken(t *testing.T) {
	a := NewAuthenticator(testSecret)
	var userID int
	var role services.Role
	handler := a.Authenticate(echoClaims(t, &userID, &role))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, 42, "head_judge"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 42, userID)
	require.Equal(t, services.RoleHeadJudge, role)
}

func TestAuthenticateRejects(t *testing.T) {
	a := NewAuthenticator(testSecret)
	handler := a.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"missing token", func(r *http.Request) {}},
		{"garbage token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not-a-jwt")
		}},
		{"wrong secret", func(r *http.Request) {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{jwtClaimUserID: 1})
			raw, err := token.SignedString([]byte("other-secret"))
			require.NoError(t, err)
			r.Header.Set("Authorization", "Bearer "+raw)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestTokenFromQueryParameter(t *testing.T) {
	a := NewAuthenticator(testSecret)
	var userID int
	var role services.Role
	handler := a.Authenticate(echoClaims(t, &userID, &role))

	// Browsers cannot set headers on websocket upgrades.
	req := httptest.NewRequest(http.MethodGet, "/ws/sessions/1?token="+signedToken(t, 7, "judge"), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 7, userID)
	require.Equal(t, services.RoleJudge, role)
}

func TestOptionalAllowsAnonymous(t *testing.T) {
	a := NewAuthenticator(testSecret)
	var role services.Role
	var userID int
	handler := a.Optional(echoClaims(t, &userID, &role))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// A present but invalid token is still rejected.
	req = httptest.NewRequest(http.MethodGet, "/?token=broken", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorizeRoles(t *testing.T) {
	a := NewAuthenticator(testSecret)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := a.Authenticate(Authorize(services.RoleAdmin, services.RoleHeadJudge)(ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, 1, "admin"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, 1, "judge"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
