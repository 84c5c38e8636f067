package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func requestAs(userID int) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/scores", nil)
	claims := jwt.MapClaims{jwtClaimUserID: float64(userID), jwtClaimRole: "judge"}
	return req.WithContext(context.WithValue(req.Context(), userContextKey, claims))
}

func TestScoreRateLimiterPerUser(t *testing.T) {
	l := NewScoreRateLimiter(1, 2)
	handler := l.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	// The burst allowance covers the first two submissions.
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs(1))
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(1))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Another judge has an independent budget.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(2))
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestScoreRateLimiterRequiresIdentity(t *testing.T) {
	l := NewScoreRateLimiter(1, 1)
	handler := l.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scores", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
