package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type testResolver struct {
	tokenToPrincipal map[string]string
	err              error
}

func (r *testResolver) ResolvePrincipal(_ context.Context, token string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	principal, ok := r.tokenToPrincipal[token]
	if !ok {
		return "", ErrUnauthorized
	}
	return principal, nil
}

func TestAuthMiddleware(t *testing.T) {
	resolver := &testResolver{tokenToPrincipal: map[string]string{"token": "moderator"}}

	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "moderator", principal)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_Invalid(t *testing.T) {
	resolver := &testResolver{err: errors.New("invalid")}

	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	resolver := &testResolver{tokenToPrincipal: map[string]string{"token": "moderator"}}

	called := false
	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, called)
}

func TestKeyResolver(t *testing.T) {
	resolver := NewKeyResolver(map[string]string{
		HashToken("secret"): "moderator",
	})

	principal, err := resolver.ResolvePrincipal(context.Background(), "secret")
	require.NoError(t, err)
	require.Equal(t, "moderator", principal)

	_, err = resolver.ResolvePrincipal(context.Background(), "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestHashToken(t *testing.T) {
	require.Equal(t, "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b", HashToken("secret"))
	require.Len(t, HashToken(""), 64)
}
