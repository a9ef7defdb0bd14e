package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTokenValidator map[string]string

func (v testTokenValidator) ValidateToken(tokenString string) (UserNameGetter, error) {
	name, ok := v[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return testClaims(name), nil
}

type testClaims string

func (c testClaims) GetUserName() string { return string(c) }

func TestAuthMiddleware_ValidToken(t *testing.T) {
	validator := testTokenValidator{"valid-test-token-123": "ana"}

	var contextUser string
	handler := AuthMiddleware(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, err := GetUserName(r)
		require.NoError(t, err)
		contextUser = name
		w.WriteHeader(http.StatusOK)
	}))

	for _, header := range []string{"Bearer valid-test-token-123", "bearer   valid-test-token-123"} {
		req := httptest.NewRequest(http.MethodPost, "/ask", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, header)
		assert.Equal(t, "ana", contextUser)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	validator := testTokenValidator{"good": "ana"}

	tests := []struct {
		name       string
		authHeader string
	}{
		{name: "missing header", authHeader: ""},
		{name: "no scheme", authHeader: "good"},
		{name: "basic scheme", authHeader: "Basic good"},
		{name: "extra parts", authHeader: "Bearer good extra"},
		{name: "unknown token", authHeader: "Bearer bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := AuthMiddleware(validator)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodPost, "/ask", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.False(t, called, "handler should not be called")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "Unauthorized")
		})
	}
}

func TestGetUserName_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetUserName(req)
	assert.Error(t, err)
}
