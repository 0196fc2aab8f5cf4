package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func sign(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func protectedRouter() http.Handler {
	r := chi.NewRouter()
	r.With(JWTAuthMiddleware(testSecret), SameUserMiddleware).
		Get("/users/{user_id}", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(UserID(r.Context())))
		})
	return r
}

func TestJWTAuth(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name       string
		header     string
		path       string
		wantStatus int
	}{
		{"missing token", "", "/users/alice", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", "/users/alice", http.StatusUnauthorized},
		{
			"wrong secret",
			"Bearer " + sign(t, []byte("other"), jwt.MapClaims{"user_id": "alice", "exp": exp}),
			"/users/alice", http.StatusUnauthorized,
		},
		{
			"expired",
			"Bearer " + sign(t, testSecret, jwt.MapClaims{"user_id": "alice", "exp": time.Now().Add(-time.Hour).Unix()}),
			"/users/alice", http.StatusUnauthorized,
		},
		{
			"no subject",
			"Bearer " + sign(t, testSecret, jwt.MapClaims{"exp": exp}),
			"/users/alice", http.StatusUnauthorized,
		},
		{
			"own user",
			"Bearer " + sign(t, testSecret, jwt.MapClaims{"user_id": "alice", "exp": exp}),
			"/users/alice", http.StatusOK,
		},
		{
			"other user",
			"Bearer " + sign(t, testSecret, jwt.MapClaims{"user_id": "alice", "exp": exp}),
			"/users/bob", http.StatusForbidden,
		},
		{
			"service token",
			"Bearer " + sign(t, testSecret, jwt.MapClaims{"service": true, "exp": exp}),
			"/users/bob", http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protectedRouter().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestParseTokenRejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"service": true}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err = ParseTokenFromRequest(req, testSecret)
	assert.Error(t, err)
}

func TestReadOnlyMiddleware(t *testing.T) {
	handler := ReadOnlyMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for method, want := range map[string]int{
		http.MethodGet:    http.StatusNoContent,
		http.MethodHead:   http.StatusNoContent,
		http.MethodPost:   http.StatusMethodNotAllowed,
		http.MethodDelete: http.StatusMethodNotAllowed,
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/api/users/alice/persona/30d", nil))
		assert.Equal(t, want, rec.Code, method)
	}
}
