package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	userIDKey  contextKey = "user_id"
	serviceKey contextKey = "service"
)

var (
	errMissingToken  = errors.New("missing token")
	errInvalidToken  = errors.New("invalid token")
	errInvalidClaims = errors.New("invalid token claims")
)

// ParseTokenFromRequest extracts and validates an HMAC-signed bearer token.
func ParseTokenFromRequest(r *http.Request, secret []byte) (jwt.MapClaims, error) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		return nil, errMissingToken
	}
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		return claims, nil
	}
	return nil, errInvalidClaims
}

// JWTAuthMiddleware requires a token carrying a user_id, a service flag, or both.
func JWTAuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := ParseTokenFromRequest(r, secret)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			userID, _ := claims["user_id"].(string)
			service, _ := claims["service"].(bool)
			if userID == "" && !service {
				http.Error(w, errInvalidClaims.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, serviceKey, service)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SameUserMiddleware lets a token read only its own {user_id} route
// parameter. Service tokens may read any user.
func SameUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsService(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}
		if id := UserID(r.Context()); id == "" || id != chi.URLParam(r, "user_id") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func IsService(ctx context.Context) bool {
	service, _ := ctx.Value(serviceKey).(bool)
	return service
}
