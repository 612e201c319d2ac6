package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	ClaimsKey contextKey = "claims"
)

// Claims is the bearer token payload: the user id plus the profile fields
// the web client renders without an extra profile fetch.
type Claims struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage,omitempty"`
	City         string `json:"city,omitempty"`
	Country      string `json:"country,omitempty"`
	jwt.RegisteredClaims
}

func Auth(jwtSecret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(auth, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, `{"error":"invalid authorization format"}`, http.StatusUnauthorized)
				return
			}
			claims, userID, err := parseToken(parts[1], jwtSecret)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims, userID)))
		})
	}
}

// OptionalAuth attaches the caller's identity when a valid bearer token is
// present and treats everything else as anonymous.
func OptionalAuth(jwtSecret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			parts := strings.SplitN(auth, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				next.ServeHTTP(w, r)
				return
			}
			claims, userID, err := parseToken(parts[1], jwtSecret)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims, userID)))
		})
	}
}

func parseToken(tokenString, jwtSecret string) (*Claims, primitive.ObjectID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, primitive.NilObjectID, jwt.ErrTokenMalformed
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, primitive.NilObjectID, jwt.ErrTokenInvalidClaims
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, primitive.NilObjectID, jwt.ErrTokenInvalidClaims
	}
	return claims, userID, nil
}

func withClaims(ctx context.Context, claims *Claims, userID primitive.ObjectID) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, ClaimsKey, claims)
}

func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(UserIDKey).(primitive.ObjectID)
	return id, ok
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}
