package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/camden-git/pathclassifier/models"
	"github.com/camden-git/pathclassifier/repository"
	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// UserContextKey is the key used to store the user object in the request context.
	UserContextKey ContextKey = "user"
)

// UserFromContext returns the user stored by AuthMiddleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// tokenFromRequest reads a bearer token from the Authorization header. Browsers cannot set
// headers on websocket upgrades, so a token query parameter is accepted as well.
func tokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
		return "", errors.New("authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("authorization header format must be Bearer {token}")
	}
	return parts[1], nil
}

// AuthMiddleware creates a middleware handler for JWT authentication.
// It verifies the token and, if valid, fetches the user and adds them to the request context.
func AuthMiddleware(userRepo repository.UserRepository, jwtKey []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := tokenFromRequest(r)
		if err != nil {
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthenticated, err.Error())
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtKey, nil
		})
		if err != nil || !token.Valid {
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthenticated, "Invalid token")
			return
		}

		var userID uint
		if _, err := fmt.Sscan(claims.Subject, &userID); err != nil {
			log.Printf("auth: bad token subject %q: %v", claims.Subject, err)
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthenticated, "Invalid user ID in token")
			return
		}

		user, err := userRepo.GetByID(userID)
		if err != nil || !user.IsActive {
			// deleted or deactivated after the token was issued
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthenticated, "User not found")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireGlobalPermission is a middleware that checks if the authenticated user has
// a specific global permission. It should be used after AuthMiddleware.
func RequireGlobalPermission(requiredPermission string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthenticated, "Authentication required")
			return
		}

		if !user.HasGlobalPermission(requiredPermission) {
			WriteAPIError(w, http.StatusForbidden, CodeForbidden, fmt.Sprintf("Forbidden: requires global permission '%s'", requiredPermission))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireContributor allows only users holding the contributor capability. It runs before
// the body is read, so rejected uploads never reach the pipeline.
func RequireContributor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthenticated, "Authentication required")
			return
		}
		if !user.IsContributor() {
			WriteAPIError(w, http.StatusForbidden, CodeForbidden, "Forbidden: contributor access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
