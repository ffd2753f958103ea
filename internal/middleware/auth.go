package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"

	"studybuddy-backend/internal/models"
)

type contextKey string

const userKey contextKey = "user"

type userStore interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// Auth validates bearer tokens issued by the external identity provider
// (HS256, shared secret) and resolves them to a local user. The first valid
// token for an unknown subject lazily creates that user with the starting
// credit allotment.
type Auth struct {
	secret []byte
	users  userStore
}

func NewAuth(secret string, users userStore) *Auth {
	return &Auth{secret: []byte(secret), users: users}
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token claims", r)
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Token has no subject", r)
			return
		}

		user, err := a.resolveUser(r.Context(), sub, claims)
		if err != nil {
			log.Printf("Failed to resolve user for subject %s: %v", sub, err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Server error during authentication", r)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) resolveUser(ctx context.Context, sub string, claims jwt.MapClaims) (*models.User, error) {
	user, err := a.users.GetByExternalID(ctx, sub)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if name == "" {
		name = "User"
	}

	user = &models.User{
		ExternalID: sub,
		Email:      email,
		FullName:   name,
	}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("Created local user %s for identity subject %s", user.ID, sub)
	return user, nil
}

// GetUser extracts the authenticated user from the request context.
func GetUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// WithUser attaches a user to the context the same way the middleware does.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	})
}
