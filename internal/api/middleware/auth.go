package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"loanfriend/internal/config"
	"loanfriend/internal/domain/user"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the authenticated caller, extracted from a verified JWT.
type Identity struct {
	UserID   int64
	Username string
	Role     user.Role
}

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// ContextWithIdentity attaches an authenticated caller to the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := validateJWT(r, cfg.JWTSecret, logger)
			if !ok {
				http.Error(w, `{"error":{"message":"Unauthorized"}}`, http.StatusUnauthorized)
				return
			}
			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability gates a route group on the caller's role. When auth
// is disabled there is no identity in the context and the gate is open.
func RequireCapability(cap user.Capability, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if ok && !identity.Role.Can(cap) {
				logger.Warn("Capability denied", "user_id", identity.UserID, "role", identity.Role, "capability", cap)
				http.Error(w, `{"error":{"message":"Forbidden"}}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validateJWT(r *http.Request, secret string, logger *slog.Logger) (Identity, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		logger.Warn("AuthMiddleware: Missing Authorization header")
		return Identity{}, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		logger.Warn("AuthMiddleware: Invalid Authorization header format")
		return Identity{}, false
	}
	tokenString := parts[1]

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			logger.Warn("AuthMiddleware: Unexpected signing method")
			return nil, http.ErrAbortHandler
		}
		return []byte(secret), nil
	})

	if err != nil || !token.Valid {
		logger.Warn("AuthMiddleware: Invalid token", "error", err)
		return Identity{}, false
	}

	identity, ok := identityFromClaims(claims)
	if !ok {
		logger.Warn("AuthMiddleware: Token missing identity claims")
		return Identity{}, false
	}
	return identity, true
}

func identityFromClaims(claims jwt.MapClaims) (Identity, bool) {
	userIDRaw, ok := claims["user_id"].(float64)
	if !ok {
		return Identity{}, false
	}
	username, ok := claims["username"].(string)
	if !ok {
		return Identity{}, false
	}
	roleRaw, ok := claims["role"].(string)
	if !ok {
		return Identity{}, false
	}
	role := user.Role(roleRaw)
	if !role.Valid() {
		return Identity{}, false
	}
	return Identity{
		UserID:   int64(userIDRaw),
		Username: username,
		Role:     role,
	}, true
}
