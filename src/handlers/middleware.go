package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
	"github.com/username/scenariobudget/src/services"
	"github.com/username/scenariobudget/src/utils"
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	userIDContextKey    contextKey = "userID"
	scopeContextKey     contextKey = "scope"
)

// ContextualLoggerMiddleware creates a logger carrying a request id for each request.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		ctxLogger := logger.L.With(slog.String("requestID", requestID))

		ctx := logger.ToContext(r.Context(), ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware accepts HS256 bearer tokens signed with secret. The token
// subject is the user id.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxLogger := logger.FromContext(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				ctxLogger.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
				utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenString == "" {
				ctxLogger.Debug("AuthMiddleware: Token string empty", "path", r.URL.Path)
				utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
				return
			}

			var claims jwt.RegisteredClaims
			_, err := jwt.ParseWithClaims(tokenString, &claims, keyFunc,
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil || claims.Subject == "" {
				ctxLogger.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
				utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			enrichedLogger := ctxLogger.With(slog.String("userID", claims.Subject))
			ctx := logger.ToContext(r.Context(), enrichedLogger)
			ctx = context.WithValue(ctx, userIDContextKey, claims.Subject)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok && userID != ""
}

// ScenarioScopeMiddleware resolves the {scenarioID} URL parameter against
// the authenticated user's scenarios and stores the scope in the context.
func ScenarioScopeMiddleware(scenarios *services.ScenarioService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			scope := models.Scope{UserID: userID, ScenarioID: chi.URLParam(r, "scenarioID")}

			if _, err := scenarios.Get(r.Context(), scope); err != nil {
				if errors.Is(err, services.ErrScenarioNotFound) {
					utils.SendJSONError(w, "Scenario not found", http.StatusNotFound)
					return
				}
				logger.FromContext(r.Context()).Error("Failed to load scenario", "scenarioID", scope.ScenarioID, "error", err)
				utils.SendJSONError(w, "Failed to load scenario", http.StatusInternalServerError)
				return
			}

			enrichedLogger := logger.FromContext(r.Context()).With(slog.String("scenarioID", scope.ScenarioID))
			ctx := logger.ToContext(r.Context(), enrichedLogger)
			ctx = context.WithValue(ctx, scopeContextKey, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func scopeFromContext(ctx context.Context) models.Scope {
	scope, _ := ctx.Value(scopeContextKey).(models.Scope)
	return scope
}
