package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/simple-todos/internal/api/shared"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/platform/logger"
	"github.com/phrazzld/simple-todos/internal/service/auth"
)

// TokenQueryParam carries the access token for clients that cannot set
// headers, such as browser websockets.
const TokenQueryParam = "token"

// AuthMiddleware identifies the caller of a request from its JWT.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// Identify puts the request's domain.Caller in the context. A request without
// credentials proceeds as domain.Anonymous and is left to the service layer to
// reject; a request with a bad token is answered with 401.
func (m *AuthMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractToken(r)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid authorization format", err,
				shared.WithElevatedLogLevel())
			return
		}
		if token == "" {
			next.ServeHTTP(w, r.WithContext(shared.WithCaller(r.Context(), domain.Anonymous)))
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Token expired", err)
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrTokenNotYetValid),
				errors.Is(err, auth.ErrWrongTokenType):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid token", err,
					shared.WithElevatedLogLevel())
			default:
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
			}
			return
		}

		caller := domain.NewCaller(claims.UserID, claims.Username)
		ctx := shared.WithCaller(r.Context(), caller)
		log := logger.FromContextOrDefault(ctx, slog.Default()).With(slog.String("user_id", caller.UserID.String()))
		ctx = logger.WithLogger(ctx, log)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken returns the bearer token from the Authorization header or the
// token query parameter, or "" when neither is present. A Bearer header with
// no token is ErrMissingToken; any other malformed header is ErrInvalidToken.
func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return r.URL.Query().Get(TokenQueryParam), nil
	}
	scheme, token, _ := strings.Cut(strings.TrimSpace(header), " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", auth.ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return "", auth.ErrMissingToken
	case strings.Contains(token, " "):
		return "", auth.ErrInvalidToken
	}
	return token, nil
}
