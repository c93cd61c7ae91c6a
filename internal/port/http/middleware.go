package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const SessionHeader = "X-Session-ID"

type contextKey string

const identityCtxKey = contextKey("cart_identity")

// Claims is the JWT payload issued by the user service.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type IdentityConfig struct {
	JWTSecret     string
	SessionCookie string
	SessionMaxAge time.Duration
	SecureCookie  bool
}

func WithIdentity(ctx context.Context, identity entity.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

func IdentityFromContext(ctx context.Context) (entity.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey).(entity.Identity)
	return identity, ok
}

// IdentityMiddleware resolves the caller. A bearer token, when present, must be
// valid. Requests without a session get a fresh one in a cookie.
func IdentityMiddleware(cfg IdentityConfig, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string
			if header := r.Header.Get("Authorization"); header != "" {
				parsed, err := parseBearerToken(header, cfg.JWTSecret)
				if err != nil {
					log.Warnw("Rejected bearer token", "path", r.URL.Path, "error", err)
					respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				userID = parsed
			}

			sessionID := sessionFromRequest(r, cfg.SessionCookie)
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.SessionCookie,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(cfg.SessionMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.SecureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}

			identity := entity.Identity{UserID: userID, SessionID: sessionID}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func sessionFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

func parseBearerToken(header, secret string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer <token>'")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token is not valid")
	}
	if claims.UserID == "" {
		return "", errors.New("user_id not found in token claims")
	}
	return claims.UserID, nil
}

// RequestLogger logs one structured line per request.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Infow("HTTP request",
				"request_id", chimiddleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// Metrics records request counts and latency by chi route pattern.
func Metrics(m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTPRequest(route, r.Method, status, time.Since(start))
		})
	}
}
