package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/ratelimit"
)

type tokenVerifier interface {
	Verify(token string) (application.Principal, error)
}

// RequireIdentity resolves the bearer token into an application.Principal.
func RequireIdentity(verifier tokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingToken)
				return
			}

			principal, err := verifier.Verify(token)
			if err != nil {
				if !errors.Is(err, ErrInvalidToken) {
					responder.writeError(r.Context(), w, http.StatusInternalServerError, err)
					return
				}
				responder.writeError(r.Context(), w, http.StatusUnauthorized, ErrInvalidToken)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			if logger := LoggerFromContext(ctx); logger != nil {
				ctx = ContextWithLogger(ctx, logger.With("user_id", principal.UserID, "role", principal.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger places a request scoped logger in the context and logs
// completion with status and duration.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.InfoContext(ctx, "request completed",
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// RateLimitPolicy bounds requests per caller within a fixed window.
type RateLimitPolicy struct {
	Limit  int
	Window time.Duration
}

// Enabled reports whether the policy limits anything.
func (p RateLimitPolicy) Enabled() bool {
	return p.Limit > 0 && p.Window > 0
}

// RateLimitRecorder counts rejected requests.
type RateLimitRecorder interface {
	RateLimited(route string)
}

// RateLimit rejects callers that exceed policy. Authenticated callers are
// keyed by user id, anonymous ones by client address.
func RateLimit(limiter ratelimit.Limiter, policy RateLimitPolicy, recorder RateLimitRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		if limiter == nil || !policy.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)
			if limiter.Allow(r.Context(), key, policy.Limit, policy.Window) {
				next.ServeHTTP(w, r)
				return
			}

			if recorder != nil {
				recorder.RateLimited(routePattern(r))
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds()+0.5)))
			responder.writeJSON(r.Context(), w, http.StatusTooManyRequests, errorResponse{
				ErrorCode: "RATE_LIMITED",
				Message:   "too many requests, slow down",
			})
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if principal, ok := PrincipalFromContext(r.Context()); ok && principal.UserID != "" {
		return "user:" + principal.UserID
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

func healthHandler(check HealthCheck, logger *slog.Logger) http.HandlerFunc {
	responder := newResponder(logger)

	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				responder.writeError(r.Context(), w, http.StatusServiceUnavailable, err)
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
