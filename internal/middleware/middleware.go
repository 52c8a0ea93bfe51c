package middleware

import (
	"net/http"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// sessionHeader carries the anonymous session key issued by the frontend.
const sessionHeader = "X-Session-Key"

// CORS adds CORS headers to the response.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+sessionHeader)

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Identity resolves the caller from the Authorization header or, failing
// that, from the session key header. Requests without either still pass
// through as anonymous; route guards decide what anonymity may do.
func Identity(verifier *auth.Verifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionKey := r.Header.Get(sessionHeader)

			header := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(header, "Bearer "); ok {
				ident, err := verifier.Verify(token)
				if err != nil {
					logger.Warn().Err(err).Str("path", r.URL.Path).Msg("rejected bearer token")
					unauthorised(w, "invalid or expired token")
					return
				}
				ident.SessionKey = sessionKey
				next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), ident)))
				return
			}

			ident := &auth.Identity{Anonymous: true, SessionKey: sessionKey}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), ident)))
		})
	}
}

// RequireAuth rejects anonymous callers.
func RequireAuth(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.FromContext(r.Context()).Anonymous {
				logger.Warn().Str("path", r.URL.Path).Msg("anonymous caller on authenticated route")
				unauthorised(w, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := auth.FromContext(r.Context())
			if ident.Anonymous {
				unauthorised(w, "authentication required")
				return
			}
			if !ident.IsAdmin() {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("user_id", ident.UserID.String()).
					Msg("non-admin caller on admin route")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error": "` + model.ErrCodeForbidden + `", "message": "admin role required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit bounds how often a caller may hit the wrapped route within the
// window. Callers are keyed by user ID when authenticated, session key
// otherwise; a caller with neither is rejected outright.
func RateLimit(c *cache.Cache, limit int, window time.Duration, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := auth.FromContext(r.Context())

			caller := ident.SessionKey
			if !ident.Anonymous {
				caller = ident.UserID.String()
			}
			if caller == "" {
				unauthorised(w, "session key or authentication required")
				return
			}

			if !c.AllowOrderNow(r.Context(), caller, limit, window) {
				logger.Warn().Str("caller", caller).Str("path", r.URL.Path).Msg("rate limit exceeded")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "` + model.ErrCodeRateLimited + `", "message": "too many order attempts, slow down"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Logging logs HTTP requests with timing information.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response writer wrapper to capture status code
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Dur("duration", duration).
				Str("remote_addr", r.RemoteAddr).
				Msg("http request")
		})
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error().
						Interface("panic", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error": "internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorised(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "` + model.ErrCodeUnauthorised + `", "message": "` + message + `"}`))
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
