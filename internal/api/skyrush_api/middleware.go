package skyrush_api

import (
	"context"
	"net/http"
	"time"

	"github.com/BearBump/SkyRush/internal/apperr"
	"github.com/BearBump/SkyRush/internal/logger"
	"github.com/BearBump/SkyRush/internal/session"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	sessionCookie   = "token"
	requestIDHeader = "X-Request-ID"
)

type claimsKey struct{}

// requestLogger tags every request with an id and a child logger.
func (a *SkyRushAPI) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		log := a.deps.Logger.With(zap.String("request_id", reqID))
		ctx := logger.WithContext(r.Context(), log)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// recoverPanics turns a handler panic into a 500 error body. It runs inside
// requestLogger so the request still gets its access log line.
func (a *SkyRushAPI) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			a.writeError(w, r, apperr.Internal(errors.Errorf("panic: %v", rec), "Internal server error"))
		}()
		next.ServeHTTP(w, r)
	})
}

// requireSession rejects the request unless the session cookie is valid.
func (a *SkyRushAPI) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value == "" {
			a.writeError(w, r, apperr.Unauthorized("Not authorized, no token"))
			return
		}
		claims, err := a.deps.Sessions.Parse(c.Value)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("user_id", claims.UserID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) *session.Claims {
	c, _ := ctx.Value(claimsKey{}).(*session.Claims)
	return c
}

func (a *SkyRushAPI) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(a.deps.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   a.opts.Production,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *SkyRushAPI) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.opts.Production,
		SameSite: http.SameSiteLaxMode,
	})
}
