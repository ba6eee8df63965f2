package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/auth"
	"github.com/fjod/natal_store/internal/cart"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const HeaderGuestID = "X-Guest-ID"

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
	authErrKey
)

// RequestLogger attaches a request-scoped zerolog logger to the context and
// logs one line per request.
func RequestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt := l.Info()
			if status >= http.StatusInternalServerError {
				evt = l.Error()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// LimitBody caps the request body at n bytes.
func LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate resolves the bearer token, if any, to a user. A token that
// does not resolve leaves the request anonymous; RequireUser and
// RequireAdmin report why it failed.
func Authenticate(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), tokenKey, token)
			user, err := sessions.Session(ctx, token)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindInternal {
					log.Ctx(ctx).Warn().Err(err).Msg("session lookup failed")
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, authErrKey, err)))
				return
			}
			ctx = context.WithValue(ctx, userKey, user)
			l := log.Ctx(ctx).With().Str("user_id", user.ID).Logger()
			next.ServeHTTP(w, r.WithContext(l.WithContext(ctx)))
		})
	}
}

// unauthenticated answers a request that needs a user but has none.
func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if err, ok := r.Context().Value(authErrKey).(error); ok {
		respondError(w, r, err)
		return
	}
	respondError(w, r, errUnauthorized)
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userFrom(r.Context()) == nil {
			unauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		if user == nil {
			unauthenticated(w, r)
			return
		}
		if !user.IsAdmin() {
			respondError(w, r, auth.ErrAdminOnly)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func userFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// guestOwner returns the cart owner key for the X-Guest-ID header, or "".
func guestOwner(r *http.Request) string {
	id, err := uuid.Parse(strings.TrimSpace(r.Header.Get(HeaderGuestID)))
	if err != nil {
		return ""
	}
	return cart.GuestOwner(id.String())
}

// cartOwner is the signed-in user, or the guest named by X-Guest-ID.
func cartOwner(r *http.Request) (string, error) {
	if u := userFrom(r.Context()); u != nil {
		return u.ID, nil
	}
	if owner := guestOwner(r); owner != "" {
		return owner, nil
	}
	return "", errMissingGuest
}
