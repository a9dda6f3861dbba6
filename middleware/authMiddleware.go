package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sanjiv-madhavan/natours-api/apperror"
	"github.com/sanjiv-madhavan/natours-api/constants"
	"github.com/sanjiv-madhavan/natours-api/models"
	"github.com/sanjiv-madhavan/natours-api/services"
)

// Protect admits only requests carrying a valid session token and stores the
// resolved user on the request context.
func (m *Middleware) Protect(inner http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		user, err := m.auth.Protect(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			m.SendError(w, r, err)
			return
		}
		inner.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	}
	return http.HandlerFunc(fn)
}

// RestrictTo must run after Protect. Unknown roles panic when the route is
// built.
func (m *Middleware) RestrictTo(roles ...models.Role) mux.MiddlewareFunc {
	guard := services.RestrictTo(roles...)
	return func(inner http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				m.SendError(w, r, apperror.Authentication("You are not logged in! Please log in to get access."))
				return
			}
			if err := guard.Check(user); err != nil {
				m.SendError(w, r, err)
				return
			}
			inner.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, constants.CurrentUser, user)
}

func CurrentUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(constants.CurrentUser).(*models.User)
	return user, ok && user != nil
}
