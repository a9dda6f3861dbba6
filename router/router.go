package router

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sanjiv-madhavan/natours-api/apperror"
	"github.com/sanjiv-madhavan/natours-api/controllers"
	"github.com/sanjiv-madhavan/natours-api/middleware"
	"github.com/sanjiv-madhavan/natours-api/models"
)

// CreateMuxRouter wires every route. Public routes only pass through the
// error adapter; protected ones resolve the caller first and restricted ones
// then check the caller's role.
func CreateMuxRouter(logger *slog.Logger, mw *middleware.Middleware, controller *controllers.Controller, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()

	public := mw.Handle
	protect := func(h middleware.HandlerFunc) http.Handler {
		return mw.Protect(mw.Handle(h))
	}
	restrict := func(roles ...models.Role) func(middleware.HandlerFunc) http.Handler {
		guard := mw.RestrictTo(roles...)
		return func(h middleware.HandlerFunc) http.Handler {
			return mw.Protect(guard(mw.Handle(h)))
		}
	}
	adminOnly := restrict(models.RoleAdmin)
	tourStaff := restrict(models.RoleAdmin, models.RoleLeadGuide)

	r.Handle("/healthz", public(controller.HealthCheckHandler)).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	users := api.PathPrefix("/users").Subrouter()
	users.Handle("/signup", public(controller.Signup)).Methods(http.MethodPost)
	users.Handle("/login", public(controller.Login)).Methods(http.MethodPost)
	users.Handle("/forgotPassword", public(controller.ForgotPassword)).Methods(http.MethodPost)
	users.Handle("/resetPassword/{token}", public(controller.ResetPassword)).Methods(http.MethodPatch)
	users.Handle("/updateMyPassword", protect(controller.UpdatePassword)).Methods(http.MethodPatch)
	users.Handle("/me", protect(controller.GetMe)).Methods(http.MethodGet)
	users.Handle("/logout", protect(controller.Logout)).Methods(http.MethodPost)
	users.Handle("/sessions/revoke", adminOnly(controller.RevokeAllSessions)).Methods(http.MethodPost)
	users.Handle("", adminOnly(controller.GetAllUsers)).Methods(http.MethodGet)
	users.Handle("/{id}", adminOnly(controller.GetUser)).Methods(http.MethodGet)

	tours := api.PathPrefix("/tours").Subrouter()
	tours.Handle("/top-5-cheap", public(controller.AliasTopTours)).Methods(http.MethodGet)
	tours.Handle("/tour-stats", public(controller.GetTourStats)).Methods(http.MethodGet)
	tours.Handle("/monthly-plan/{year}", public(controller.GetMonthlyPlan)).Methods(http.MethodGet)
	tours.Handle("", public(controller.GetAllTours)).Methods(http.MethodGet)
	tours.Handle("", tourStaff(controller.CreateTour)).Methods(http.MethodPost)
	tours.Handle("/{id}", public(controller.GetTour)).Methods(http.MethodGet)
	tours.Handle("/{id}", tourStaff(controller.UpdateTour)).Methods(http.MethodPatch)
	tours.Handle("/{id}", tourStaff(controller.DeleteTour)).Methods(http.MethodDelete)

	r.NotFoundHandler = public(func(w http.ResponseWriter, req *http.Request) error {
		return apperror.NotFound("Can't find " + req.URL.Path + " on this server!")
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", middleware.HeaderRequestID}),
		handlers.ExposedHeaders([]string{middleware.HeaderRequestID}),
	)

	logger.Debug("Routes registered")
	return mw.RequestID(mw.AccessLog(mw.PanicRecoveryHandler(cors(r))))
}
