package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sanjiv-madhavan/natours-api/apifeatures"
	"github.com/sanjiv-madhavan/natours-api/apperror"
	"github.com/sanjiv-madhavan/natours-api/constants"
	"github.com/sanjiv-madhavan/natours-api/middleware"
	"github.com/sanjiv-madhavan/natours-api/models"
	"github.com/sanjiv-madhavan/natours-api/services"
	"github.com/sanjiv-madhavan/natours-api/utils"
)

const maxBodyBytes = 1 << 20

type Auth interface {
	Signup(ctx context.Context, req models.SignupRequest) (*services.Session, error)
	Login(ctx context.Context, req models.LoginRequest) (*services.Session, error)
	ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest, resetURL func(token string) string) error
	ResetPassword(ctx context.Context, rawToken string, req models.ResetPasswordRequest) (*services.Session, error)
	UpdatePassword(ctx context.Context, userID primitive.ObjectID, req models.PasswordUpdateRequest) (*services.Session, error)
	Logout(ctx context.Context, user *models.User) error
	RevokeAllSessions(ctx context.Context) error
}

type TourStore interface {
	Find(ctx context.Context, spec apifeatures.Spec) ([]models.Tour, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Tour, error)
	Create(ctx context.Context, tour *models.Tour) error
	Update(ctx context.Context, id primitive.ObjectID, update models.TourUpdate) (*models.Tour, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context) ([]models.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error)
}

type UserFinder interface {
	Find(ctx context.Context, spec apifeatures.Spec) ([]models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Controller struct {
	logger     *slog.Logger
	middleware *middleware.Middleware
	auth       Auth
	tours      TourStore
	users      UserFinder
	checks     map[string]Pinger
	publicURL  string
	validate   *validator.Validate
	timeout    time.Duration
}

// NewController builds the handler set. publicURL is the base every emailed
// link is built from; request headers never contribute to it.
func NewController(logger *slog.Logger, middleware *middleware.Middleware, auth Auth, tours TourStore, users UserFinder, checks map[string]Pinger, publicURL string) *Controller {
	return &Controller{
		logger:     logger,
		middleware: middleware,
		auth:       auth,
		tours:      tours,
		users:      users,
		checks:     checks,
		publicURL:  strings.TrimRight(publicURL, "/"),
		validate:   utils.NewValidator(),
		timeout:    10 * time.Second,
	}
}

type envelope map[string]interface{}

func (c *Controller) respond(w http.ResponseWriter, status int, data envelope) {
	c.middleware.SendJSONResponse(w, status, envelope{"status": constants.StatusSuccess, "data": data})
}

func (c *Controller) respondSession(w http.ResponseWriter, status int, session *services.Session) {
	c.middleware.SendJSONResponse(w, status, envelope{
		"status": constants.StatusSuccess,
		"token":  session.Token,
		"data":   envelope{"user": session.User},
	})
}

func (c *Controller) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), c.timeout)
}

func (c *Controller) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Validation("Request body must not be empty")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.Validation("Request body too large")
		}
		return apperror.Wrap(apperror.KindValidation, "Invalid request body", err)
	}
	return nil
}

func currentUser(r *http.Request) (*models.User, error) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		return nil, apperror.Authentication("You are not logged in! Please log in to get access.")
	}
	return user, nil
}

// objectID rejects malformed ids as bad input rather than a missing document.
func objectID(raw string) (primitive.ObjectID, error) {
	id, err := utils.ParseObjectID(raw)
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("Invalid _id: " + raw + ".")
	}
	return id, nil
}
