package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sanjiv-madhavan/natours-api/apifeatures"
	"github.com/sanjiv-madhavan/natours-api/database"
	"github.com/sanjiv-madhavan/natours-api/middleware"
	"github.com/sanjiv-madhavan/natours-api/models"
	"github.com/sanjiv-madhavan/natours-api/services"
)

type fakeAuth struct {
	session  *services.Session
	err      error
	calls    []string
	resetURL string
	token    string
	userID   primitive.ObjectID
}

func (f *fakeAuth) Signup(_ context.Context, req models.SignupRequest) (*services.Session, error) {
	f.calls = append(f.calls, "signup:"+req.Email)
	return f.session, f.err
}

func (f *fakeAuth) Login(_ context.Context, req models.LoginRequest) (*services.Session, error) {
	f.calls = append(f.calls, "login:"+req.Email)
	return f.session, f.err
}

func (f *fakeAuth) ForgotPassword(_ context.Context, req models.ForgotPasswordRequest, resetURL func(string) string) error {
	f.calls = append(f.calls, "forgot:"+req.Email)
	f.resetURL = resetURL("raw-token")
	return f.err
}

func (f *fakeAuth) ResetPassword(_ context.Context, rawToken string, _ models.ResetPasswordRequest) (*services.Session, error) {
	f.calls = append(f.calls, "reset")
	f.token = rawToken
	return f.session, f.err
}

func (f *fakeAuth) UpdatePassword(_ context.Context, userID primitive.ObjectID, _ models.PasswordUpdateRequest) (*services.Session, error) {
	f.calls = append(f.calls, "update")
	f.userID = userID
	return f.session, f.err
}

func (f *fakeAuth) Logout(_ context.Context, user *models.User) error {
	f.calls = append(f.calls, "logout")
	f.userID = user.ID
	return f.err
}

func (f *fakeAuth) RevokeAllSessions(context.Context) error {
	f.calls = append(f.calls, "revoke-all")
	return f.err
}

type fakeTours struct {
	tours     map[primitive.ObjectID]models.Tour
	lastSpec  apifeatures.Spec
	lastYear  int
	stats     []models.TourStats
	plan      []models.MonthlyPlan
	createErr error
	updated   *models.TourUpdate
}

func newFakeTours(tours ...models.Tour) *fakeTours {
	f := &fakeTours{tours: map[primitive.ObjectID]models.Tour{}}
	for _, t := range tours {
		f.tours[t.ID] = t
	}
	return f
}

func (f *fakeTours) Find(_ context.Context, spec apifeatures.Spec) ([]models.Tour, error) {
	f.lastSpec = spec
	out := []models.Tour{}
	for _, t := range f.tours {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTours) FindByID(_ context.Context, id primitive.ObjectID) (*models.Tour, error) {
	t, ok := f.tours[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTours) Create(_ context.Context, tour *models.Tour) error {
	if f.createErr != nil {
		return f.createErr
	}
	tour.ID = primitive.NewObjectID()
	f.tours[tour.ID] = *tour
	return nil
}

func (f *fakeTours) Update(_ context.Context, id primitive.ObjectID, update models.TourUpdate) (*models.Tour, error) {
	t, ok := f.tours[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	f.updated = &update
	if update.Price != nil {
		t.Price = *update.Price
	}
	if update.PriceDiscount != nil {
		t.PriceDiscount = *update.PriceDiscount
	}
	if update.Name != nil {
		t.Name = *update.Name
	}
	f.tours[id] = t
	return &t, nil
}

func (f *fakeTours) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.tours[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.tours, id)
	return nil
}

func (f *fakeTours) Stats(context.Context) ([]models.TourStats, error) {
	return f.stats, nil
}

func (f *fakeTours) MonthlyPlan(_ context.Context, year int) ([]models.MonthlyPlan, error) {
	f.lastYear = year
	return f.plan, nil
}

type fakeUsers struct {
	users    map[primitive.ObjectID]models.User
	lastSpec apifeatures.Spec
}

func (f *fakeUsers) Find(_ context.Context, spec apifeatures.Spec) ([]models.User, error) {
	f.lastSpec = spec
	out := []models.User{}
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type fixture struct {
	controller *Controller
	mw         *middleware.Middleware
	auth       *fakeAuth
	tours      *fakeTours
	users      *fakeUsers
}

func newFixture(tours ...models.Tour) *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := middleware.NewMiddleware(logger, nil)
	f := &fixture{
		mw:    mw,
		auth:  &fakeAuth{},
		tours: newFakeTours(tours...),
		users: &fakeUsers{users: map[primitive.ObjectID]models.User{}},
	}
	f.controller = NewController(logger, mw, f.auth, f.tours, f.users, map[string]Pinger{"mongo": pinger{}}, "https://natours.dev")
	return f
}

// serve runs one handler through the error adapter, the way the router does.
func (f *fixture) serve(h middleware.HandlerFunc, method, target, body string, vars map[string]string, user *models.User) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	f.mw.Handle(h).ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}
