// Package services holds the authentication and session lifecycle: signup,
// login, token verification, role guards and the password reset flow.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sanjiv-madhavan/natours-api/apperror"
	"github.com/sanjiv-madhavan/natours-api/database"
	"github.com/sanjiv-madhavan/natours-api/mailer"
	"github.com/sanjiv-madhavan/natours-api/models"
	"github.com/sanjiv-madhavan/natours-api/utils"
)

const (
	msgNotLoggedIn       = "You are not logged in! Please log in to get access."
	msgUserGone          = "The user belonging to this token no longer exists."
	msgPasswordChanged   = "User recently changed password! Please log in again."
	msgSessionRevoked    = "Your session has been revoked. Please log in again."
	msgMissingCredential = "Please provide email and password!"
	msgBadCredentials    = "Incorrect email or password"
	msgNoSuchEmail       = "There is no user with that email address."
	msgEmailFailed       = "There was an error sending the email. Try again later!"
	msgBadResetToken     = "Token is invalid or has expired"
	msgWrongPassword     = "Your current password is wrong."
	msgDuplicateEmail    = "Duplicate field value: email. Please use another value!"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByResetToken(ctx context.Context, hashedToken string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type TokenIssuer interface {
	Sign(uid string, passwordVersion int) (string, error)
	Verify(token string) (*utils.AuthClaims, error)
}

type Revoker interface {
	RevokeUser(ctx context.Context, userID string, at time.Time) error
	RevokeAll(ctx context.Context, at time.Time) error
	RevokedAt(ctx context.Context, userID string) (time.Time, error)
}

// Session is what every successful authentication returns to the client.
type Session struct {
	Token string
	User  *models.User
}

type AuthService struct {
	logger   *slog.Logger
	users    UserStore
	tokens   TokenIssuer
	mailer   Mailer
	revoker  Revoker
	validate *validator.Validate
	resetTTL time.Duration
	now      func() time.Time
}

func NewAuthService(logger *slog.Logger, users UserStore, tokens TokenIssuer, mailer Mailer, revoker Revoker, resetTTL time.Duration) *AuthService {
	return &AuthService{
		logger:   logger,
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		revoker:  revoker,
		validate: utils.NewValidator(),
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// Signup always creates a regular user; roles are granted out of band.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*Session, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.Validation(utils.ValidationMessage(err))
	}

	now := s.now()
	user := &models.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     normalizeEmail(req.Email),
		Photo:     req.Photo,
		Role:      models.RoleUser,
		CreatedAt: now.UTC().Truncate(time.Millisecond),
	}
	if err := user.SetPassword(req.Password, req.PasswordConfirm, now); err != nil {
		return nil, passwordError(err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return nil, apperror.Wrap(apperror.KindValidation, msgDuplicateEmail, err)
		}
		return nil, err
	}

	s.logger.Info("User signed up", slog.String("user", user.ID.Hex()))
	return s.issue(user)
}

// Login reports a missing account and a wrong password identically.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*Session, error) {
	if req.Email == "" || req.Password == "" {
		return nil, apperror.Authentication(msgMissingCredential)
	}

	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperror.Authentication(msgBadCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !user.CorrectPassword(req.Password) {
		return nil, apperror.Authentication(msgBadCredentials)
	}

	s.logger.Info("User logged in", slog.String("user", user.ID.Hex()))
	return s.issue(user)
}

// Protect resolves the user behind an Authorization header value. A missing
// header and a token that fails verification produce the same error.
func (s *AuthService) Protect(ctx context.Context, authorization string) (*models.User, error) {
	raw := utils.BearerToken(authorization)
	if raw == "" {
		return nil, apperror.Authentication(msgNotLoggedIn)
	}
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		s.logger.Debug("Token rejected", slog.Any("error", err))
		return nil, apperror.Authentication(msgNotLoggedIn)
	}
	id, err := utils.ParseObjectID(claims.UID)
	if err != nil {
		return nil, apperror.Authentication(msgNotLoggedIn)
	}

	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperror.Authentication(msgUserGone)
	}
	if err != nil {
		return nil, err
	}

	issuedAt := claims.IssuedAt.Time
	if claims.PasswordVersion != user.PasswordVersion || user.ChangedPasswordAfter(issuedAt) {
		return nil, apperror.Authentication(msgPasswordChanged)
	}

	revokedAt, err := s.revoker.RevokedAt(ctx, claims.UID)
	if err != nil {
		return nil, apperror.Internal("Could not verify session", err)
	}
	if !revokedAt.IsZero() && issuedAt.Unix() < revokedAt.Unix() {
		return nil, apperror.Authentication(msgSessionRevoked)
	}
	return user, nil
}

// ForgotPassword runs the reset flow as three explicit steps: stage a token
// on the account, dispatch it by email, and roll the token back if the email
// could not be sent.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest, resetURL func(token string) string) error {
	if err := s.validate.Struct(req); err != nil {
		return apperror.Validation(utils.ValidationMessage(err))
	}
	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, database.ErrNotFound) {
		return apperror.NotFound(msgNoSuchEmail)
	}
	if err != nil {
		return err
	}

	token, err := s.stageResetToken(ctx, user)
	if err != nil {
		return err
	}
	if err := s.dispatchResetToken(ctx, user, resetURL(token)); err != nil {
		return s.rollbackResetToken(ctx, user, err)
	}

	s.logger.Info("Password reset token sent", slog.String("user", user.ID.Hex()))
	return nil
}

func (s *AuthService) stageResetToken(ctx context.Context, user *models.User) (string, error) {
	token, err := user.CreatePasswordResetToken(s.now(), s.resetTTL)
	if err != nil {
		return "", err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return "", err
	}
	return token, nil
}

func (s *AuthService) dispatchResetToken(ctx context.Context, user *models.User, url string) error {
	minutes := int(s.resetTTL.Round(time.Minute) / time.Minute)
	return s.mailer.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %d min)", minutes),
		Text: fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s.\n"+
			"If you didn't forget your password, please ignore this email!", url),
	})
}

// rollbackResetToken clears the staged token so the account does not stay in
// a pending reset nobody can complete.
func (s *AuthService) rollbackResetToken(ctx context.Context, user *models.User, cause error) error {
	s.logger.Error("Password reset email failed, clearing token", slog.String("user", user.ID.Hex()), slog.Any("error", cause))
	user.ClearPasswordResetToken()
	if err := s.users.Save(ctx, user); err != nil {
		s.logger.Error("Failed to clear password reset token", slog.String("user", user.ID.Hex()), slog.Any("error", err))
		return apperror.Internal(msgEmailFailed, errors.Join(cause, err))
	}
	return apperror.Internal(msgEmailFailed, cause)
}

// ResetPassword consumes a reset token. Expired tokens are cleared when they
// are presented.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken string, req models.ResetPasswordRequest) (*Session, error) {
	user, err := s.users.FindByResetToken(ctx, models.HashResetToken(rawToken))
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperror.Validation(msgBadResetToken)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if user.ResetTokenExpired(now) {
		user.ClearPasswordResetToken()
		if err := s.users.Save(ctx, user); err != nil {
			s.logger.Error("Failed to clear expired reset token", slog.String("user", user.ID.Hex()), slog.Any("error", err))
		}
		return nil, apperror.Validation(msgBadResetToken)
	}

	if err := user.SetPassword(req.Password, req.PasswordConfirm, now); err != nil {
		return nil, passwordError(err)
	}
	user.ClearPasswordResetToken()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Password reset", slog.String("user", user.ID.Hex()))
	return s.issue(user)
}

// UpdatePassword changes the password of an authenticated user after checking
// the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, userID primitive.ObjectID, req models.PasswordUpdateRequest) (*Session, error) {
	user, err := s.users.FindByIDWithPassword(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperror.Authentication(msgUserGone)
	}
	if err != nil {
		return nil, err
	}
	if !user.CorrectPassword(req.PasswordCurrent) {
		return nil, apperror.Authentication(msgWrongPassword)
	}
	if err := user.SetPassword(req.Password, req.PasswordConfirm, s.now()); err != nil {
		return nil, passwordError(err)
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Password updated", slog.String("user", user.ID.Hex()))
	return s.issue(user)
}

// Logout voids every token the user holds.
func (s *AuthService) Logout(ctx context.Context, user *models.User) error {
	if err := s.revoker.RevokeUser(ctx, user.ID.Hex(), s.now()); err != nil {
		return apperror.Internal("Could not end the session", err)
	}
	s.logger.Info("User logged out", slog.String("user", user.ID.Hex()))
	return nil
}

// RevokeAllSessions voids every token issued so far, for every user.
func (s *AuthService) RevokeAllSessions(ctx context.Context) error {
	if err := s.revoker.RevokeAll(ctx, s.now()); err != nil {
		return apperror.Internal("Could not revoke sessions", err)
	}
	s.logger.Warn("All sessions revoked")
	return nil
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	token, err := s.tokens.Sign(user.ID.Hex(), user.PasswordVersion)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func passwordError(err error) error {
	if errors.Is(err, models.ErrPasswordTooShort) || errors.Is(err, models.ErrPasswordMismatch) {
		return apperror.Wrap(apperror.KindValidation, "Invalid input data. "+err.Error(), err)
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
