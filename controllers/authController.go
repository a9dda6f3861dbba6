package controllers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sanjiv-madhavan/natours-api/constants"
	"github.com/sanjiv-madhavan/natours-api/models"
)

func (c *Controller) Signup(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := c.context(r)
	defer cancel()

	var req models.SignupRequest
	if err := c.decode(w, r, &req); err != nil {
		return err
	}
	session, err := c.auth.Signup(ctx, req)
	if err != nil {
		return err
	}
	c.respondSession(w, http.StatusCreated, session)
	return nil
}

func (c *Controller) Login(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := c.context(r)
	defer cancel()

	var req models.LoginRequest
	if err := c.decode(w, r, &req); err != nil {
		return err
	}
	session, err := c.auth.Login(ctx, req)
	if err != nil {
		return err
	}
	c.respondSession(w, http.StatusOK, session)
	return nil
}

func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	ctx, cancel := c.context(r)
	defer cancel()

	if err := c.auth.Logout(ctx, user); err != nil {
		return err
	}
	c.middleware.SendJSONResponse(w, http.StatusOK, envelope{"status": constants.StatusSuccess})
	return nil
}

func (c *Controller) ForgotPassword(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := c.context(r)
	defer cancel()

	var req models.ForgotPasswordRequest
	if err := c.decode(w, r, &req); err != nil {
		return err
	}
	resetURL := func(token string) string {
		return fmt.Sprintf("%s/api/v1/users/resetPassword/%s", c.publicURL, token)
	}
	if err := c.auth.ForgotPassword(ctx, req, resetURL); err != nil {
		return err
	}
	c.middleware.SendJSONResponse(w, http.StatusOK, envelope{
		"status":  constants.StatusSuccess,
		"message": "Token sent to email!",
	})
	return nil
}

func (c *Controller) ResetPassword(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := c.context(r)
	defer cancel()

	var req models.ResetPasswordRequest
	if err := c.decode(w, r, &req); err != nil {
		return err
	}
	session, err := c.auth.ResetPassword(ctx, mux.Vars(r)[constants.ParamToken], req)
	if err != nil {
		return err
	}
	c.respondSession(w, http.StatusOK, session)
	return nil
}

func (c *Controller) UpdatePassword(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	ctx, cancel := c.context(r)
	defer cancel()

	var req models.PasswordUpdateRequest
	if err := c.decode(w, r, &req); err != nil {
		return err
	}
	session, err := c.auth.UpdatePassword(ctx, user.ID, req)
	if err != nil {
		return err
	}
	c.respondSession(w, http.StatusOK, session)
	return nil
}

func (c *Controller) RevokeAllSessions(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := c.context(r)
	defer cancel()

	if err := c.auth.RevokeAllSessions(ctx); err != nil {
		return err
	}
	c.middleware.SendJSONResponse(w, http.StatusOK, envelope{
		"status":  constants.StatusSuccess,
		"message": "All sessions revoked",
	})
	return nil
}
