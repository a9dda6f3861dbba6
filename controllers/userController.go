package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sanjiv-madhavan/natours-api/apifeatures"
	"github.com/sanjiv-madhavan/natours-api/constants"
)

func (c *Controller) GetMe(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	c.respond(w, http.StatusOK, envelope{"user": user})
	return nil
}

func (c *Controller) GetAllUsers(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := c.context(r)
	defer cancel()

	users, err := c.users.Find(ctx, apifeatures.FromValues(r.URL.Query()).Build())
	if err != nil {
		return err
	}
	c.middleware.SendJSONResponse(w, http.StatusOK, envelope{
		"status":  constants.StatusSuccess,
		"results": len(users),
		"data":    envelope{"users": users},
	})
	return nil
}

func (c *Controller) GetUser(w http.ResponseWriter, r *http.Request) error {
	id, err := objectID(mux.Vars(r)[constants.ParamID])
	if err != nil {
		return err
	}
	ctx, cancel := c.context(r)
	defer cancel()

	user, err := c.users.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "No user found with that ID")
	}
	c.respond(w, http.StatusOK, envelope{"user": user})
	return nil
}
