package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sanjiv-madhavan/natours-api/apifeatures"
	"github.com/sanjiv-madhavan/natours-api/apperror"
	"github.com/sanjiv-madhavan/natours-api/constants"
	"github.com/sanjiv-madhavan/natours-api/database"
	"github.com/sanjiv-madhavan/natours-api/models"
	"github.com/sanjiv-madhavan/natours-api/utils"
)

const msgNoTour = "No tour found with that ID"

// Preloaded parameters of the top-5-cheap listing.
const (
	topToursLimit  = "5"
	topToursSort   = "-ratingsAverage,price"
	topToursFields = "name,price,ratingsAverage,summary,difficulty"
)

func (c *Controller) GetAllTours(w http.ResponseWriter, r *http.Request) error {
	return c.listTours(w, r, apifeatures.FromValues(r.URL.Query()))
}

func (c *Controller) AliasTopTours(w http.ResponseWriter, r *http.Request) error {
	features := apifeatures.FromValues(r.URL.Query()).
		With(apifeatures.ParamLimit, topToursLimit).
		With(apifeatures.ParamSort, topToursSort).
		With(apifeatures.ParamFields, topToursFields)
	return c.listTours(w, r, features)
}

func (c *Controller) listTours(w http.ResponseWriter, r *http.Request, features apifeatures.APIFeatures) error {
	ctx, cancel := c.context(r)
	defer cancel()

	tours, err := c.tours.Find(ctx, features.Build())
	if err != nil {
		return err
	}
	c.middleware.SendJSONResponse(w, http.StatusOK, envelope{
		"status":  constants.StatusSuccess,
		"results": len(tours),
		"data":    envelope{"tours": tours},
	})
	return nil
}

func (c *Controller) GetTour(w http.ResponseWriter, r *http.Request) error {
	id, err := objectID(mux.Vars(r)[constants.ParamID])
	if err != nil {
		return err
	}
	ctx, cancel := c.context(r)
	defer cancel()

	tour, err := c.tours.FindByID(ctx, id)
	if err != nil {
		return notFound(err, msgNoTour)
	}
	c.respond(w, http.StatusOK, envelope{"tour": tour})
	return nil
}

func (c *Controller) CreateTour(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := c.context(r)
	defer cancel()

	var tour models.Tour
	if err := c.decode(w, r, &tour); err != nil {
		return err
	}
	tour.ApplyDefaults()
	if err := c.validate.Struct(tour); err != nil {
		return apperror.Validation(utils.ValidationMessage(err))
	}
	if err := c.tours.Create(ctx, &tour); err != nil {
		return err
	}
	c.logger.Info("Tour created", slog.String("tour", tour.ID.Hex()))
	c.respond(w, http.StatusCreated, envelope{"tour": tour})
	return nil
}

func (c *Controller) UpdateTour(w http.ResponseWriter, r *http.Request) error {
	id, err := objectID(mux.Vars(r)[constants.ParamID])
	if err != nil {
		return err
	}
	ctx, cancel := c.context(r)
	defer cancel()

	var update models.TourUpdate
	if err := c.decode(w, r, &update); err != nil {
		return err
	}
	if err := c.validate.Struct(update); err != nil {
		return apperror.Validation(utils.ValidationMessage(err))
	}
	if update.PriceDiscount != nil {
		price := update.Price
		if price == nil {
			current, err := c.tours.FindByID(ctx, id)
			if err != nil {
				return notFound(err, msgNoTour)
			}
			price = &current.Price
		}
		if *update.PriceDiscount >= *price {
			return apperror.Validation("Invalid input data. priceDiscount must be below price")
		}
	}

	tour, err := c.tours.Update(ctx, id, update)
	if err != nil {
		return notFound(err, msgNoTour)
	}
	c.respond(w, http.StatusOK, envelope{"tour": tour})
	return nil
}

func (c *Controller) DeleteTour(w http.ResponseWriter, r *http.Request) error {
	id, err := objectID(mux.Vars(r)[constants.ParamID])
	if err != nil {
		return err
	}
	ctx, cancel := c.context(r)
	defer cancel()

	if err := c.tours.Delete(ctx, id); err != nil {
		return notFound(err, msgNoTour)
	}
	c.logger.Info("Tour deleted", slog.String("tour", id.Hex()))
	c.middleware.SendJSONResponse(w, http.StatusNoContent, nil)
	return nil
}

func (c *Controller) GetTourStats(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := c.context(r)
	defer cancel()

	stats, err := c.tours.Stats(ctx)
	if err != nil {
		return err
	}
	c.respond(w, http.StatusOK, envelope{"stats": stats})
	return nil
}

func (c *Controller) GetMonthlyPlan(w http.ResponseWriter, r *http.Request) error {
	raw := mux.Vars(r)[constants.ParamYear]
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 || year > 9999 {
		return apperror.Validation("Invalid year: " + raw)
	}
	ctx, cancel := c.context(r)
	defer cancel()

	plan, err := c.tours.MonthlyPlan(ctx, year)
	if err != nil {
		return err
	}
	c.respond(w, http.StatusOK, envelope{"plan": plan})
	return nil
}

// notFound gives a store miss a resource-specific message.
func notFound(err error, msg string) error {
	if errors.Is(err, database.ErrNotFound) {
		return apperror.Wrap(apperror.KindNotFound, msg, err)
	}
	return err
}
