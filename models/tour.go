package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

const (
	MinRatingsAverage     = 1.0
	MaxRatingsAverage     = 5.0
	DefaultRatingsAverage = 4.5
)

type Tour struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name,omitempty" json:"name,omitempty" validate:"required,min=10,max=40"`
	Duration        int                `bson:"duration,omitempty" json:"duration,omitempty" validate:"omitempty,min=1"`
	MaxGroupSize    int                `bson:"maxGroupSize,omitempty" json:"maxGroupSize,omitempty" validate:"omitempty,min=1"`
	Difficulty      Difficulty         `bson:"difficulty,omitempty" json:"difficulty,omitempty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64            `bson:"ratingsAverage,omitempty" json:"ratingsAverage,omitempty" validate:"min=1,max=5"`
	RatingsQuantity int                `bson:"ratingsQuantity" json:"ratingsQuantity" validate:"min=0"`
	Price           float64            `bson:"price,omitempty" json:"price,omitempty" validate:"required,gt=0"`
	PriceDiscount   float64            `bson:"priceDiscount,omitempty" json:"priceDiscount,omitempty" validate:"omitempty,min=0,ltfield=Price"`
	Summary         string             `bson:"summary,omitempty" json:"summary,omitempty" validate:"required"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string             `bson:"imageCover,omitempty" json:"imageCover,omitempty"`
	Images          []string           `bson:"images,omitempty" json:"images,omitempty"`
	StartDates      []time.Time        `bson:"startDates,omitempty" json:"startDates,omitempty"`
	SecretTour      bool               `bson:"secretTour,omitempty" json:"secretTour,omitempty"`
	CreatedAt       *time.Time         `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	Version         int                `bson:"__v" json:"-"`
}

// ApplyDefaults fills the fields a new tour gets when the client omits them.
func (t *Tour) ApplyDefaults() {
	if t.RatingsAverage == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
}

// TourUpdate is a partial update. Nil fields are left untouched. CreatedAt has
// no counterpart here so it can never be rewritten.
type TourUpdate struct {
	Name            *string      `bson:"name,omitempty" json:"name" validate:"omitempty,min=10,max=40"`
	Duration        *int         `bson:"duration,omitempty" json:"duration" validate:"omitempty,min=1"`
	MaxGroupSize    *int         `bson:"maxGroupSize,omitempty" json:"maxGroupSize" validate:"omitempty,min=1"`
	Difficulty      *Difficulty  `bson:"difficulty,omitempty" json:"difficulty" validate:"omitempty,oneof=easy medium difficult"`
	RatingsAverage  *float64     `bson:"ratingsAverage,omitempty" json:"ratingsAverage" validate:"omitempty,min=1,max=5"`
	RatingsQuantity *int         `bson:"ratingsQuantity,omitempty" json:"ratingsQuantity" validate:"omitempty,min=0"`
	Price           *float64     `bson:"price,omitempty" json:"price" validate:"omitempty,gt=0"`
	PriceDiscount   *float64     `bson:"priceDiscount,omitempty" json:"priceDiscount" validate:"omitempty,min=0"`
	Summary         *string      `bson:"summary,omitempty" json:"summary" validate:"omitempty,min=1"`
	Description     *string      `bson:"description,omitempty" json:"description"`
	ImageCover      *string      `bson:"imageCover,omitempty" json:"imageCover"`
	Images          *[]string    `bson:"images,omitempty" json:"images"`
	StartDates      *[]time.Time `bson:"startDates,omitempty" json:"startDates"`
	SecretTour      *bool        `bson:"secretTour,omitempty" json:"secretTour"`
}

type TourStats struct {
	Difficulty string  `bson:"_id" json:"_id"`
	NumTours   int     `bson:"numTours" json:"numTours"`
	NumRatings int     `bson:"numRatings" json:"numRatings"`
	AvgRating  float64 `bson:"avgRating" json:"avgRating"`
	AvgPrice   float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice   float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice   float64 `bson:"maxPrice" json:"maxPrice"`
}

type MonthlyPlan struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int      `bson:"numTourStarts" json:"numTourStarts"`
	Tours         []string `bson:"tours" json:"tours"`
}
