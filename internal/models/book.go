package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	BookEntity = "book"

	MinGrade = 0
	MaxGrade = 5

	// TopRatedLimit is the number of books returned by the best-rating listing.
	TopRatedLimit = 3
)

type Rating struct {
	UserID string `bson:"userId" json:"userId"`
	Grade  int    `bson:"grade" json:"grade"`
}

type Book struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID        string             `bson:"userId" json:"userId"`
	Title         string             `bson:"title" json:"title" validate:"required"`
	Author        string             `bson:"author" json:"author" validate:"required"`
	ImageURL      string             `bson:"imageUrl" json:"imageUrl"`
	Year          int                `bson:"year" json:"year" validate:"gte=0,lte=9999"`
	Genre         string             `bson:"genre" json:"genre" validate:"required"`
	Ratings       []Rating           `bson:"ratings" json:"ratings"`
	AverageRating float64            `bson:"averageRating" json:"averageRating"`
}

// CatalogStats is the admin view of the catalog.
type CatalogStats struct {
	TotalBooks      int64 `json:"total_books"`
	RatedBooks      int64 `json:"rated_books"`
	TotalRatings    int64 `json:"total_ratings"`
	PendingCleanups int   `json:"pending_cleanups"`
}

func IsValidGrade(grade int) bool {
	return grade >= MinGrade && grade <= MaxGrade
}

// HasRated reports whether userID already has a rating on the book.
func (b *Book) HasRated(userID string) bool {
	for _, r := range b.Ratings {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// AverageOf returns the arithmetic mean of the grades, or 0 for no ratings.
func AverageOf(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Grade
	}
	return float64(sum) / float64(len(ratings))
}

// Clone returns a copy that does not share the ratings slice.
func (b Book) Clone() Book {
	if b.Ratings != nil {
		b.Ratings = append([]Rating(nil), b.Ratings...)
	}
	return b
}
