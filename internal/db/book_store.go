package db

import (
	"context"

	"vieux-grimoire-api/internal/models"
)

//go:generate mockgen -source=book_store.go -destination=./mocks/book_store_mock.go -package=mocks

// BookStore persists book records. Implementations return ErrBookNotFound for unknown or
// malformed ids.
type BookStore interface {
	Insert(ctx context.Context, book models.Book) (models.Book, error)
	FindByID(ctx context.Context, id string) (models.Book, error)
	FindAll(ctx context.Context) ([]models.Book, error)
	FindTopRated(ctx context.Context, limit int) ([]models.Book, error)
	// Update replaces the editable fields. Ratings and average are left untouched.
	Update(ctx context.Context, book models.Book) error
	Delete(ctx context.Context, id string) error
	// AddRating appends the rating and recomputes the average in one atomic step.
	// It fails with ErrAlreadyRated when the user has a rating on the book.
	AddRating(ctx context.Context, id string, rating models.Rating) (models.Book, error)
	Stats(ctx context.Context) (models.CatalogStats, error)
}
