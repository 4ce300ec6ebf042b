package db

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"vieux-grimoire-api/internal/models"
)

// MemoryBookStore keeps books in a map. All methods are safe for concurrent use and
// hand out copies, never references to stored records.
type MemoryBookStore struct {
	mu    sync.RWMutex
	books map[primitive.ObjectID]models.Book
	order []primitive.ObjectID
}

func NewMemoryBookStore() *MemoryBookStore {
	return &MemoryBookStore{
		books: make(map[primitive.ObjectID]models.Book),
	}
}

func (ms *MemoryBookStore) Insert(_ context.Context, book models.Book) (models.Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	book.ID = primitive.NewObjectID()
	if book.Ratings == nil {
		book.Ratings = []models.Rating{}
	}
	ms.books[book.ID] = book.Clone()
	ms.order = append(ms.order, book.ID)
	return book, nil
}

func (ms *MemoryBookStore) FindByID(_ context.Context, id string) (models.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Book{}, ErrBookNotFound
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()
	book, ok := ms.books[oid]
	if !ok {
		return models.Book{}, ErrBookNotFound
	}
	return book.Clone(), nil
}

func (ms *MemoryBookStore) FindAll(_ context.Context) ([]models.Book, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	books := make([]models.Book, 0, len(ms.order))
	for _, oid := range ms.order {
		books = append(books, ms.books[oid].Clone())
	}
	return books, nil
}

func (ms *MemoryBookStore) FindTopRated(ctx context.Context, limit int) ([]models.Book, error) {
	books, _ := ms.FindAll(ctx)
	sort.SliceStable(books, func(i, j int) bool {
		return books[i].AverageRating > books[j].AverageRating
	})
	if limit >= 0 && len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

func (ms *MemoryBookStore) Update(_ context.Context, book models.Book) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, ok := ms.books[book.ID]
	if !ok {
		return ErrBookNotFound
	}
	stored.Title = book.Title
	stored.Author = book.Author
	stored.Year = book.Year
	stored.Genre = book.Genre
	stored.ImageURL = book.ImageURL
	ms.books[book.ID] = stored
	return nil
}

func (ms *MemoryBookStore) Delete(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrBookNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.books[oid]; !ok {
		return ErrBookNotFound
	}
	delete(ms.books, oid)
	for i, existing := range ms.order {
		if existing == oid {
			ms.order = append(ms.order[:i], ms.order[i+1:]...)
			break
		}
	}
	return nil
}

func (ms *MemoryBookStore) AddRating(_ context.Context, id string, rating models.Rating) (models.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Book{}, ErrBookNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	book, ok := ms.books[oid]
	if !ok {
		return models.Book{}, ErrBookNotFound
	}
	if book.HasRated(rating.UserID) {
		return models.Book{}, ErrAlreadyRated
	}

	book = book.Clone()
	book.Ratings = append(book.Ratings, rating)
	book.AverageRating = models.AverageOf(book.Ratings)
	ms.books[oid] = book
	return book.Clone(), nil
}

func (ms *MemoryBookStore) Stats(_ context.Context) (models.CatalogStats, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	stats := models.CatalogStats{TotalBooks: int64(len(ms.books))}
	for _, book := range ms.books {
		if len(book.Ratings) > 0 {
			stats.RatedBooks++
		}
		stats.TotalRatings += int64(len(book.Ratings))
	}
	return stats, nil
}
