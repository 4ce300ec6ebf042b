package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"vieux-grimoire-api/internal/constants"
	"vieux-grimoire-api/internal/db"
	"vieux-grimoire-api/internal/images"
	"vieux-grimoire-api/internal/logger"
	"vieux-grimoire-api/internal/models"
	"vieux-grimoire-api/internal/utils"
)

type ImageProcessor interface {
	Process(ctx context.Context, upload images.Upload, baseURL string) (string, error)
	Remove(imageURL string) error
}

// PendingCounter reports file deletions still waiting for a retry.
type PendingCounter interface {
	Pending() int
}

type BookService struct {
	Store    db.BookStore
	Images   ImageProcessor
	Audit    utils.Auditor
	Cleanups PendingCounter

	validate *validator.Validate
}

func NewBookService(store db.BookStore, processor ImageProcessor, audit utils.Auditor, cleanups PendingCounter) *BookService {
	if audit == nil {
		audit = utils.NopAuditor{}
	}
	return &BookService{
		Store:    store,
		Images:   processor,
		Audit:    audit,
		Cleanups: cleanups,
		validate: validator.New(),
	}
}

// Create stores a new book owned by userID with the processed upload as its cover.
func (s *BookService) Create(ctx context.Context, userID string, payload []byte, upload *images.Upload, baseURL string) (models.Book, error) {
	p, err := decodeBook(payload)
	if err != nil {
		return models.Book{}, err
	}
	if upload == nil {
		return models.Book{}, fmt.Errorf("%w: image is required", ErrValidation)
	}

	book := models.Book{UserID: userID}
	p.apply(&book)
	if err := p.check(s.validate, book); err != nil {
		return models.Book{}, err
	}
	if book.Ratings, err = p.ownerRatings(userID); err != nil {
		return models.Book{}, err
	}
	book.AverageRating = models.AverageOf(book.Ratings)

	book.ImageURL, err = s.Images.Process(ctx, *upload, baseURL)
	if err != nil {
		return models.Book{}, err
	}

	created, err := s.Store.Insert(ctx, book)
	if err != nil {
		s.dropImage(book.ImageURL)
		return models.Book{}, err
	}

	s.audit(ctx, constants.Create, userID, created)
	return created, nil
}

// Modify updates a book owned by userID. With an upload the cover is replaced and the
// previous file removed once the record points at the new one.
func (s *BookService) Modify(ctx context.Context, userID, id string, payload []byte, upload *images.Upload, baseURL string) (models.Book, error) {
	existing, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return models.Book{}, err
	}
	if existing.UserID != userID {
		return models.Book{}, ErrNotOwner
	}

	p, err := decodeBook(payload)
	if err != nil {
		return models.Book{}, err
	}
	updated := existing.Clone()
	p.apply(&updated)
	if err := p.check(s.validate, updated); err != nil {
		return models.Book{}, err
	}

	if upload != nil {
		if updated.ImageURL, err = s.Images.Process(ctx, *upload, baseURL); err != nil {
			return models.Book{}, err
		}
	}

	if err := s.Store.Update(ctx, updated); err != nil {
		if upload != nil {
			s.dropImage(updated.ImageURL)
		}
		return models.Book{}, err
	}
	if upload != nil && existing.ImageURL != updated.ImageURL {
		s.dropImage(existing.ImageURL)
	}

	s.audit(ctx, constants.Update, userID, updated)
	return updated, nil
}

// Delete removes a book owned by userID and then its cover file.
func (s *BookService) Delete(ctx context.Context, userID, id string) error {
	existing, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrNotOwner
	}

	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.dropImage(existing.ImageURL)

	s.audit(ctx, constants.Delete, userID, id)
	return nil
}

func (s *BookService) GetOne(ctx context.Context, id string) (models.Book, error) {
	return s.Store.FindByID(ctx, id)
}

func (s *BookService) GetAll(ctx context.Context) ([]models.Book, error) {
	return s.Store.FindAll(ctx)
}

func (s *BookService) GetTopRated(ctx context.Context) ([]models.Book, error) {
	return s.Store.FindTopRated(ctx, models.TopRatedLimit)
}

// Rate records userID's grade on the book and returns the book with its new average.
func (s *BookService) Rate(ctx context.Context, userID, id string, grade int) (models.Book, error) {
	if !models.IsValidGrade(grade) {
		return models.Book{}, ErrInvalidGrade
	}

	book, err := s.Store.AddRating(ctx, id, models.Rating{UserID: userID, Grade: grade})
	if err != nil {
		return models.Book{}, err
	}

	s.audit(ctx, constants.Rate, userID, map[string]any{"book_id": id, "grade": grade})
	return book, nil
}

func (s *BookService) Stats(ctx context.Context) (models.CatalogStats, error) {
	stats, err := s.Store.Stats(ctx)
	if err != nil {
		return models.CatalogStats{}, err
	}
	if s.Cleanups != nil {
		stats.PendingCleanups = s.Cleanups.Pending()
	}
	return stats, nil
}

func (s *BookService) dropImage(imageURL string) {
	if err := s.Images.Remove(imageURL); err != nil {
		log := logger.Get()
		log.Warn().Err(err).Str("image_url", imageURL).Msg("image removal deferred")
	}
}

func (s *BookService) audit(ctx context.Context, action, userID string, data any) {
	if err := s.Audit.Log(ctx, models.BookEntity, action, userID, data); err != nil {
		log := logger.Get()
		log.Error().Err(err).Str("action", action).Msg("audit log failed")
	}
}
