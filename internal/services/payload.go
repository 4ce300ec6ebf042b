package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"vieux-grimoire-api/internal/models"
)

// bookPayload is what clients may send for a book. Identifier, owner, image and
// average fields are accepted on the wire but never trusted.
type bookPayload struct {
	Title   string          `json:"title"`
	Author  string          `json:"author"`
	Year    *models.FlexInt `json:"year"`
	Genre   string          `json:"genre"`
	Ratings []ratingPayload `json:"ratings"`
}

type ratingPayload struct {
	UserID string         `json:"userId"`
	Grade  models.FlexInt `json:"grade"`
}

func decodeBook(raw []byte) (bookPayload, error) {
	var p bookPayload
	if len(strings.TrimSpace(string(raw))) == 0 {
		return p, fmt.Errorf("%w: empty book payload", ErrValidation)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Author = strings.TrimSpace(p.Author)
	p.Genre = strings.TrimSpace(p.Genre)
	return p, nil
}

// apply copies the editable fields onto book.
func (p bookPayload) apply(book *models.Book) {
	book.Title = p.Title
	book.Author = p.Author
	if p.Year != nil {
		book.Year = int(*p.Year)
	}
	book.Genre = p.Genre
}

// ownerRatings keeps the creator's own initial rating, if any.
func (p bookPayload) ownerRatings(ownerID string) ([]models.Rating, error) {
	ratings := []models.Rating{}
	for _, r := range p.Ratings {
		if r.UserID != ownerID {
			continue
		}
		if !models.IsValidGrade(int(r.Grade)) {
			return nil, ErrInvalidGrade
		}
		ratings = append(ratings, models.Rating{UserID: ownerID, Grade: int(r.Grade)})
		break
	}
	return ratings, nil
}

// check validates book after apply. Year has no usable zero value on Book, so its
// presence is checked on the payload.
func (p bookPayload) check(v *validator.Validate, book models.Book) error {
	if err := v.Struct(book); err != nil {
		return validationError(err)
	}
	if p.Year == nil {
		return fmt.Errorf("%w: year failed on required", ErrValidation)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, ", "))
}
