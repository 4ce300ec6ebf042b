package services

import (
	"errors"

	"vieux-grimoire-api/internal/db"
)

var (
	ErrValidation   = errors.New("invalid book")
	ErrNotOwner     = errors.New("not authorized")
	ErrInvalidGrade = errors.New("rating must be between 0 and 5")

	ErrBookNotFound = db.ErrBookNotFound
	ErrAlreadyRated = db.ErrAlreadyRated
)
