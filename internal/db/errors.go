package db

import "errors"

var (
	ErrBookNotFound = errors.New("book not found")
	ErrAlreadyRated = errors.New("user already rated this book")
)
