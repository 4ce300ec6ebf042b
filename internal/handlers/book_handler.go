package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"vieux-grimoire-api/internal/images"
	"vieux-grimoire-api/internal/logger"
	"vieux-grimoire-api/internal/middleware"
	"vieux-grimoire-api/internal/models"
	"vieux-grimoire-api/internal/services"
	"vieux-grimoire-api/internal/utils"
)

const (
	defaultRequestTimeout = 5 * time.Second
	maxRatingBodyBytes    = 4 << 10
)

type BookHandler struct {
	Service *services.BookService
	Uploads *UploadReader
	// PublicBaseURL overrides the scheme://host taken from the request when building image URLs.
	PublicBaseURL  string
	RequestTimeout time.Duration
}

func NewBookHandler(service *services.BookService, uploads *UploadReader, publicBaseURL string, timeout time.Duration) *BookHandler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &BookHandler{
		Service:        service,
		Uploads:        uploads,
		PublicBaseURL:  publicBaseURL,
		RequestTimeout: timeout,
	}
}

type RatingRequest struct {
	UserID string          `json:"userId"`
	Rating *models.FlexInt `json:"rating"`
}

// POST /api/books
func (h *BookHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	form, err := h.Uploads.Read(w, r)
	if err != nil {
		writeFormError(w, err)
		return
	}
	defer form.Release()

	ctx, cancel := context.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	book, err := h.Service.Create(ctx, userID, form.Payload, form.Upload, h.baseURL(r))
	if err != nil {
		h.writeError(w, err, "create book failed", "")
		return
	}

	log := logger.Get()
	log.Info().Str("book_id", book.ID.Hex()).Str("user_id", userID).Msg("book created")
	utils.JSONMessage(w, "Book saved", http.StatusCreated)
}

// GET /api/books
func (h *BookHandler) GetBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	books, err := h.Service.GetAll(ctx)
	if err != nil {
		h.writeError(w, err, "fetch books failed", "")
		return
	}
	utils.JSONResponse(w, http.StatusOK, books)
}

// GET /api/books/bestrating
func (h *BookHandler) GetBestRating(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	books, err := h.Service.GetTopRated(ctx)
	if err != nil {
		h.writeError(w, err, "fetch best rated books failed", "")
		return
	}
	utils.JSONResponse(w, http.StatusOK, books)
}

// GET /api/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	book, err := h.Service.GetOne(ctx, id)
	if err != nil {
		h.writeError(w, err, "fetch book failed", id)
		return
	}
	utils.JSONResponse(w, http.StatusOK, book)
}

// PUT /api/books/{id}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	userID, _ := middleware.UserIDFromContext(r.Context())

	form, err := h.Uploads.Read(w, r)
	if err != nil {
		writeFormError(w, err)
		return
	}
	defer form.Release()

	ctx, cancel := context.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	if _, err := h.Service.Modify(ctx, userID, id, form.Payload, form.Upload, h.baseURL(r)); err != nil {
		h.writeError(w, err, "update book failed", id)
		return
	}
	utils.JSONMessage(w, "Book updated", http.StatusOK)
}

// DELETE /api/books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	userID, _ := middleware.UserIDFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	if err := h.Service.Delete(ctx, userID, id); err != nil {
		h.writeError(w, err, "delete book failed", id)
		return
	}
	utils.JSONMessage(w, "Book deleted", http.StatusOK)
}

// POST /api/books/{id}/rating
func (h *BookHandler) RateBook(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	userID, _ := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxRatingBodyBytes)
	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Rating == nil {
		utils.JSONError(w, "Invalid rating payload", http.StatusBadRequest)
		return
	}
	if req.UserID != "" && req.UserID != userID {
		utils.JSONError(w, "Not authorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	book, err := h.Service.Rate(ctx, userID, id, int(*req.Rating))
	if err != nil {
		h.writeError(w, err, "rate book failed", id)
		return
	}
	utils.JSONResponse(w, http.StatusOK, book)
}

func (h *BookHandler) baseURL(r *http.Request) string {
	if h.PublicBaseURL != "" {
		return h.PublicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func (h *BookHandler) writeError(w http.ResponseWriter, err error, msg, bookID string) {
	status, public := statusFor(err)
	if status >= http.StatusInternalServerError {
		log := logger.Get()
		log.Error().Err(err).Str("book_id", bookID).Msg(msg)
	}
	utils.JSONError(w, public, status)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotOwner):
		return http.StatusUnauthorized, "Not authorized"
	case errors.Is(err, services.ErrBookNotFound):
		return http.StatusNotFound, "Book not found"
	case errors.Is(err, services.ErrAlreadyRated):
		return http.StatusBadRequest, "User already rated this book"
	case errors.Is(err, services.ErrInvalidGrade), errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, images.ErrProcessing):
		return http.StatusInternalServerError, "Image processing failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
