package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"vieux-grimoire-api/internal/images"
	"vieux-grimoire-api/internal/middleware"
)

// RegisterRoutes mounts the public routes on r and the book routes under /api behind auth.
// Static routes are registered before /books/{id} so they are not captured as ids.
func RegisterRoutes(r *mux.Router, books *BookHandler, metrics *MetricsHandler, verifier middleware.TokenVerifier, imagesDir string) {
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "OK")
	}).Methods(http.MethodGet)

	r.PathPrefix(images.URLPrefix).Handler(
		http.StripPrefix(images.URLPrefix, http.FileServer(http.Dir(imagesDir))),
	).Methods(http.MethodGet, http.MethodHead)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.JWTAuthMiddleware(verifier))

	api.HandleFunc("/books", books.AddBook).Methods(http.MethodPost)
	api.HandleFunc("/books", books.GetBooks).Methods(http.MethodGet)
	api.HandleFunc("/books/bestrating", books.GetBestRating).Methods(http.MethodGet)
	api.HandleFunc("/books/stats", metrics.GetMetrics).Methods(http.MethodGet)
	api.HandleFunc("/books/{id}", books.GetBook).Methods(http.MethodGet)
	api.HandleFunc("/books/{id}", books.UpdateBook).Methods(http.MethodPut)
	api.HandleFunc("/books/{id}", books.DeleteBook).Methods(http.MethodDelete)
	api.HandleFunc("/books/{id}/rating", books.RateBook).Methods(http.MethodPost)
}
