package handlers

import (
	"context"
	"net/http"
	"time"

	"vieux-grimoire-api/internal/logger"
	"vieux-grimoire-api/internal/services"
	"vieux-grimoire-api/internal/utils"
)

type MetricsHandler struct {
	Service        *services.BookService
	RequestTimeout time.Duration
}

func NewMetricsHandler(service *services.BookService, timeout time.Duration) *MetricsHandler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &MetricsHandler{Service: service, RequestTimeout: timeout}
}

// GET /api/books/stats
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	stats, err := h.Service.Stats(ctx)
	if err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("catalog stats failed")
		utils.JSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	utils.JSONResponse(w, http.StatusOK, stats)
}
