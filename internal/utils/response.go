package utils

import (
	"encoding/json"
	"net/http"
)

func JSONError(w http.ResponseWriter, msg string, code int) {
	JSONResponse(w, code, map[string]string{"error": msg})
}

func JSONMessage(w http.ResponseWriter, msg string, code int) {
	JSONResponse(w, code, map[string]string{"message": msg})
}

func JSONResponse(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
