package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"signalMapAPI/internal/errvalues"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps the service error taxonomy onto status codes:
// validation and bad-amount failures are the client's fault, missing records
// are 404, everything else is a 500 with the detail kept server-side.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errvalues.ErrValidation),
		errors.Is(err, errvalues.ErrInvalidAmount),
		errors.Is(err, errvalues.ErrInvalidTimeframe):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errvalues.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
