package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"signalMapAPI/internal/errvalues"
)

func TestRespondWithServiceError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", fmt.Errorf("%w: rural exceeds total", errvalues.ErrValidation), http.StatusBadRequest},
		{"invalid amount", fmt.Errorf("%w: got -5", errvalues.ErrInvalidAmount), http.StatusBadRequest},
		{"invalid timeframe", fmt.Errorf("%w: %q", errvalues.ErrInvalidTimeframe, "hourly"), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: user", errvalues.ErrNotFound), http.StatusNotFound},
		{"anything else", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithServiceError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}

	t.Run("internal detail stays server-side", func(t *testing.T) {
		rec := httptest.NewRecorder()
		respondWithServiceError(rec, errors.New("pq: password authentication failed"))

		var body map[string]string
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Internal server error", body["error"])
	})
}
