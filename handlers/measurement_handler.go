package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"signalMapAPI/internal/types/measurement"
	"signalMapAPI/middleware"
	"signalMapAPI/services"
)

type MeasurementHandler struct {
	measurementService *services.MeasurementService
	userService        *services.UserService
}

func NewMeasurementHandler(measurementService *services.MeasurementService, userService *services.UserService) *MeasurementHandler {
	return &MeasurementHandler{
		measurementService: measurementService,
		userService:        userService,
	}
}

func (h *MeasurementHandler) SubmitMeasurement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := h.userService.ResolveUserID(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var req measurement.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.measurementService.ProcessMeasurement(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	middleware.CountMeasurement()
	respondWithJSON(w, http.StatusCreated, result)
}

func (h *MeasurementHandler) ReportHotspot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := h.userService.ResolveUserID(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var req measurement.HotspotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.measurementService.ReportHotspot(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}
