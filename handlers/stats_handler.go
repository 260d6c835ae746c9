package handlers

import (
	"context"
	"net/http"
	"time"

	"signalMapAPI/internal/types/stats"
	"signalMapAPI/middleware"
	"signalMapAPI/services"
)

type StatsHandler struct {
	statsService *services.StatsService
	userService  *services.UserService
}

func NewStatsHandler(statsService *services.StatsService, userService *services.UserService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		userService:  userService,
	}
}

func (h *StatsHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
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

	userStats, err := h.statsService.GetStats(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if userStats == nil {
		// No activity yet, report a zeroed record instead of a 404
		userStats = &stats.UserStats{UserID: userID}
	}

	respondWithJSON(w, http.StatusOK, userStats)
}

func (h *StatsHandler) ResetUserStats(w http.ResponseWriter, r *http.Request) {
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

	if err := h.statsService.ResetStats(ctx, userID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Stats reset successfully"})
}
