package handlers

import (
	"context"
	"net/http"
	"time"

	"signalMapAPI/middleware"
	"signalMapAPI/services"
)

type AchievementHandler struct {
	achievementService *services.AchievementService
	userService        *services.UserService
}

func NewAchievementHandler(achievementService *services.AchievementService, userService *services.UserService) *AchievementHandler {
	return &AchievementHandler{
		achievementService: achievementService,
		userService:        userService,
	}
}

func (h *AchievementHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
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

	achievements, err := h.achievementService.GetAchievements(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}
