package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"signalMapAPI/internal/types/leaderboard"
	"signalMapAPI/middleware"
	"signalMapAPI/services"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
	userService        *services.UserService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService, userService *services.UserService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
		userService:        userService,
	}
}

// GetLeaderboard serves ranked pages for a timeframe. Auth is optional;
// a signed-in requester additionally gets their own rank and points.
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	timeframe := leaderboard.Timeframe(r.URL.Query().Get("timeframe"))
	if timeframe == "" {
		timeframe = leaderboard.TimeframeAllTime
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed < 1 {
			respondWithError(w, http.StatusBadRequest, "Invalid page parameter")
			return
		}
		page = parsed
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 100 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	var requesterID *uuid.UUID
	if clerkID, ok := middleware.GetClerkID(ctx); ok {
		if userID, err := h.userService.ResolveUserID(ctx, clerkID); err == nil {
			requesterID = &userID
		}
	}

	board, err := h.leaderboardService.GetLeaderboard(ctx, timeframe, page, limit, requesterID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}
