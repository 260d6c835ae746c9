package utils

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"signalMapAPI/internal/types/achievement"
	"signalMapAPI/internal/types/notification"
)

// NotificationCreator is the slice of the notification service the trigger
// helpers need.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error)
}

// AchievementsUnlocked creates one notification per freshly unlocked
// achievement. Called after the unlocking transaction commits, usually on a
// background goroutine.
func AchievementsUnlocked(notifier NotificationCreator, userID uuid.UUID, unlocked []*achievement.Unlocked) {
	bgCtx := context.Background()

	for _, ach := range unlocked {
		notifType := notification.NotificationAchievement
		if ach.Category == achievement.CategoryStreak {
			notifType = notification.NotificationStreakMilestone
		}

		req := &notification.CreateNotificationRequest{
			UserID:  userID,
			Type:    notifType,
			Title:   "Achievement unlocked!",
			Message: fmt.Sprintf("%s (+%d points)", ach.Title, ach.Points),
			Data: map[string]any{
				"achievement_id": ach.ID.String(),
				"title":          ach.Title,
				"icon":           ach.Icon,
				"points":         ach.Points,
			},
		}

		if _, err := notifier.CreateNotification(bgCtx, req); err != nil {
			log.Printf("Failed to create achievement notification for %s: %v", userID, err)
		}
	}
}
