package measurement

import (
	"time"

	"github.com/google/uuid"

	"signalMapAPI/internal/types/achievement"
	"signalMapAPI/internal/types/stats"
)

type Technology string

const (
	Tech2G   Technology = "2g"
	Tech3G   Technology = "3g"
	Tech4G   Technology = "4g"
	Tech5G   Technology = "5g"
	TechWiFi Technology = "wifi"
)

func (t Technology) Valid() bool {
	switch t {
	case Tech2G, Tech3G, Tech4G, Tech5G, TechWiFi:
		return true
	}
	return false
}

type Measurement struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	SignalStrength int        `json:"signal_strength" db:"signal_strength"`
	Technology     Technology `json:"technology" db:"technology"`
	Provider       string     `json:"provider" db:"provider"`
	Latitude       float64    `json:"latitude" db:"latitude"`
	Longitude      float64    `json:"longitude" db:"longitude"`
	AccuracyM      float64    `json:"accuracy_m" db:"accuracy_m"`
	Geocell        string     `json:"geocell" db:"geocell"`
	Rural          bool       `json:"rural" db:"rural"`
	MeasuredAt     time.Time  `json:"measured_at" db:"measured_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

type SubmitRequest struct {
	SignalStrength int        `json:"signal_strength"`
	Technology     Technology `json:"technology"`
	Provider       string     `json:"provider"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	AccuracyM      float64    `json:"accuracy_m"`
	Rural          bool       `json:"rural"`
	DistanceKM     float64    `json:"distance_km"`
	MeasuredAt     *time.Time `json:"measured_at,omitempty"`
}

type SubmitResponse struct {
	Measurement  *Measurement            `json:"measurement"`
	Stats        *stats.UserStats        `json:"stats"`
	Unlocked     []*achievement.Unlocked `json:"unlocked"`
	PointsEarned int                     `json:"points_earned"`
}

type Hotspot struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	SSID      string    `json:"ssid" db:"ssid"`
	Security  string    `json:"security" db:"security"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	Verified  bool      `json:"verified" db:"verified"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type HotspotRequest struct {
	SSID      string  `json:"ssid"`
	Security  string  `json:"security"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Verified  bool    `json:"verified"`
}

type HotspotResponse struct {
	Hotspot  *Hotspot                `json:"hotspot"`
	Stats    *stats.UserStats        `json:"stats"`
	Unlocked []*achievement.Unlocked `json:"unlocked"`
}
