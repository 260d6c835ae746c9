package utils

import "math"

func CalculateContributionScore(totalMeasurements, ruralMeasurements, uniqueLocations, verifiedSpots, helpfulActions int, distanceKM float64) float64 {
	baseScore := float64(totalMeasurements) * 1.0
	ruralScore := float64(ruralMeasurements) * 2.0
	coverageScore := float64(uniqueLocations) * 1.5
	spotScore := float64(verifiedSpots) * 3.0
	helpScore := float64(helpfulActions) * 1.0
	distanceScore := math.Sqrt(distanceKM) * 0.5

	return baseScore + ruralScore + coverageScore + spotScore + helpScore + distanceScore
}
