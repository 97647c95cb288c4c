package rating

import (
	"math"
)

const KFactor = 32

func ExpectedScore(playerRating, opponentRating int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponentRating-playerRating)/400))
}

// CalculateEloChange returns round(K * (actual - expected)). math.Round rounds
// half away from zero, so a winner's gain and the loser's loss have equal
// magnitude for the same pair of pre-match ratings.
func CalculateEloChange(playerRating, opponentRating int, won bool) int {
	actual := 0.0
	if won {
		actual = 1.0
	}
	return int(math.Round(KFactor * (actual - ExpectedScore(playerRating, opponentRating))))
}

// ApplyMultiplier scales a gain by an active score boost. Losses are never scaled.
func ApplyMultiplier(delta int, multiplier float64) int {
	if delta <= 0 || multiplier <= 0 || multiplier == 1 {
		return delta
	}
	return int(math.Round(float64(delta) * multiplier))
}

func ClampRating(rating int) int {
	if rating < 0 {
		return 0
	}
	return rating
}
