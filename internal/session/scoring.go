package session

import (
	"math"
	"time"
)

const (
	basePoints      = 1000
	comboPoints     = 50
	speedPoints     = 500
	minGuessPoints  = 10
	maxGuessPoints  = 100
	minDrawerPoints = 5
	maxDrawerPoints = 50
	minRevealEvery  = 3
)

// ScoreAnswer awards a correct answer 1000 points, 50 per earlier
// consecutive correct answer and up to 500 for speed. Misses score 0.
func ScoreAnswer(correct bool, combo int, remaining, limit time.Duration) int {
	if !correct {
		return 0
	}
	speed := 0
	if limit > 0 && remaining > 0 {
		if remaining > limit {
			remaining = limit
		}
		speed = int(math.Floor(float64(speedPoints) * float64(remaining) / float64(limit)))
	}
	return basePoints + comboPoints*combo + speed
}

// GuessPoints returns what a correct charades guess is worth to the guesser
// and to the drawer.
func GuessPoints(remaining, duration time.Duration) (guesser, drawer int) {
	ratio := 0.0
	if duration > 0 && remaining > 0 {
		ratio = float64(remaining) / float64(duration)
		if ratio > 1 {
			ratio = 1
		}
	}
	guesser = int(math.Round(maxGuessPoints * ratio))
	if guesser < minGuessPoints {
		guesser = minGuessPoints
	}
	drawer = int(math.Round(maxDrawerPoints * ratio))
	if drawer < minDrawerPoints {
		drawer = minDrawerPoints
	}
	return guesser, drawer
}

// RevealEvery is the number of seconds between hint reveals for a word with
// letters non-space characters. Words of one letter get no hints.
func RevealEvery(letters, durationSeconds int) (int, bool) {
	if letters <= 1 {
		return 0, false
	}
	every := durationSeconds / (letters + 1)
	if every < minRevealEvery {
		every = minRevealEvery
	}
	return every, true
}
