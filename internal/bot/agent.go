// Package bot decides how a synthetic opponent plays. Difficulty is only
// reaction latency and hit rate, both interpolated over the opponent's rating.
package bot

import (
	"math/rand"
	"sync"
	"time"
)

const (
	MinRating = 0
	MaxRating = 2000

	MaxDelayMs = 6000
	MinDelayMs = 2000

	MinAccuracy = 0.50
	MaxAccuracy = 0.95
)

type Agent struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewAgent() *Agent {
	return NewAgentWithSource(rand.NewSource(time.Now().UnixNano()))
}

func NewAgentWithSource(src rand.Source) *Agent {
	return &Agent{rng: rand.New(src)}
}

func ratio(opponentRating int) float64 {
	if opponentRating <= MinRating {
		return 0
	}
	if opponentRating >= MaxRating {
		return 1
	}
	return float64(opponentRating-MinRating) / float64(MaxRating-MinRating)
}

// DecideDelay returns how long the bot takes to answer, in milliseconds.
func (a *Agent) DecideDelay(opponentRating int) int {
	return MaxDelayMs - int(ratio(opponentRating)*float64(MaxDelayMs-MinDelayMs))
}

func (a *Agent) Delay(opponentRating int) time.Duration {
	return time.Duration(a.DecideDelay(opponentRating)) * time.Millisecond
}

func Accuracy(opponentRating int) float64 {
	return MinAccuracy + ratio(opponentRating)*(MaxAccuracy-MinAccuracy)
}

func (a *Agent) DecideCorrect(opponentRating int) bool {
	a.mu.Lock()
	draw := a.rng.Float64()
	a.mu.Unlock()
	return draw < Accuracy(opponentRating)
}
