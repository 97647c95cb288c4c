package game

import (
	"sort"
)

type PlayerSlot struct {
	PlayerID           string `json:"playerId"`
	DisplayName        string `json:"displayName"`
	AvatarRef          string `json:"avatarRef"`
	Score              int    `json:"score"`
	LastCompletedIndex int    `json:"lastCompletedIndex"`
	Finished           bool   `json:"finished"`
	IsBot              bool   `json:"isBot"`
	BotRating          *int   `json:"botRating,omitempty"`
}

func NewSlot(p Player) *PlayerSlot {
	return &PlayerSlot{
		PlayerID:           p.ID,
		DisplayName:        p.DisplayName,
		AvatarRef:          p.AvatarRef,
		LastCompletedIndex: -1,
	}
}

func NewBotSlot(id, name string, rating int) *PlayerSlot {
	r := rating
	return &PlayerSlot{
		PlayerID:           id,
		DisplayName:        name,
		LastCompletedIndex: -1,
		IsBot:              true,
		BotRating:          &r,
	}
}

// Merge folds a progress update into the slot. Score and progress only move
// forward and finished is sticky, so replaying or reordering updates is safe.
// It reports whether anything changed.
func (s *PlayerSlot) Merge(update PlayerSlot) bool {
	if update.LastCompletedIndex < s.LastCompletedIndex {
		return false
	}
	changed := false
	if update.LastCompletedIndex > s.LastCompletedIndex {
		s.LastCompletedIndex = update.LastCompletedIndex
		changed = true
	}
	if update.Score > s.Score {
		s.Score = update.Score
		changed = true
	}
	if update.Finished && !s.Finished {
		s.Finished = true
		changed = true
	}
	return changed
}

type Standing struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`
	Finished    bool   `json:"finished"`
	IsBot       bool   `json:"isBot"`
	BotRating   *int   `json:"botRating,omitempty"`
}

// Rank orders slots by score descending, then display name, then id.
func Rank(slots []PlayerSlot) []Standing {
	sorted := make([]PlayerSlot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		if sorted[i].DisplayName != sorted[j].DisplayName {
			return sorted[i].DisplayName < sorted[j].DisplayName
		}
		return sorted[i].PlayerID < sorted[j].PlayerID
	})

	standings := make([]Standing, len(sorted))
	for i, s := range sorted {
		standings[i] = Standing{
			PlayerID:    s.PlayerID,
			DisplayName: s.DisplayName,
			Score:       s.Score,
			Rank:        i,
			Finished:    s.Finished,
			IsBot:       s.IsBot,
			BotRating:   s.BotRating,
		}
	}
	return standings
}

func RankOf(standings []Standing, playerID string) int {
	for _, s := range standings {
		if s.PlayerID == playerID {
			return s.Rank
		}
	}
	return -1
}
