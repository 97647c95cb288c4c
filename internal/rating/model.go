package rating

import (
	"time"
)

type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
	TierDiamond  Tier = "DIAMOND"
)

type tierBand struct {
	min  int
	tier Tier
}

// tierBands are contiguous and sorted by min descending; the last band starts at 0.
var tierBands = []tierBand{
	{min: 2000, tier: TierDiamond},
	{min: 1600, tier: TierPlatinum},
	{min: 1200, tier: TierGold},
	{min: 800, tier: TierSilver},
	{min: 0, tier: TierBronze},
}

func TierFor(rating int) Tier {
	for _, band := range tierBands {
		if rating >= band.min {
			return band.tier
		}
	}
	return TierBronze
}

type PlayerRating struct {
	PlayerID    string     `gorm:"primaryKey" json:"playerId"`
	Rating      int        `gorm:"not null;default:0;index" json:"rating"`
	Wins        int        `gorm:"not null;default:0" json:"wins"`
	Losses      int        `gorm:"not null;default:0" json:"losses"`
	WinStreak   int        `gorm:"not null;default:0" json:"winStreak"`
	BestStreak  int        `gorm:"not null;default:0" json:"bestStreak"`
	GamesPlayed int        `gorm:"not null;default:0" json:"gamesPlayed"`
	LastMatchAt *time.Time `json:"lastMatchAt,omitempty"`
}

func (r *PlayerRating) Tier() Tier {
	return TierFor(r.Rating)
}

type RatingResponse struct {
	PlayerRating
	Tier Tier `json:"tier"`
}

func (r *PlayerRating) Response() RatingResponse {
	return RatingResponse{PlayerRating: *r, Tier: r.Tier()}
}

type MatchOutcome struct {
	PlayerID  string `json:"playerId"`
	Won       bool   `json:"won"`
	OldRating int    `json:"oldRating"`
	NewRating int    `json:"newRating"`
	Delta     int    `json:"delta"`
	Tier      Tier   `json:"tier"`
}
