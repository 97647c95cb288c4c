package user

import "time"

type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
	Rating      int    `gorm:"not null;default:0" json:"rating"`
	XP          int    `gorm:"not null;default:0" json:"xp"`
}

// ScoreBoost is an inventory item that scales rating gains while active.
type ScoreBoost struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"userId"`
	Multiplier float64   `gorm:"not null;default:1" json:"multiplier"`
	ExpiresAt  time.Time `gorm:"index" json:"expiresAt"`
}

// Identity is the profile view the game core consumes.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
	Rating      int    `json:"rating"`
	XP          int    `json:"xp"`
}

type UserResponse struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
	Rating      int    `json:"rating"`
	XP          int    `json:"xp"`
}

func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

func (u *User) Response() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.Name(),
		AvatarRef:   u.AvatarRef,
		Rating:      u.Rating,
		XP:          u.XP,
	}
}
