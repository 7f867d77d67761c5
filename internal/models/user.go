package models

import "time"

// Tier is a user's subscription level.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// User represents a registered creative.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	DisplayName      string     `json:"display_name"`
	AvatarURL        *string    `json:"avatar_url,omitempty"`
	CityID           *string    `json:"city_id,omitempty"`
	Tier             Tier       `json:"tier"`
	IsPremium        bool       `json:"is_premium"`
	PremiumExpiresAt *time.Time `json:"premium_expires_at,omitempty"`
	XP               int        `json:"xp"`
	Level            int        `json:"level"`
	PushToken        *string    `json:"push_token,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Profile is the public subset of a user exposed to other users.
type Profile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	CityID      *string `json:"city_id,omitempty"`
	Level       int     `json:"level"`
}

// PublicProfile returns the public view of a user.
func (u *User) PublicProfile() Profile {
	return Profile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		CityID:      u.CityID,
		Level:       u.Level,
	}
}
