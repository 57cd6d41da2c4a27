package models

import (
	"strings"
	"time"
)

// LeaderboardRow is the shape scanned from the leaderboard aggregate query.
type LeaderboardRow struct {
	ParticipantID string
	Name          string
	Email         string
	VerifiedAt    *time.Time
	JoinedAt      time.Time
	Referrals     int64
	Points        int64
}

// LeaderboardEntry is the public-safe view served to clients.
type LeaderboardEntry struct {
	FirstName   string    `json:"firstName"`
	EmailMasked string    `json:"emailMasked"`
	Points      int64     `json:"points"`
	Referrals   int64     `json:"referrals"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// FirstName returns the first whitespace-separated word of name.
func FirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "Anonymous"
	}
	return fields[0]
}

// MaskEmail redacts the local part of an address for public display:
// "john@example.com" -> "j**n@example.com", "ab@x.com" -> "***@x.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "***@***"
	}
	local, domain := []rune(email[:at]), email[at+1:]
	if domain == "" {
		return "***@***"
	}
	if len(local) <= 2 {
		return "***@" + domain
	}
	stars := len(local) - 2
	if stars > 3 {
		stars = 3
	}
	return string(local[0]) + strings.Repeat("*", stars) + string(local[len(local)-1]) + "@" + domain
}
