package model

import "time"

// TwoFactorToken is an emailed one-time code. There is at most one per email.
type TwoFactorToken struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

func (t *TwoFactorToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RateLimit is a counter with an absolute expiry.
type RateLimit struct {
	Key       string
	Count     int
	ExpiresAt time.Time
}
