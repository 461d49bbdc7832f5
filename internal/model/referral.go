package model

import "time"

type Referral struct {
	ID             string
	ReferrerID     string
	ReferredUserID *string
	Code           string
	IsCompleted    bool
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

type ReferralStats struct {
	Code           string
	ShareableLink  string
	TotalReferrals int
	TotalPoints    int
}
