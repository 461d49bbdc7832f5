package model

import "time"

type CheckinState int

const (
	NeverCheckedIn CheckinState = iota
	CheckedInToday
	CheckedInPreviously
)

func (s CheckinState) String() string {
	switch s {
	case NeverCheckedIn:
		return "never_checked_in"
	case CheckedInToday:
		return "checked_in_today"
	case CheckedInPreviously:
		return "checked_in_previously"
	default:
		return "unknown"
	}
}

type CheckinStatus struct {
	UserID          string
	State           CheckinState
	LastCheckin     *time.Time
	NextAvailableAt *time.Time
	Reward          int
}

type CheckinResult struct {
	Success       bool
	PointsAwarded int
	User          *User
}
