package cache

import "time"

const (
	KeyRateLimit      = "sydai:ratelimit:%s:%s"
	KeyRevokedSession = "sydai:session:revoked:%s"

	ActionMessage = "message"
	ActionCheckin = "checkin"

	RateLimitWindow     = time.Minute
	DefaultMessageLimit = 30
	DefaultCheckinLimit = 10
)
