package model

type LeaderboardEntry struct {
	UserID    string
	Username  string
	Points    int
	Rank      int
	AvatarURL *string
}

type LeaderboardPage struct {
	Entries    []LeaderboardEntry
	TotalUsers int
	Page       int
	PageSize   int
	HasMore    bool
}
