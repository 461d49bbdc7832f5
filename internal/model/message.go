package model

import "time"

type Message struct {
	ID         string
	UserID     string
	Content    string
	IsFromUser bool
	CreatedAt  time.Time
}
