package model

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Points       int
	LastCheckin  *time.Time
	AvatarURL    *string
	CreatedAt    time.Time
}
