package model

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type Settings struct {
	UserID             string
	Theme              string
	Notifications      bool
	EmailNotifications bool
}

func DefaultSettings(userID string) *Settings {
	return &Settings{
		UserID:             userID,
		Theme:              ThemeLight,
		Notifications:      true,
		EmailNotifications: false,
	}
}

// SettingsUpdate carries a partial settings change; nil fields are left untouched.
type SettingsUpdate struct {
	Theme              *string
	Notifications      *bool
	EmailNotifications *bool
}
