package service

import (
	"context"
	"testing"

	"sydai_backend/internal/model"
	"sydai_backend/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSettingsService_GetCreatesDefaults(t *testing.T) {
	f := newMemoryFixture(t)
	u := f.addUser(t, "olga", 0)
	svc := NewSettingsService(f.store)

	st, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(u.ID), st)
}

func TestSettingsService_Update(t *testing.T) {
	f := newMemoryFixture(t)
	u := f.addUser(t, "pete", 0)
	svc := NewSettingsService(f.store)
	ctx := context.Background()

	dark := model.ThemeDark
	email := true
	st, err := svc.Update(ctx, u.ID, model.SettingsUpdate{Theme: &dark, EmailNotifications: &email})
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, st.Theme)
	assert.True(t, st.Notifications)
	assert.True(t, st.EmailNotifications)

	st, err = svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, st.Theme)
}

func TestSettingsService_UpdateRejectsUnknownTheme(t *testing.T) {
	repo := &mocks.MockSettingsRepository{}
	svc := NewSettingsService(repo)

	purple := "purple"
	_, err := svc.Update(context.Background(), "u1", model.SettingsUpdate{Theme: &purple})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	repo.AssertNotCalled(t, "UpdateSettings", mock.Anything, mock.Anything, mock.Anything)
}
