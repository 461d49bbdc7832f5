package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sydai_backend/internal/model"
	"sydai_backend/internal/repository"
	"sydai_backend/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_Record(t *testing.T) {
	tests := []struct {
		name          string
		settings      *model.Settings
		settingsErr   error
		expectCreate  bool
		expectedError bool
	}{
		{
			name:         "Notifications enabled",
			settings:     &model.Settings{UserID: "u1", Notifications: true},
			expectCreate: true,
		},
		{
			name:         "No settings yet uses defaults",
			settingsErr:  repository.ErrNotFound,
			expectCreate: true,
		},
		{
			name:     "Notifications disabled",
			settings: &model.Settings{UserID: "u1", Notifications: false},
		},
		{
			name:          "Settings lookup fails",
			settingsErr:   errors.New("timeout"),
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockNotificationRepository{}
			settings := &mocks.MockSettingsRepository{}
			if tt.settings != nil {
				settings.On("GetSettings", mock.Anything, "u1").Return(tt.settings, nil)
			} else {
				settings.On("GetSettings", mock.Anything, "u1").Return(nil, tt.settingsErr)
			}
			if tt.expectCreate {
				repo.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n *model.Notification) bool {
					return n.UserID == "u1" && n.Title == "Hello" && n.Message == "World" && !n.IsRead && n.ID != ""
				})).Return(nil)
			}

			svc := NewNotificationService(repo, settings, NewNotificationHub())
			err := svc.Record(context.Background(), "u1", "Hello", "World")

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if !tt.expectCreate {
				repo.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything)
			}
			repo.AssertExpectations(t)
			settings.AssertExpectations(t)
		})
	}
}

func TestNotificationService_CreateValidates(t *testing.T) {
	svc := NewNotificationService(&mocks.MockNotificationRepository{}, &mocks.MockSettingsRepository{}, NewNotificationHub())

	_, err := svc.Create(context.Background(), "u1", "  ", "body")
	assert.ErrorIs(t, err, ErrInvalidNotification)

	_, err = svc.Create(context.Background(), "u1", "title", "")
	assert.ErrorIs(t, err, ErrInvalidNotification)
}

func TestNotificationService_OwnerScoping(t *testing.T) {
	f := newMemoryFixture(t)
	owner := f.addUser(t, "judy", 0)
	other := f.addUser(t, "ken", 0)
	ctx := context.Background()

	n, err := f.notifier.Create(ctx, owner.ID, "Title", "Body")
	require.NoError(t, err)

	_, err = f.notifier.MarkRead(ctx, other.ID, n.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
	assert.ErrorIs(t, f.notifier.Delete(ctx, other.ID, n.ID), ErrNotificationNotFound)

	read, err := f.notifier.MarkRead(ctx, owner.ID, n.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	_, err = f.notifier.Create(ctx, owner.ID, "Second", "Body")
	require.NoError(t, err)

	unread, err := f.notifier.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	marked, err := f.notifier.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	require.NoError(t, f.notifier.Delete(ctx, owner.ID, n.ID))
	list, err := f.notifier.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNotificationService_PublishesToSubscribers(t *testing.T) {
	f := newMemoryFixture(t)
	u := f.addUser(t, "liam", 0)
	ctx := context.Background()

	ws := f.notifier.Subscribe(u.ID)
	defer f.notifier.Unsubscribe(ws)

	n, err := f.notifier.Create(ctx, u.ID, "Live", "Update")
	require.NoError(t, err)

	select {
	case msg := <-ws.NotificationChan:
		assert.Equal(t, EventNotificationCreated, msg.Type)
		assert.Equal(t, n.ID, msg.Payload.ID)
	case <-time.After(time.Second):
		t.Fatal("notification was not published")
	}
}

func TestNotificationHub(t *testing.T) {
	hub := NewNotificationHub()

	a := hub.Subscribe("u1")
	b := hub.Subscribe("u1")
	c := hub.Subscribe("u2")
	assert.Equal(t, 2, hub.Subscribers("u1"))

	hub.Publish("u1", Message{Type: "ping"})
	assert.Equal(t, "ping", (<-a.NotificationChan).Type)
	assert.Equal(t, "ping", (<-b.NotificationChan).Type)
	assert.Len(t, c.NotificationChan, 0)

	hub.Unsubscribe(a)
	hub.Unsubscribe(a)
	_, open := <-a.NotificationChan
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers("u1"))

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish("u1", Message{Type: "flood"})
	}
	assert.Len(t, b.NotificationChan, subscriberBuffer)

	hub.Unsubscribe(b)
	hub.Unsubscribe(c)
	assert.Equal(t, 0, hub.Subscribers("u1"))
	assert.Equal(t, 0, hub.Subscribers("u2"))
}
