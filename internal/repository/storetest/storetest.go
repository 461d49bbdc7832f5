// Package storetest holds a behavioural suite that every store implementation must pass.
// The SQL repository and the in-memory store both run it from their own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"sydai_backend/internal/model"
	"sydai_backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	AwardPoints(ctx context.Context, userID string, delta int) (*model.User, error)
	RecordCheckin(ctx context.Context, userID string, at, notBefore time.Time, reward int) (*model.User, error)
	GetLeaderboardPage(ctx context.Context, offset, limit int) ([]*model.User, int, error)

	GetReferralByReferrer(ctx context.Context, referrerID string) (*model.Referral, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	CreateReferral(ctx context.Context, ref *model.Referral) error
	CompleteReferral(ctx context.Context, code, referredUserID string, at time.Time, reward int) (*model.Referral, error)
	CountCompletedReferrals(ctx context.Context, referrerID string) (int, error)

	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]*model.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id string) (*model.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
	DeleteNotification(ctx context.Context, userID, id string) error

	CreateMessages(ctx context.Context, messages ...*model.Message) error
	ListMessages(ctx context.Context, userID string) ([]*model.Message, error)

	GetSettings(ctx context.Context, userID string) (*model.Settings, error)
	CreateSettings(ctx context.Context, s *model.Settings) error
	UpdateSettings(ctx context.Context, userID string, update model.SettingsUpdate) (*model.Settings, error)

	Close() error
}

// Run executes the suite; newStore must return an empty store for every call.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("AwardPoints", func(t *testing.T) { testAwardPoints(t, newStore(t)) })
	t.Run("RecordCheckin", func(t *testing.T) { testRecordCheckin(t, newStore(t)) })
	t.Run("ConcurrentCheckin", func(t *testing.T) { testConcurrentCheckin(t, newStore(t)) })
	t.Run("Leaderboard", func(t *testing.T) { testLeaderboard(t, newStore(t)) })
	t.Run("Referrals", func(t *testing.T) { testReferrals(t, newStore(t)) })
	t.Run("ConcurrentReferralCompletion", func(t *testing.T) { testConcurrentReferralCompletion(t, newStore(t)) })
	t.Run("Notifications", func(t *testing.T) { testNotifications(t, newStore(t)) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, newStore(t)) })
	t.Run("Settings", func(t *testing.T) { testSettings(t, newStore(t)) })
}

var base = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

// NewUser builds a user with a unique id and the given name.
func NewUser(name string, points int) *model.User {
	return &model.User{
		ID:           uuid.NewString(),
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		Points:       points,
		CreatedAt:    base,
	}
}

func mustCreateUser(t *testing.T, s Store, name string, points int) *model.User {
	t.Helper()
	u := NewUser(name, points)
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	avatar := "https://example.com/a.png"
	u := NewUser("alice", 5)
	u.AvatarURL = &avatar
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, 5, got.Points)
	assert.Nil(t, got.LastCheckin)
	require.NotNil(t, got.AvatarURL)
	assert.Equal(t, avatar, *got.AvatarURL)
	assert.True(t, base.Equal(got.CreatedAt))

	got, err = s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	dup := NewUser("alice", 0)
	dup.Email = "other@example.com"
	assert.ErrorIs(t, s.CreateUser(ctx, dup), repository.ErrConflict)

	dup = NewUser("bob", 0)
	dup.Email = "alice@example.com"
	assert.ErrorIs(t, s.CreateUser(ctx, dup), repository.ErrConflict)
}

func testAwardPoints(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "carol", 0)

	updated, err := s.AwardPoints(ctx, u.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, updated.Points)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Points)

	_, err = s.AwardPoints(ctx, u.ID, -16)
	assert.ErrorIs(t, err, repository.ErrNegativeBalance)

	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Points)

	updated, err = s.AwardPoints(ctx, u.ID, -15)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Points)

	_, err = s.AwardPoints(ctx, "missing", 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testRecordCheckin(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "dave", 0)

	at := time.Date(2024, time.March, 10, 23, 59, 0, 0, time.UTC)
	dayStart := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	updated, err := s.RecordCheckin(ctx, u.ID, at, dayStart, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Points)
	require.NotNil(t, updated.LastCheckin)
	assert.True(t, at.Equal(*updated.LastCheckin))

	_, err = s.RecordCheckin(ctx, u.ID, at.Add(10*time.Second), dayStart, 10)
	assert.ErrorIs(t, err, repository.ErrAlreadyCheckedIn)

	next := time.Date(2024, time.March, 11, 0, 1, 0, 0, time.UTC)
	nextStart := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
	updated, err = s.RecordCheckin(ctx, u.ID, next, nextStart, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, updated.Points)

	_, err = s.RecordCheckin(ctx, "missing", next, nextStart, 10)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testConcurrentCheckin(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "erin", 0)
	dayStart := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordCheckin(ctx, u.ID, base, dayStart, 10)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, repository.ErrAlreadyCheckedIn):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, rejected)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Points)
}

func testLeaderboard(t *testing.T, s Store) {
	ctx := context.Background()

	tied := []*model.User{NewUser("tie-a", 50), NewUser("tie-b", 50)}
	for _, u := range tied {
		require.NoError(t, s.CreateUser(ctx, u))
	}
	for i := 0; i < 23; i++ {
		mustCreateUser(t, s, fmt.Sprintf("player-%02d", i), i)
	}

	users, total, err := s.GetLeaderboardPage(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, users, 10)

	first, second := tied[0], tied[1]
	if second.ID < first.ID {
		first, second = second, first
	}
	assert.Equal(t, first.ID, users[0].ID)
	assert.Equal(t, second.ID, users[1].ID)
	assert.Equal(t, 22, users[2].Points)

	users, _, err = s.GetLeaderboardPage(ctx, 20, 10)
	require.NoError(t, err)
	require.Len(t, users, 5)
	assert.Equal(t, 0, users[4].Points)

	users, total, err = s.GetLeaderboardPage(ctx, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, 25, total)
}

func testReferrals(t *testing.T, s Store) {
	ctx := context.Background()
	referrer := mustCreateUser(t, s, "frank", 0)
	friend := mustCreateUser(t, s, "grace", 0)

	_, err := s.GetReferralByReferrer(ctx, referrer.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	ref := &model.Referral{ID: uuid.NewString(), ReferrerID: referrer.ID, Code: "ABCD2345", CreatedAt: base}
	require.NoError(t, s.CreateReferral(ctx, ref))

	exists, err := s.ReferralCodeExists(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ReferralCodeExists(ctx, "ZZZZ9999")
	require.NoError(t, err)
	assert.False(t, exists)

	again := &model.Referral{ID: uuid.NewString(), ReferrerID: referrer.ID, Code: "WXYZ6789", CreatedAt: base}
	assert.ErrorIs(t, s.CreateReferral(ctx, again), repository.ErrConflict)

	sameCode := &model.Referral{ID: uuid.NewString(), ReferrerID: friend.ID, Code: "ABCD2345", CreatedAt: base}
	assert.ErrorIs(t, s.CreateReferral(ctx, sameCode), repository.ErrConflict)

	_, err = s.CompleteReferral(ctx, "ABCD2345", referrer.ID, base, 20)
	assert.ErrorIs(t, err, repository.ErrReferralUnavailable)

	_, err = s.CompleteReferral(ctx, "NOPE2345", friend.ID, base, 20)
	assert.ErrorIs(t, err, repository.ErrReferralUnavailable)

	_, err = s.CompleteReferral(ctx, "ABCD2345", "missing", base, 20)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	completed, err := s.CompleteReferral(ctx, "ABCD2345", friend.ID, base, 20)
	require.NoError(t, err)
	assert.True(t, completed.IsCompleted)
	require.NotNil(t, completed.ReferredUserID)
	assert.Equal(t, friend.ID, *completed.ReferredUserID)
	require.NotNil(t, completed.CompletedAt)

	got, err := s.GetUserByID(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Points)

	_, err = s.CompleteReferral(ctx, "ABCD2345", friend.ID, base, 20)
	assert.ErrorIs(t, err, repository.ErrReferralUnavailable)

	count, err := s.CountCompletedReferrals(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = s.CountCompletedReferrals(ctx, friend.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	stored, err := s.GetReferralByReferrer(ctx, referrer.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted)
}

func testConcurrentReferralCompletion(t *testing.T, s Store) {
	ctx := context.Background()
	referrer := mustCreateUser(t, s, "heidi", 0)
	first := mustCreateUser(t, s, "ivan", 0)
	second := mustCreateUser(t, s, "judy", 0)

	ref := &model.Referral{ID: uuid.NewString(), ReferrerID: referrer.ID, Code: "RACE2345", CreatedAt: base}
	require.NoError(t, s.CreateReferral(ctx, ref))

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, u := range []*model.User{first, second} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, errs[i] = s.CompleteReferral(ctx, "RACE2345", userID, base, 20)
		}(i, u.ID)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrReferralUnavailable)
	}
	assert.Equal(t, 1, successes)

	got, err := s.GetUserByID(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Points)
}

func testNotifications(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustCreateUser(t, s, "kate", 0)
	other := mustCreateUser(t, s, "leo", 0)

	older := &model.Notification{ID: uuid.NewString(), UserID: owner.ID, Title: "a", Message: "first", CreatedAt: base}
	newer := &model.Notification{ID: uuid.NewString(), UserID: owner.ID, Title: "b", Message: "second", CreatedAt: base.Add(time.Minute)}
	foreign := &model.Notification{ID: uuid.NewString(), UserID: other.ID, Title: "c", Message: "third", CreatedAt: base}
	for _, n := range []*model.Notification{older, newer, foreign} {
		require.NoError(t, s.CreateNotification(ctx, n))
	}

	list, err := s.ListNotifications(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	unread, err := s.CountUnreadNotifications(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	_, err = s.MarkNotificationRead(ctx, other.ID, older.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	read, err := s.MarkNotificationRead(ctx, owner.ID, older.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	marked, err := s.MarkAllNotificationsRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	unread, err = s.CountUnreadNotifications(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	assert.ErrorIs(t, s.DeleteNotification(ctx, owner.ID, foreign.ID), repository.ErrNotFound)
	require.NoError(t, s.DeleteNotification(ctx, owner.ID, older.ID))
	assert.ErrorIs(t, s.DeleteNotification(ctx, owner.ID, older.ID), repository.ErrNotFound)

	list, err = s.ListNotifications(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testMessages(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "mallory", 0)

	list, err := s.ListMessages(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	reply := &model.Message{ID: uuid.NewString(), UserID: u.ID, Content: "hi there", IsFromUser: false, CreatedAt: base}
	sent := &model.Message{ID: uuid.NewString(), UserID: u.ID, Content: "hello", IsFromUser: true, CreatedAt: base}
	later := &model.Message{ID: uuid.NewString(), UserID: u.ID, Content: "again", IsFromUser: true, CreatedAt: base.Add(time.Second)}
	require.NoError(t, s.CreateMessages(ctx, reply, sent))
	require.NoError(t, s.CreateMessages(ctx, later))

	list, err = s.ListMessages(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "hello", list[0].Content)
	assert.True(t, list[0].IsFromUser)
	assert.Equal(t, "hi there", list[1].Content)
	assert.Equal(t, "again", list[2].Content)
}

func testSettings(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "nina", 0)

	_, err := s.GetSettings(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.CreateSettings(ctx, model.DefaultSettings(u.ID)))
	assert.ErrorIs(t, s.CreateSettings(ctx, model.DefaultSettings(u.ID)), repository.ErrConflict)

	got, err := s.GetSettings(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeLight, got.Theme)
	assert.True(t, got.Notifications)
	assert.False(t, got.EmailNotifications)

	dark := model.ThemeDark
	off := false
	got, err = s.UpdateSettings(ctx, u.ID, model.SettingsUpdate{Theme: &dark, Notifications: &off})
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, got.Theme)
	assert.False(t, got.Notifications)
	assert.False(t, got.EmailNotifications)

	got, err = s.UpdateSettings(ctx, u.ID, model.SettingsUpdate{})
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, got.Theme)

	_, err = s.UpdateSettings(ctx, "missing", model.SettingsUpdate{Theme: &dark})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
