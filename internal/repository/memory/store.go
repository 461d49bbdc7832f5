// Package memory is an in-process store with the same method set as the SQL repository.
// It backs local development and tests; every operation runs under one RWMutex so
// check-in and referral completion are atomic with respect to each other.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sydai_backend/internal/model"
	"sydai_backend/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	users         map[string]*model.User
	referrals     map[string]*model.Referral // by referrer id
	notifications map[string]*model.Notification
	messages      map[string][]*model.Message
	settings      map[string]*model.Settings
}

func New() *Store {
	return &Store{
		users:         make(map[string]*model.User),
		referrals:     make(map[string]*model.Referral),
		notifications: make(map[string]*model.Notification),
		messages:      make(map[string][]*model.Message),
		settings:      make(map[string]*model.Settings),
	}
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == user.ID || u.Email == user.Email || u.Username == user.Username {
			return repository.ErrConflict
		}
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.Email == email })
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.Username == username })
}

func (s *Store) findUser(match func(*model.User) bool) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) AwardPoints(_ context.Context, userID string, delta int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.awardLocked(userID, delta)
}

func (s *Store) awardLocked(userID string, delta int) (*model.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if u.Points+delta < 0 {
		return nil, repository.ErrNegativeBalance
	}
	u.Points += delta
	return copyUser(u), nil
}

func (s *Store) RecordCheckin(_ context.Context, userID string, at, notBefore time.Time, reward int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if u.LastCheckin != nil && !u.LastCheckin.Before(notBefore) {
		return nil, repository.ErrAlreadyCheckedIn
	}

	stamp := at.UTC()
	u.LastCheckin = &stamp
	u.Points += reward
	return copyUser(u), nil
}

func (s *Store) GetLeaderboardPage(_ context.Context, offset, limit int) ([]*model.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranked := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		ranked = append(ranked, u)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Points != ranked[j].Points {
			return ranked[i].Points > ranked[j].Points
		}
		return ranked[i].ID < ranked[j].ID
	})

	total := len(ranked)
	if offset >= total {
		return []*model.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]*model.User, 0, end-offset)
	for _, u := range ranked[offset:end] {
		page = append(page, copyUser(u))
	}
	return page, total, nil
}

func (s *Store) GetReferralByReferrer(_ context.Context, referrerID string) (*model.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.referrals[referrerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyReferral(ref), nil
}

func (s *Store) ReferralCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.referralByCodeLocked(code) != nil, nil
}

func (s *Store) referralByCodeLocked(code string) *model.Referral {
	for _, ref := range s.referrals {
		if ref.Code == code {
			return ref
		}
	}
	return nil
}

func (s *Store) CreateReferral(_ context.Context, ref *model.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.referrals[ref.ReferrerID]; ok {
		return repository.ErrConflict
	}
	if s.referralByCodeLocked(ref.Code) != nil {
		return repository.ErrConflict
	}

	stored := copyReferral(ref)
	stored.IsCompleted = false
	stored.ReferredUserID = nil
	stored.CompletedAt = nil
	s.referrals[ref.ReferrerID] = stored
	return nil
}

func (s *Store) CompleteReferral(_ context.Context, code, referredUserID string, at time.Time, reward int) (*model.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[referredUserID]; !ok {
		return nil, repository.ErrNotFound
	}

	ref := s.referralByCodeLocked(code)
	if ref == nil || ref.IsCompleted || ref.ReferrerID == referredUserID {
		return nil, repository.ErrReferralUnavailable
	}

	// Award first so a failure leaves the referral untouched.
	if _, err := s.awardLocked(ref.ReferrerID, reward); err != nil {
		return nil, err
	}

	referred := referredUserID
	completedAt := at.UTC()
	ref.IsCompleted = true
	ref.ReferredUserID = &referred
	ref.CompletedAt = &completedAt
	return copyReferral(ref), nil
}

func (s *Store) CountCompletedReferrals(_ context.Context, referrerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.referrals[referrerID]
	if ok && ref.IsCompleted {
		return 1, nil
	}
	return 0, nil
}

func (s *Store) CreateNotification(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[n.ID]; ok {
		return repository.ErrConflict
	}
	stored := *n
	s.notifications[n.ID] = &stored
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID string) ([]*model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID == userID {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID, id string) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return nil, repository.ErrNotFound
	}
	n.IsRead = true
	c := *n
	return &c, nil
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteNotification(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *Store) CreateMessages(_ context.Context, messages ...*model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range messages {
		c := *m
		s.messages[m.UserID] = append(s.messages[m.UserID], &c)
	}
	return nil
}

func (s *Store) ListMessages(_ context.Context, userID string) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.messages[userID]
	out := make([]*model.Message, len(stored))
	for i, m := range stored {
		c := *m
		out[i] = &c
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].IsFromUser && !out[j].IsFromUser
	})
	return out, nil
}

func (s *Store) GetSettings(_ context.Context, userID string) (*model.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settings[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *st
	return &c, nil
}

func (s *Store) CreateSettings(_ context.Context, st *model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.settings[st.UserID]; ok {
		return repository.ErrConflict
	}
	c := *st
	s.settings[st.UserID] = &c
	return nil
}

func (s *Store) UpdateSettings(_ context.Context, userID string, update model.SettingsUpdate) (*model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settings[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Theme != nil {
		st.Theme = *update.Theme
	}
	if update.Notifications != nil {
		st.Notifications = *update.Notifications
	}
	if update.EmailNotifications != nil {
		st.EmailNotifications = *update.EmailNotifications
	}
	c := *st
	return &c, nil
}

func copyUser(u *model.User) *model.User {
	c := *u
	if u.LastCheckin != nil {
		t := *u.LastCheckin
		c.LastCheckin = &t
	}
	if u.AvatarURL != nil {
		a := *u.AvatarURL
		c.AvatarURL = &a
	}
	return &c
}

func copyReferral(r *model.Referral) *model.Referral {
	c := *r
	if r.ReferredUserID != nil {
		id := *r.ReferredUserID
		c.ReferredUserID = &id
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
