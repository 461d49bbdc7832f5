package service

import (
	"context"
	"errors"
	"testing"

	"sydai_backend/internal/model"
	"sydai_backend/internal/repository"
	"sydai_backend/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_AwardPoints(t *testing.T) {
	tests := []struct {
		name          string
		delta         int
		repoUser      *model.User
		repoErr       error
		expectedError error
	}{
		{
			name:     "Awards points",
			delta:    1,
			repoUser: &model.User{ID: "u1", Points: 11},
		},
		{
			name:          "Unknown user",
			delta:         1,
			repoErr:       repository.ErrNotFound,
			expectedError: ErrUserNotFound,
		},
		{
			name:          "Would go negative",
			delta:         -50,
			repoErr:       repository.ErrNegativeBalance,
			expectedError: ErrNegativeBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockLedgerRepository{}
			if tt.repoUser != nil {
				repo.On("AwardPoints", mock.Anything, "u1", tt.delta).Return(tt.repoUser, nil)
			} else {
				repo.On("AwardPoints", mock.Anything, "u1", tt.delta).Return(nil, tt.repoErr)
			}

			user, err := NewLedgerService(repo).AwardPoints(context.Background(), "u1", tt.delta)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.repoUser, user)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestLedgerService_WrapsUnexpectedErrors(t *testing.T) {
	cause := errors.New("disk full")
	repo := &mocks.MockLedgerRepository{}
	repo.On("AwardPoints", mock.Anything, "u1", 1).Return(nil, cause)

	_, err := NewLedgerService(repo).AwardPoints(context.Background(), "u1", 1)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestLedgerService_RoundTrip(t *testing.T) {
	f := newMemoryFixture(t)
	u := f.addUser(t, "ivan", 0)
	ctx := context.Background()

	for _, delta := range []int{1, 10, 20} {
		_, err := f.ledger.AwardPoints(ctx, u.ID, delta)
		require.NoError(t, err)
	}

	_, err := f.ledger.AwardPoints(ctx, u.ID, -100)
	assert.ErrorIs(t, err, ErrNegativeBalance)

	user, err := f.ledger.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 31, user.Points)
}
