package service

import (
	"context"
	"strings"
	"testing"

	"sydai_backend/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestChatService_Send(t *testing.T) {
	f := newMemoryFixture(t)
	u := f.addUser(t, "mia", 4)
	ctx := context.Background()

	svc := NewChatService(f.store, f.ledger)

	sent, user, err := svc.Send(ctx, u.ID, "  hello there  ")
	require.NoError(t, err)
	assert.Equal(t, "hello there", sent.Content)
	assert.True(t, sent.IsFromUser)
	assert.Equal(t, 4+MessageReward, user.Points)

	messages, err := svc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, sent.ID, messages[0].ID)
	assert.False(t, messages[1].IsFromUser)
	assert.Contains(t, CannedReplies, messages[1].Content)
}

func TestChatService_SendValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "Empty", content: ""},
		{name: "Whitespace", content: "   \n\t"},
		{name: "Too long", content: strings.Repeat("a", MaxMessageLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockMessageRepository{}
			ledgerRepo := &mocks.MockLedgerRepository{}
			svc := NewChatService(repo, NewLedgerService(ledgerRepo))

			_, _, err := svc.Send(context.Background(), "u1", tt.content)
			assert.ErrorIs(t, err, ErrEmptyMessage)
			repo.AssertNotCalled(t, "CreateMessages", mock.Anything, mock.Anything)
			ledgerRepo.AssertNotCalled(t, "AwardPoints", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestChatService_SendUnknownUser(t *testing.T) {
	f := newMemoryFixture(t)
	svc := NewChatService(f.store, f.ledger)

	_, _, err := svc.Send(context.Background(), "ghost", "hi")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestChatService_MaxLengthAccepted(t *testing.T) {
	f := newMemoryFixture(t)
	u := f.addUser(t, "noah", 0)
	svc := NewChatService(f.store, f.ledger)

	_, user, err := svc.Send(context.Background(), u.ID, strings.Repeat("é", MaxMessageLength))
	require.NoError(t, err)
	assert.Equal(t, MessageReward, user.Points)
}
