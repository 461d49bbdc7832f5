package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"sydai_backend/internal/model"

	"github.com/google/uuid"
)

const (
	MessageReward    = 1
	MaxMessageLength = 2000
)

var CannedReplies = []string{
	"That's an interesting question! I'm here to help you with that.",
	"Great point! Let me share my thoughts on that.",
	"I understand what you're asking. Here's what I think...",
	"Thanks for sharing that with me! I'd be happy to assist.",
	"That's a wonderful topic to discuss. Let me help you with that.",
	"I appreciate your question! Keep chatting to earn more points!",
}

type ChatService struct {
	repo   MessageRepository
	ledger *LedgerService
	reply  func(content string) string
	now    func() time.Time
}

func NewChatService(repo MessageRepository, ledger *LedgerService) *ChatService {
	return &ChatService{
		repo:   repo,
		ledger: ledger,
		reply:  randomReply,
		now:    time.Now,
	}
}

func randomReply(string) string {
	return CannedReplies[rand.Intn(len(CannedReplies))]
}

func (s *ChatService) List(ctx context.Context, userID string) ([]*model.Message, error) {
	messages, err := s.repo.ListMessages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// Send stores the user's message with an automatic reply and awards MessageReward points.
func (s *ChatService) Send(ctx context.Context, userID, content string) (*model.Message, *model.User, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, nil, ErrEmptyMessage
	}

	if _, err := s.ledger.GetUser(ctx, userID); err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	sent := &model.Message{
		ID:         uuid.NewString(),
		UserID:     userID,
		Content:    content,
		IsFromUser: true,
		CreatedAt:  now,
	}
	reply := &model.Message{
		ID:         uuid.NewString(),
		UserID:     userID,
		Content:    s.reply(content),
		IsFromUser: false,
		CreatedAt:  now,
	}

	if err := s.repo.CreateMessages(ctx, sent, reply); err != nil {
		return nil, nil, fmt.Errorf("failed to store messages: %w", err)
	}

	user, err := s.ledger.AwardPoints(ctx, userID, MessageReward)
	if err != nil {
		return nil, nil, err
	}

	return sent, user, nil
}
