package service

import (
	"context"

	"github.com/mbeoliero/relay/internal/entity"
	"github.com/mbeoliero/relay/internal/feed"
)

// MessageStore is the message table boundary consumed by synchronizers
type MessageStore interface {
	ListByConversation(ctx context.Context, conversationId string) ([]*entity.Message, error)
	CountByConversation(ctx context.Context, conversationId string) (int64, error)
	LatestInConversation(ctx context.Context, conversationId string) (*entity.Message, error)
	Insert(ctx context.Context, msg *entity.Message) error
}

// ParticipantStore is the participant table boundary
type ParticipantStore interface {
	ListUserConversations(ctx context.Context, userId string) ([]*entity.UserConversation, error)
	ListByConversation(ctx context.Context, conversationId string) ([]*entity.Participant, error)
	UpdateLastRead(ctx context.Context, userId, conversationId string, readAt int64) error
}

// ConversationStore is the conversation table boundary
type ConversationStore interface {
	GetById(ctx context.Context, id string) (*entity.Conversation, error)
	CreateWithParticipants(ctx context.Context, conv *entity.Conversation, participants []*entity.Participant) error
	Touch(ctx context.Context, id string) error
}

// ProfileStore is the profile table boundary
type ProfileStore interface {
	GetByIds(ctx context.Context, userIds []string) (map[string]*entity.Profile, error)
}

// Feed is the change-feed boundary
type Feed interface {
	Subscribe(ctx context.Context, table, filter string, handler func(feed.Event)) (feed.Subscription, error)
}
