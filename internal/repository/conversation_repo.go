package repository

import (
	"context"
	"errors"

	"github.com/mbeoliero/relay/internal/entity"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ConversationRepo is the repository for conversation operations
type ConversationRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewConversationRepo creates a new ConversationRepo
func NewConversationRepo(db *gorm.DB, rdb *redis.Client) *ConversationRepo {
	return &ConversationRepo{db: db, rdb: rdb}
}

// GetById gets a conversation by id
func (r *ConversationRepo) GetById(ctx context.Context, id string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// CreateWithParticipants creates a conversation together with its
// participant rows as one logical transaction. If any participant
// insert fails the conversation row is rolled back with it, so the
// two-step creation never leaves an orphan conversation behind.
func (r *ConversationRepo) CreateWithParticipants(ctx context.Context, conv *entity.Conversation, participants []*entity.Participant) error {
	now := entity.NowUnixMilli()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for _, p := range participants {
			p.ConversationId = conv.Id
			p.CreatedAt = now
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Touch updates the conversation's updated_at timestamp
func (r *ConversationRepo) Touch(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", entity.NowUnixMilli()).Error
}
