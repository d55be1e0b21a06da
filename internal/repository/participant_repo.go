package repository

import (
	"context"

	"github.com/mbeoliero/relay/internal/entity"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ParticipantRepo is the repository for participant operations
type ParticipantRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewParticipantRepo creates a new ParticipantRepo
func NewParticipantRepo(db *gorm.DB, rdb *redis.Client) *ParticipantRepo {
	return &ParticipantRepo{db: db, rdb: rdb}
}

// ListUserConversations gets the user's participant rows joined with
// their conversations
func (r *ParticipantRepo) ListUserConversations(ctx context.Context, userId string) ([]*entity.UserConversation, error) {
	var rows []*entity.UserConversation

	err := r.db.WithContext(ctx).
		Table("conversation_participants AS cp").
		Select(`
			cp.conversation_id,
			cp.user_id,
			cp.role,
			cp.last_read_at,
			c.name AS conv_name,
			c.is_group,
			c.created_at AS conv_created_at,
			c.updated_at AS conv_updated_at
		`).
		Joins("JOIN conversations c ON c.id = cp.conversation_id").
		Where("cp.user_id = ?", userId).
		Scan(&rows).Error

	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByConversation gets the full participant roster of a conversation
func (r *ParticipantRepo) ListByConversation(ctx context.Context, conversationId string) ([]*entity.Participant, error) {
	var participants []*entity.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// UpdateLastRead sets last_read_at on the user's own participant row
func (r *ParticipantRepo) UpdateLastRead(ctx context.Context, userId, conversationId string, readAt int64) error {
	return r.db.WithContext(ctx).
		Model(&entity.Participant{}).
		Where("user_id = ? AND conversation_id = ?", userId, conversationId).
		Update("last_read_at", readAt).Error
}
