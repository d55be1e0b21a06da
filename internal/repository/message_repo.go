package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/mbeoliero/relay/internal/entity"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// MessageRepo is the repository for message operations
type MessageRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewMessageRepo creates a new MessageRepo
func NewMessageRepo(db *gorm.DB, rdb *redis.Client) *MessageRepo {
	return &MessageRepo{db: db, rdb: rdb}
}

// messageRow is the scan target for message reads with the sender
// projection joined in
type messageRow struct {
	entity.Message
	SenderDisplayName *string `gorm:"column:sender_display_name"`
	SenderEmail       *string `gorm:"column:sender_email"`
}

// toMessage converts a scanned row to a Message with its projection
func (row *messageRow) toMessage() *entity.Message {
	msg := row.Message
	sender := &entity.SenderInfo{}
	if row.SenderDisplayName != nil {
		sender.DisplayName = *row.SenderDisplayName
	}
	if row.SenderEmail != nil {
		sender.Email = *row.SenderEmail
	}
	msg.Sender = sender
	return &msg
}

// ListByConversation gets all messages for a conversation ordered by
// created_at ascending, each with its sender projection resolved
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationId string) ([]*entity.Message, error) {
	var rows []*messageRow

	err := r.db.WithContext(ctx).
		Table("messages AS m").
		Select("m.*, p.display_name AS sender_display_name, p.email AS sender_email").
		Joins("LEFT JOIN profiles p ON p.id = m.sender_id").
		Where("m.conversation_id = ?", conversationId).
		Order("m.created_at ASC, m.id ASC").
		Scan(&rows).Error

	if err != nil {
		return nil, err
	}

	messages := make([]*entity.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.toMessage())
	}
	return messages, nil
}

// CountByConversation counts messages in a conversation
func (r *MessageRepo) CountByConversation(ctx context.Context, conversationId string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("conversation_id = ?", conversationId).
		Count(&count).Error
	return count, err
}

// LatestInConversation gets the single most recent message of a
// conversation, nil if the conversation has none
func (r *MessageRepo) LatestInConversation(ctx context.Context, conversationId string) (*entity.Message, error) {
	var rows []*messageRow

	err := r.db.WithContext(ctx).
		Table("messages AS m").
		Select("m.*, p.display_name AS sender_display_name, p.email AS sender_email").
		Joins("LEFT JOIN profiles p ON p.id = m.sender_id").
		Where("m.conversation_id = ?", conversationId).
		Order("m.created_at DESC, m.id DESC").
		Limit(1).
		Scan(&rows).Error

	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toMessage(), nil
}

// Insert creates a new message row. The id and created_at are assigned
// here; the caller's temp id never reaches the store.
func (r *MessageRepo) Insert(ctx context.Context, msg *entity.Message) error {
	if msg.Id == "" || entity.IsTempMessageId(msg.Id) {
		msg.Id = uuid.NewString()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = entity.NowUnixMilli()
	}
	return r.db.WithContext(ctx).Create(msg).Error
}
