package entity

import "github.com/mbeoliero/relay/pkg/constant"

// Conversation represents a conversation row. Created by the chat
// creator; never deleted by this client.
type Conversation struct {
	Id        string  `json:"id" gorm:"column:id;primaryKey"`
	Name      *string `json:"name" gorm:"column:name"`
	IsGroup   bool    `json:"is_group" gorm:"column:is_group"`
	CreatedAt int64   `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt int64   `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// IsGlobal checks if this is the pre-provisioned global conversation
func (c *Conversation) IsGlobal() bool {
	return c.Id == constant.GlobalConversationId
}

// Participant is the join row between a user and a conversation.
// last_read_at is the sole mutable field after creation, and only for
// the current user's own row.
type Participant struct {
	Id             int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id"`
	UserId         string `json:"user_id" gorm:"column:user_id"`
	Role           string `json:"role" gorm:"column:role"`
	LastReadAt     int64  `json:"last_read_at" gorm:"column:last_read_at"`
	CreatedAt      int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for Participant
func (Participant) TableName() string {
	return "conversation_participants"
}

// IsAdmin checks if the participant has the admin role
func (p *Participant) IsAdmin() bool {
	return p.Role == constant.RoleAdmin
}

// UserConversation is the scan target for the participant/conversation
// join used to build the conversation list.
type UserConversation struct {
	ConversationId string  `json:"conversation_id" gorm:"column:conversation_id"`
	UserId         string  `json:"user_id" gorm:"column:user_id"`
	Role           string  `json:"role" gorm:"column:role"`
	LastReadAt     int64   `json:"last_read_at" gorm:"column:last_read_at"`
	Name           *string `json:"name" gorm:"column:conv_name"`
	IsGroup        bool    `json:"is_group" gorm:"column:is_group"`
	CreatedAt      int64   `json:"created_at" gorm:"column:conv_created_at"`
	UpdatedAt      int64   `json:"updated_at" gorm:"column:conv_updated_at"`
}

// ConversationView is a conversation enriched for display: title,
// roster size, latest message, unread flag and recency.
type ConversationView struct {
	Id             string   `json:"id"`
	Title          string   `json:"title"`
	IsGroup        bool     `json:"is_group"`
	MemberCount    int      `json:"member_count"`
	LastMessage    *Message `json:"last_message,omitempty"`
	LastReadAt     int64    `json:"last_read_at"`
	HasUnread      bool     `json:"has_unread"`
	LastActivityAt int64    `json:"last_activity_at"`
}
