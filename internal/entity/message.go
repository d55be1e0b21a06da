package entity

// Message represents a message row. Immutable once created; append-only.
// Sender is a read-time projection and never persisted from here.
type Message struct {
	Id             string      `json:"id" gorm:"column:id;primaryKey"`
	ConversationId string      `json:"conversation_id" gorm:"column:conversation_id"`
	SenderId       string      `json:"sender_id" gorm:"column:sender_id"`
	ClientMsgId    string      `json:"client_msg_id" gorm:"column:client_msg_id"`
	Content        string      `json:"content" gorm:"column:content"`
	MsgType        string      `json:"message_type" gorm:"column:message_type"`
	CreatedAt      int64       `json:"created_at" gorm:"column:created_at"`
	Sender         *SenderInfo `json:"sender,omitempty" gorm:"-"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// IsTemp checks if this is an optimistic local row awaiting persistence
func (m *Message) IsTemp() bool {
	return IsTempMessageId(m.Id)
}
