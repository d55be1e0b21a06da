package entity

// ComputeUnread derives the unread flag for a conversation from its most
// recent message and the user's last-read watermark. A conversation with
// no messages is never unread; a user's own messages never count.
func ComputeUnread(lastMessage *Message, lastReadAt int64, userId string) bool {
	if lastMessage == nil {
		return false
	}
	if lastMessage.SenderId == userId {
		return false
	}
	return lastMessage.CreatedAt > lastReadAt
}
