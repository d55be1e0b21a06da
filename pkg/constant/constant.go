package constant

// Message types
const (
	MsgTypeText   = "text"
	MsgTypeImage  = "image"
	MsgTypeSystem = "system"
)

// Participant roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// GlobalConversationId is the pre-provisioned conversation every user
// implicitly belongs to. Shared by convention with store provisioning.
const GlobalConversationId = "00000000-0000-0000-0000-000000000001"

// GlobalConversationTitle is the display label for the global conversation.
const GlobalConversationTitle = "Global Chat"

// UnknownUserTitle is the fallback display name for a direct conversation
// whose peer has neither a display name nor an email.
const UnknownUserTitle = "Unknown"

// TempMessagePrefix marks locally-synthesized optimistic messages.
// Persisted ids are UUIDs, so the prefix can never collide.
const TempMessagePrefix = "temp_"

// Feed event types
const (
	FeedEventInsert = "INSERT"
)

// Store tables / feed topics
const (
	TableMessages                 = "messages"
	TableConversations            = "conversations"
	TableConversationParticipants = "conversation_participants"
	TableProfiles                 = "profiles"
)

// Redis key patterns (without prefix, use RedisKey() to get full key)
const (
	redisKeyProfile = "profile:%s" // profile:{user_id}
)

// redisKeyPrefix is the global prefix for all Redis keys
var redisKeyPrefix = "relay:"

// InitRedisKeyPrefix initializes the Redis key prefix from config
func InitRedisKeyPrefix(prefix string) {
	if prefix != "" {
		redisKeyPrefix = prefix
	}
}

// GetRedisKeyPrefix returns the current Redis key prefix
func GetRedisKeyPrefix() string {
	return redisKeyPrefix
}

// Redis key getters with prefix
func RedisKeyProfile() string { return redisKeyPrefix + redisKeyProfile }
