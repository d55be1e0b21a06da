package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/relay/internal/entity"
	"github.com/mbeoliero/relay/pkg/constant"
	"github.com/mbeoliero/relay/pkg/errcode"
)

// ChatService finds or creates conversations. Uniqueness of a direct
// pair is enforced by find-before-create only; two users opening the
// same chat concurrently can still each create one.
type ChatService struct {
	userId        string
	conversations ConversationStore
	participants  ParticipantStore
}

// NewChatService creates a new ChatService
func NewChatService(userId string, conversations ConversationStore, participants ParticipantStore) *ChatService {
	return &ChatService{
		userId:        userId,
		conversations: conversations,
		participants:  participants,
	}
}

// StartDirectChat reuses the existing 1:1 conversation with the other
// user when one exists, otherwise creates it together with both
// participant rows in one logical transaction.
func (s *ChatService) StartDirectChat(ctx context.Context, otherUserId string) (*entity.Conversation, error) {
	if otherUserId == "" || otherUserId == s.userId {
		return nil, errcode.ErrInvalidParam
	}

	rows, err := s.participants.ListUserConversations(ctx, s.userId)
	if err != nil {
		log.CtxError(ctx, "direct chat lookup failed: error=%v", err)
		return nil, errcode.ErrChatCreateFailed.Wrap(err)
	}

	for _, row := range rows {
		if row.IsGroup {
			continue
		}
		roster, err := s.participants.ListByConversation(ctx, row.ConversationId)
		if err != nil {
			log.CtxWarn(ctx, "direct chat candidate skipped: conversation_id=%s, error=%v", row.ConversationId, err)
			continue
		}
		pair := 0
		for _, p := range roster {
			if p.UserId == s.userId || p.UserId == otherUserId {
				pair++
			}
		}
		if pair == 2 {
			conv, err := s.conversations.GetById(ctx, row.ConversationId)
			if err != nil {
				log.CtxWarn(ctx, "direct chat candidate lookup failed: conversation_id=%s, error=%v", row.ConversationId, err)
				continue
			}
			if conv != nil {
				return conv, nil
			}
		}
	}

	now := entity.NowUnixMilli()
	conv := &entity.Conversation{
		Id:      uuid.NewString(),
		IsGroup: false,
	}
	participants := []*entity.Participant{
		{UserId: s.userId, Role: constant.RoleMember, LastReadAt: now},
		{UserId: otherUserId, Role: constant.RoleMember, LastReadAt: now},
	}

	if err := s.conversations.CreateWithParticipants(ctx, conv, participants); err != nil {
		log.CtxError(ctx, "create direct chat failed: other_user_id=%s, error=%v", otherUserId, err)
		return nil, errcode.ErrChatCreateFailed.Wrap(err)
	}

	log.CtxInfo(ctx, "direct chat created: conversation_id=%s", conv.Id)
	return conv, nil
}

// CreateGroupChat creates a group conversation with the creator as
// admin and the given members. Validation happens before any store
// call.
func (s *ChatService) CreateGroupChat(ctx context.Context, memberIds []string, name string) (*entity.Conversation, error) {
	if len(memberIds) < 2 {
		return nil, errcode.ErrGroupTooSmall
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcode.ErrGroupNameRequired
	}

	now := entity.NowUnixMilli()
	conv := &entity.Conversation{
		Id:      uuid.NewString(),
		Name:    &name,
		IsGroup: true,
	}

	participants := make([]*entity.Participant, 0, len(memberIds)+1)
	participants = append(participants, &entity.Participant{
		UserId:     s.userId,
		Role:       constant.RoleAdmin,
		LastReadAt: now,
	})
	seen := map[string]struct{}{s.userId: {}}
	for _, id := range memberIds {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, &entity.Participant{
			UserId:     id,
			Role:       constant.RoleMember,
			LastReadAt: now,
		})
	}

	if err := s.conversations.CreateWithParticipants(ctx, conv, participants); err != nil {
		log.CtxError(ctx, "create group chat failed: name=%s, error=%v", name, err)
		return nil, errcode.ErrChatCreateFailed.Wrap(err)
	}

	log.CtxInfo(ctx, "group chat created: conversation_id=%s, members=%d", conv.Id, len(participants))
	return conv, nil
}
