package service

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/relay/internal/entity"
)

// unreadPatcher flips local unread state without waiting for the store
type unreadPatcher interface {
	MarkReadLocal(conversationId string, readAt int64)
}

// ReadStateTracker persists the current user's last-read watermarks.
// The local unread flag flips optimistically; a failed store write is
// logged and left for the next successful mark to repair.
type ReadStateTracker struct {
	userId       string
	participants ParticipantStore
	patcher      unreadPatcher
}

// NewReadStateTracker creates a new ReadStateTracker
func NewReadStateTracker(userId string, participants ParticipantStore, patcher unreadPatcher) *ReadStateTracker {
	return &ReadStateTracker{
		userId:       userId,
		participants: participants,
		patcher:      patcher,
	}
}

// MarkRead sets last_read_at to now on the user's own participant row
// for the conversation. Called whenever a conversation is selected.
func (t *ReadStateTracker) MarkRead(ctx context.Context, conversationId string) {
	now := entity.NowUnixMilli()

	if t.patcher != nil {
		t.patcher.MarkReadLocal(conversationId, now)
	}

	if err := t.participants.UpdateLastRead(ctx, t.userId, conversationId, now); err != nil {
		log.CtxWarn(ctx, "mark read failed: conversation_id=%s, error=%v", conversationId, err)
	}
}
