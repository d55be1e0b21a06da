package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/relay/internal/entity"
	"github.com/mbeoliero/relay/internal/feed"
	"github.com/mbeoliero/relay/pkg/constant"
	"github.com/mbeoliero/relay/pkg/errcode"
	"golang.org/x/sync/errgroup"
)

// enrichConcurrency bounds the per-conversation enrichment fan-out
const enrichConcurrency = 4

// ListSync maintains the current user's conversation list: each entry
// carries a display title, roster size, latest message, unread flag and
// recency. One unfiltered message-insert subscription keeps the list
// live with targeted patches instead of full reloads.
type ListSync struct {
	userId   string
	globalId string

	participants ParticipantStore
	messages     MessageStore
	profiles     ProfileStore
	feed         Feed
	onChange     func()

	sub       feed.Subscription
	closeOnce sync.Once

	mu    sync.RWMutex
	views []*entity.ConversationView
}

// StartList loads the conversation list and subscribes for live
// updates. A failed subscription degrades to load-only; a failed
// initial load is returned so the caller can render an empty state.
func StartList(ctx context.Context, userId, globalConversationId string, participants ParticipantStore, messages MessageStore, profiles ProfileStore, fd Feed, onChange func()) (*ListSync, error) {
	l := &ListSync{
		userId:       userId,
		globalId:     globalConversationId,
		participants: participants,
		messages:     messages,
		profiles:     profiles,
		feed:         fd,
		onChange:     onChange,
	}

	if fd != nil {
		sub, err := fd.Subscribe(ctx, constant.TableMessages, "", l.handleInsert)
		if err != nil {
			log.CtxWarn(ctx, "list feed subscribe failed: user_id=%s, error=%v", userId, err)
		} else {
			l.sub = sub
		}
	}

	if err := l.Reload(ctx); err != nil {
		return l, err
	}
	return l, nil
}

// Conversations returns a copy of the current sorted list
func (l *ListSync) Conversations() []*entity.ConversationView {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*entity.ConversationView, len(l.views))
	copy(out, l.views)
	return out
}

// Reload rebuilds the whole list from the store. Per-conversation
// enrichment failures drop that conversation only.
func (l *ListSync) Reload(ctx context.Context) error {
	rows, err := l.participants.ListUserConversations(ctx, l.userId)
	if err != nil {
		log.CtxError(ctx, "load conversations failed: user_id=%s, error=%v", l.userId, err)
		return errcode.ErrLoadFailed.Wrap(err)
	}

	views := make([]*entity.ConversationView, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	for i, row := range rows {
		g.Go(func() error {
			view, err := l.enrich(gctx, row)
			if err != nil {
				log.CtxWarn(gctx, "conversation enrichment failed, dropping: conversation_id=%s, error=%v", row.ConversationId, err)
				return nil
			}
			views[i] = view
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]*entity.ConversationView, 0, len(views))
	for _, v := range views {
		if v != nil {
			kept = append(kept, v)
		}
	}
	sortViews(kept)

	l.mu.Lock()
	l.views = kept
	l.mu.Unlock()

	l.notify()
	return nil
}

// enrich builds the display view of one conversation
func (l *ListSync) enrich(ctx context.Context, row *entity.UserConversation) (*entity.ConversationView, error) {
	roster, err := l.participants.ListByConversation(ctx, row.ConversationId)
	if err != nil {
		return nil, err
	}

	last, err := l.messages.LatestInConversation(ctx, row.ConversationId)
	if err != nil {
		return nil, err
	}

	title, err := l.resolveTitle(ctx, row, roster)
	if err != nil {
		return nil, err
	}

	activity := row.UpdatedAt
	if last != nil {
		activity = last.CreatedAt
	}

	return &entity.ConversationView{
		Id:             row.ConversationId,
		Title:          title,
		IsGroup:        row.IsGroup,
		MemberCount:    len(roster),
		LastMessage:    last,
		LastReadAt:     row.LastReadAt,
		HasUnread:      entity.ComputeUnread(last, row.LastReadAt, l.userId),
		LastActivityAt: activity,
	}, nil
}

// resolveTitle picks the human-readable title, in priority order:
// direct peer name, global label, stored name, synthesized group label.
func (l *ListSync) resolveTitle(ctx context.Context, row *entity.UserConversation, roster []*entity.Participant) (string, error) {
	if !row.IsGroup && len(roster) == 2 {
		otherId := ""
		for _, p := range roster {
			if p.UserId != l.userId {
				otherId = p.UserId
			}
		}
		profiles, err := l.profiles.GetByIds(ctx, []string{otherId})
		if err != nil {
			return "", err
		}
		return profiles[otherId].Title(), nil
	}

	if row.ConversationId == l.globalId {
		return constant.GlobalConversationTitle, nil
	}

	if row.Name != nil && *row.Name != "" {
		return *row.Name, nil
	}
	return fmt.Sprintf("Group (%d)", len(roster)), nil
}

// handleInsert patches the affected conversation in place on a pushed
// message insert. Only foreign senders flip unread; an event for an
// unknown conversation triggers a full reload instead.
func (l *ListSync) handleInsert(ev feed.Event) {
	var msg entity.Message
	if err := json.Unmarshal(ev.Record, &msg); err != nil {
		log.Warn("list feed record decode failed: %v", err)
		return
	}
	if msg.SenderId == l.userId {
		return
	}

	l.mu.Lock()
	idx := -1
	for i, v := range l.views {
		if v.Id == msg.ConversationId {
			idx = i
			break
		}
	}
	if idx >= 0 {
		// Handed-out snapshots share view pointers, so patch a fresh
		// value into a fresh slice instead of mutating in place.
		patched := *l.views[idx]
		patched.LastMessage = &msg
		patched.LastActivityAt = msg.CreatedAt
		patched.HasUnread = entity.ComputeUnread(&msg, patched.LastReadAt, l.userId)

		views := make([]*entity.ConversationView, len(l.views))
		copy(views, l.views)
		views[idx] = &patched
		sortViews(views)
		l.views = views
	}
	l.mu.Unlock()

	if idx < 0 {
		// A conversation this user was just added to; the patch path
		// cannot synthesize its view.
		go func() {
			if err := l.Reload(context.Background()); err != nil {
				log.Warn("list reload after unknown conversation failed: %v", err)
			}
		}()
		return
	}

	l.notify()
}

// MarkReadLocal flips a conversation's unread flag off immediately,
// without waiting for the store write
func (l *ListSync) MarkReadLocal(conversationId string, readAt int64) {
	l.mu.Lock()
	for i, v := range l.views {
		if v.Id == conversationId {
			patched := *v
			patched.HasUnread = false
			patched.LastReadAt = readAt

			views := make([]*entity.ConversationView, len(l.views))
			copy(views, l.views)
			views[i] = &patched
			l.views = views
			break
		}
	}
	l.mu.Unlock()

	l.notify()
}

// Close cancels the live subscription
func (l *ListSync) Close() {
	l.closeOnce.Do(func() {
		if l.sub != nil {
			l.sub.Close()
		}
	})
}

// notify fires the change hook
func (l *ListSync) notify() {
	if l.onChange != nil {
		l.onChange()
	}
}

// sortViews orders by most recent activity, descending
func sortViews(views []*entity.ConversationView) {
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].LastActivityAt > views[j].LastActivityAt
	})
}
