// Package client is the UI-facing facade over the synchronizers: one
// conversation list, at most one active thread, and the chat creation
// and read-state operations the presentation layer calls into.
package client

import (
	"context"
	"sync"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/relay/internal/config"
	"github.com/mbeoliero/relay/internal/entity"
	"github.com/mbeoliero/relay/internal/service"
	"github.com/mbeoliero/relay/internal/session"
	"github.com/mbeoliero/relay/pkg/errcode"
)

// Client wires session state to the synchronizers. All conversation and
// message state resets on any session change.
type Client struct {
	cfg      *config.Config
	sessions *session.Manager

	participants  service.ParticipantStore
	messages      service.MessageStore
	conversations service.ConversationStore
	profiles      service.ProfileStore
	feed          service.Feed
	onRender      func()

	mu        sync.Mutex
	list      *service.ListSync
	readState *service.ReadStateTracker
	chat      *service.ChatService
	thread    *service.ThreadSync
}

// New creates a Client and registers for session changes
func New(cfg *config.Config, sessions *session.Manager, participants service.ParticipantStore, messages service.MessageStore, conversations service.ConversationStore, profiles service.ProfileStore, fd service.Feed, onRender func()) *Client {
	c := &Client{
		cfg:           cfg,
		sessions:      sessions,
		participants:  participants,
		messages:      messages,
		conversations: conversations,
		profiles:      profiles,
		feed:          fd,
		onRender:      onRender,
	}
	sessions.OnChange(c.handleSessionChange)
	return c
}

// handleSessionChange tears down all synchronizers, then rebuilds them
// for the new identity when one is present
func (c *Client) handleSessionChange(sess *session.Session) {
	ctx := context.Background()

	c.mu.Lock()
	c.teardownLocked()
	c.mu.Unlock()

	if sess == nil {
		c.render()
		return
	}

	// Built outside the lock: the initial load already fires the render
	// hook, which may read back through this client.
	list, err := service.StartList(ctx, sess.UserId, c.cfg.Chat.GlobalConversationId,
		c.participants, c.messages, c.profiles, c.feed, c.render)
	if err != nil {
		// Initial load failure renders an empty list; live updates and
		// later reloads can still recover it.
		log.CtxWarn(ctx, "conversation list load failed: user_id=%s, error=%v", sess.UserId, err)
	}

	c.mu.Lock()
	c.list = list
	c.readState = service.NewReadStateTracker(sess.UserId, c.participants, list)
	c.chat = service.NewChatService(sess.UserId, c.conversations, c.participants)
	c.mu.Unlock()

	c.render()
}

// teardownLocked releases the active thread and list synchronizers
func (c *Client) teardownLocked() {
	if c.thread != nil {
		c.thread.Close()
		c.thread = nil
	}
	if c.list != nil {
		c.list.Close()
		c.list = nil
	}
	c.readState = nil
	c.chat = nil
}

// Conversations returns the current conversation list
func (c *Client) Conversations() []*entity.ConversationView {
	c.mu.Lock()
	list := c.list
	c.mu.Unlock()
	if list == nil {
		return nil
	}
	return list.Conversations()
}

// Messages returns the active thread's ordered message list
func (c *Client) Messages() []*entity.Message {
	c.mu.Lock()
	thread := c.thread
	c.mu.Unlock()
	if thread == nil {
		return nil
	}
	return thread.Messages()
}

// ActiveConversationId returns the id of the open thread, "" when none
func (c *Client) ActiveConversationId() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.thread == nil {
		return ""
	}
	return c.thread.ConversationId()
}

// SelectConversation opens a conversation: the previous thread's
// subscription and poll timer are released before the new one starts,
// and the conversation is marked read.
func (c *Client) SelectConversation(ctx context.Context, conversationId string) error {
	sess := c.sessions.Current()
	if sess == nil {
		return errcode.ErrNoSession
	}

	c.mu.Lock()
	if c.thread != nil {
		c.thread.Close()
		c.thread = nil
	}
	readState := c.readState
	c.mu.Unlock()

	if readState != nil {
		readState.MarkRead(ctx, conversationId)
	}

	thread := service.StartThread(ctx, conversationId, sess.UserId,
		c.messages, c.conversations, c.feed, c.cfg.Sync.PollInterval, c.render)

	c.mu.Lock()
	c.thread = thread
	c.mu.Unlock()

	c.render()
	return nil
}

// SendMessage sends into the active conversation
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if c.sessions.Current() == nil {
		return errcode.ErrNoSession
	}

	c.mu.Lock()
	thread := c.thread
	c.mu.Unlock()
	if thread == nil {
		return errcode.ErrNoActiveConversation
	}
	return thread.Send(ctx, text)
}

// StartDirectChat finds or creates the 1:1 conversation and selects it
func (c *Client) StartDirectChat(ctx context.Context, otherUserId string) error {
	c.mu.Lock()
	chat := c.chat
	list := c.list
	c.mu.Unlock()
	if chat == nil {
		return errcode.ErrNoSession
	}

	conv, err := chat.StartDirectChat(ctx, otherUserId)
	if err != nil {
		return err
	}

	if list != nil {
		if err := list.Reload(ctx); err != nil {
			log.CtxWarn(ctx, "list reload after direct chat failed: %v", err)
		}
	}
	return c.SelectConversation(ctx, conv.Id)
}

// CreateGroupChat creates a group conversation and selects it
func (c *Client) CreateGroupChat(ctx context.Context, memberIds []string, name string) error {
	c.mu.Lock()
	chat := c.chat
	list := c.list
	c.mu.Unlock()
	if chat == nil {
		return errcode.ErrNoSession
	}

	conv, err := chat.CreateGroupChat(ctx, memberIds, name)
	if err != nil {
		return err
	}

	if list != nil {
		if err := list.Reload(ctx); err != nil {
			log.CtxWarn(ctx, "list reload after group chat failed: %v", err)
		}
	}
	return c.SelectConversation(ctx, conv.Id)
}

// Close releases every synchronizer
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// render fires the redraw hook
func (c *Client) render() {
	if c.onRender != nil {
		c.onRender()
	}
}
