package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/mbeoliero/relay/internal/entity"
	"github.com/mbeoliero/relay/internal/feed"
)

// fakeMessageStore is an in-memory MessageStore
type fakeMessageStore struct {
	mu        sync.Mutex
	rows      map[string][]*entity.Message
	nextId    int
	insertErr error
	listErr   error
	failConvs map[string]bool // conversations whose reads fail
	listCalls int
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{
		rows:      make(map[string][]*entity.Message),
		failConvs: make(map[string]bool),
	}
}

func (s *fakeMessageStore) add(msg *entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[msg.ConversationId] = append(s.rows[msg.ConversationId], msg)
}

func (s *fakeMessageStore) ListByConversation(_ context.Context, conversationId string) ([]*entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	if s.failConvs[conversationId] {
		return nil, fmt.Errorf("read failed")
	}
	out := make([]*entity.Message, len(s.rows[conversationId]))
	copy(out, s.rows[conversationId])
	entity.SortMessages(out)
	return out, nil
}

func (s *fakeMessageStore) CountByConversation(_ context.Context, conversationId string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failConvs[conversationId] {
		return 0, fmt.Errorf("count failed")
	}
	return int64(len(s.rows[conversationId])), nil
}

func (s *fakeMessageStore) LatestInConversation(_ context.Context, conversationId string) (*entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failConvs[conversationId] {
		return nil, fmt.Errorf("read failed")
	}
	msgs := make([]*entity.Message, len(s.rows[conversationId]))
	copy(msgs, s.rows[conversationId])
	if len(msgs) == 0 {
		return nil, nil
	}
	entity.SortMessages(msgs)
	return msgs[len(msgs)-1], nil
}

func (s *fakeMessageStore) Insert(_ context.Context, msg *entity.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.nextId++
	msg.Id = fmt.Sprintf("srv-%04d", s.nextId)
	if msg.CreatedAt == 0 {
		msg.CreatedAt = entity.NowUnixMilli()
	}
	s.rows[msg.ConversationId] = append(s.rows[msg.ConversationId], msg)
	return nil
}

// fakeParticipantStore is an in-memory ParticipantStore
type fakeParticipantStore struct {
	mu            sync.Mutex
	userRows      map[string][]*entity.UserConversation
	rosters       map[string][]*entity.Participant
	rosterErrs    map[string]bool
	listUserErr   error
	updateErr     error
	listUserCalls int
	updates       []string // "userId/conversationId" per UpdateLastRead
}

func newFakeParticipantStore() *fakeParticipantStore {
	return &fakeParticipantStore{
		userRows:   make(map[string][]*entity.UserConversation),
		rosters:    make(map[string][]*entity.Participant),
		rosterErrs: make(map[string]bool),
	}
}

func (s *fakeParticipantStore) addConversation(conv *entity.UserConversation, roster []*entity.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRows[conv.UserId] = append(s.userRows[conv.UserId], conv)
	s.rosters[conv.ConversationId] = roster
}

func (s *fakeParticipantStore) ListUserConversations(_ context.Context, userId string) ([]*entity.UserConversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listUserCalls++
	if s.listUserErr != nil {
		return nil, s.listUserErr
	}
	out := make([]*entity.UserConversation, len(s.userRows[userId]))
	copy(out, s.userRows[userId])
	return out, nil
}

func (s *fakeParticipantStore) ListByConversation(_ context.Context, conversationId string) ([]*entity.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rosterErrs[conversationId] {
		return nil, fmt.Errorf("roster read failed")
	}
	out := make([]*entity.Participant, len(s.rosters[conversationId]))
	copy(out, s.rosters[conversationId])
	return out, nil
}

func (s *fakeParticipantStore) UpdateLastRead(_ context.Context, userId, conversationId string, readAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, userId+"/"+conversationId)
	if s.updateErr != nil {
		return s.updateErr
	}
	for _, row := range s.userRows[userId] {
		if row.ConversationId == conversationId {
			row.LastReadAt = readAt
		}
	}
	return nil
}

// fakeProfileStore is an in-memory ProfileStore
type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*entity.Profile
	err      error
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]*entity.Profile)}
}

func (s *fakeProfileStore) add(p *entity.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Id] = p
}

func (s *fakeProfileStore) GetByIds(_ context.Context, userIds []string) (map[string]*entity.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]*entity.Profile)
	for _, id := range userIds {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// fakeConversationStore registers created conversations into the
// participant fake so follow-up lookups see them
type fakeConversationStore struct {
	mu          sync.Mutex
	parts       *fakeParticipantStore
	created     []*entity.Conversation
	createErr   error
	createCalls int
	touched     []string
	touchErr    error
}

func newFakeConversationStore(parts *fakeParticipantStore) *fakeConversationStore {
	return &fakeConversationStore{parts: parts}
}

func (s *fakeConversationStore) GetById(_ context.Context, id string) (*entity.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.created {
		if c.Id == id {
			return c, nil
		}
	}
	return nil, nil
}

func (s *fakeConversationStore) Touch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.touchErr != nil {
		return s.touchErr
	}
	s.touched = append(s.touched, id)
	return nil
}

func (s *fakeConversationStore) CreateWithParticipants(_ context.Context, conv *entity.Conversation, participants []*entity.Participant) error {
	s.mu.Lock()
	s.createCalls++
	if s.createErr != nil {
		s.mu.Unlock()
		return s.createErr
	}
	now := entity.NowUnixMilli()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	s.created = append(s.created, conv)
	s.mu.Unlock()

	roster := make([]*entity.Participant, 0, len(participants))
	for _, p := range participants {
		p.ConversationId = conv.Id
		roster = append(roster, p)
		s.parts.addConversation(&entity.UserConversation{
			ConversationId: conv.Id,
			UserId:         p.UserId,
			Role:           p.Role,
			LastReadAt:     p.LastReadAt,
			Name:           conv.Name,
			IsGroup:        conv.IsGroup,
			CreatedAt:      conv.CreatedAt,
			UpdatedAt:      conv.UpdatedAt,
		}, nil)
	}
	s.parts.mu.Lock()
	s.parts.rosters[conv.Id] = roster
	s.parts.mu.Unlock()
	return nil
}

// fakeFeed captures subscriptions and lets tests emit events
type fakeFeed struct {
	mu   sync.Mutex
	subs []*fakeSub
}

type fakeSub struct {
	table   string
	filter  string
	handler func(feed.Event)

	mu     sync.Mutex
	closed bool
}

func (s *fakeSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{}
}

func (f *fakeFeed) Subscribe(_ context.Context, table, filter string, handler func(feed.Event)) (feed.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSub{table: table, filter: filter, handler: handler}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) emit(ev feed.Event) {
	f.mu.Lock()
	subs := make([]*fakeSub, len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, sub := range subs {
		if !sub.isClosed() && sub.table == ev.Table {
			sub.handler(ev)
		}
	}
}
