package service

import (
	"context"
	"sync"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/relay/internal/entity"
	"github.com/mbeoliero/relay/internal/feed"
	"github.com/mbeoliero/relay/pkg/constant"
	"github.com/mbeoliero/relay/pkg/errcode"
	"github.com/mbeoliero/relay/pkg/idgen"
)

// ThreadState is the lifecycle state of a thread synchronizer
type ThreadState int32

const (
	ThreadIdle ThreadState = iota
	ThreadLoading
	ThreadLive
)

// ThreadSync maintains the ordered, deduplicated message list of one
// conversation. Three producers feed it: full refresh loads, push
// notifications and a polling fallback. All state transitions happen on
// a single run goroutine consuming an event channel; readers get copies
// of the current snapshot.
type ThreadSync struct {
	conversationId string
	userId         string

	store        MessageStore
	convs        ConversationStore
	feed         Feed
	pollInterval time.Duration
	onChange     func()

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan threadEvent
	done      chan struct{}
	closeOnce sync.Once
	sub       feed.Subscription

	mu       sync.RWMutex
	state    ThreadState
	messages []*entity.Message

	// run-loop-owned, never touched outside reduce
	refreshSeq   uint64
	appliedSeq   uint64
	refreshing   bool
	refreshAgain bool
	lastCount    int64
	pending      map[string]*entity.Message // client_msg_id -> temp row
}

// threadEvent is one input to the reducer
type threadEvent interface{}

type evRefreshRequest struct{}

type evRefreshDone struct {
	seq  uint64
	msgs []*entity.Message
	err  error
}

type evPollDone struct {
	count int64
	err   error
}

type evOptimistic struct {
	msg *entity.Message
}

type evSendOK struct {
	clientMsgId string
	msg         *entity.Message
}

type evSendFail struct {
	clientMsgId string
}

// StartThread begins synchronizing a conversation. The feed
// subscription is best effort: when it cannot be established the poll
// fallback alone keeps the view bounded-stale.
func StartThread(ctx context.Context, conversationId, userId string, store MessageStore, convs ConversationStore, fd Feed, pollInterval time.Duration, onChange func()) *ThreadSync {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	t := &ThreadSync{
		conversationId: conversationId,
		userId:         userId,
		store:          store,
		convs:          convs,
		feed:           fd,
		pollInterval:   pollInterval,
		onChange:       onChange,
		ctx:            runCtx,
		cancel:         cancel,
		events:         make(chan threadEvent, 64),
		done:           make(chan struct{}),
		state:          ThreadLoading,
		pending:        make(map[string]*entity.Message),
	}

	if fd != nil {
		sub, err := fd.Subscribe(runCtx, constant.TableMessages,
			"conversation_id=eq."+conversationId,
			func(feed.Event) { t.enqueue(evRefreshRequest{}) })
		if err != nil {
			log.CtxWarn(ctx, "thread feed subscribe failed, polling only: conversation_id=%s, error=%v", conversationId, err)
		} else {
			t.sub = sub
		}
	}

	go t.run()
	t.enqueue(evRefreshRequest{})
	return t
}

// ConversationId returns the synchronized conversation's id
func (t *ThreadSync) ConversationId() string {
	return t.conversationId
}

// State returns the current lifecycle state
func (t *ThreadSync) State() ThreadState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Messages returns a copy of the current ordered message list
func (t *ThreadSync) Messages() []*entity.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*entity.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Send appends an optimistic message immediately, then persists it.
// On success the temp row is replaced by the authoritative row sharing
// its correlation id; on failure the temp row is removed and the error
// returned.
func (t *ThreadSync) Send(ctx context.Context, content string) error {
	corrId, err := idgen.NextID()
	if err != nil {
		return errcode.ErrSendFailed.Wrap(err)
	}

	temp := &entity.Message{
		Id:             entity.GenTempMessageId(corrId),
		ConversationId: t.conversationId,
		SenderId:       t.userId,
		ClientMsgId:    corrId,
		Content:        content,
		MsgType:        constant.MsgTypeText,
		CreatedAt:      entity.NowUnixMilli(),
	}
	t.enqueue(evOptimistic{msg: temp})

	row := &entity.Message{
		ConversationId: t.conversationId,
		SenderId:       t.userId,
		ClientMsgId:    corrId,
		Content:        content,
		MsgType:        constant.MsgTypeText,
	}
	if err := t.store.Insert(ctx, row); err != nil {
		t.enqueue(evSendFail{clientMsgId: corrId})
		log.CtxError(ctx, "send message failed: conversation_id=%s, error=%v", t.conversationId, err)
		return errcode.ErrSendFailed.Wrap(err)
	}

	// Keep updated_at honest so message-less recency sorting never
	// outranks a conversation that just received traffic. Best effort.
	if t.convs != nil {
		if err := t.convs.Touch(ctx, t.conversationId); err != nil {
			log.CtxWarn(ctx, "touch conversation failed: conversation_id=%s, error=%v", t.conversationId, err)
		}
	}

	t.enqueue(evSendOK{clientMsgId: corrId, msg: row})
	return nil
}

// Refresh requests a full reload of the thread
func (t *ThreadSync) Refresh() {
	t.enqueue(evRefreshRequest{})
}

// Close tears down the subscription and the poll timer. Safe to call
// more than once; returns after the run loop has exited.
func (t *ThreadSync) Close() {
	t.closeOnce.Do(func() {
		if t.sub != nil {
			t.sub.Close()
		}
		t.cancel()
		<-t.done
	})
}

// enqueue posts an event to the run loop, dropping it once closed
func (t *ThreadSync) enqueue(ev threadEvent) {
	select {
	case t.events <- ev:
	case <-t.ctx.Done():
	}
}

// run is the single-owner event loop
func (t *ThreadSync) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case ev := <-t.events:
			t.reduce(ev)
		case <-ticker.C:
			t.pollOnce()
		}
	}
}

// reduce applies one event to the thread state
func (t *ThreadSync) reduce(ev threadEvent) {
	switch e := ev.(type) {
	case evRefreshRequest:
		t.requestRefresh()

	case evRefreshDone:
		t.applyRefresh(e)

	case evPollDone:
		if e.err != nil {
			log.CtxDebug(t.ctx, "poll count failed: conversation_id=%s, error=%v", t.conversationId, e.err)
			return
		}
		if e.count > t.lastCount {
			t.lastCount = e.count
			t.requestRefresh()
		}

	case evOptimistic:
		t.pending[e.msg.ClientMsgId] = e.msg
		t.setMessages(append(t.snapshotLocked(), e.msg))

	case evSendOK:
		delete(t.pending, e.clientMsgId)
		t.replaceByCorrelation(e.clientMsgId, e.msg)

	case evSendFail:
		delete(t.pending, e.clientMsgId)
		t.removeById(entity.GenTempMessageId(e.clientMsgId))
	}
}

// requestRefresh coalesces refresh triggers into one in-flight load.
// A trigger arriving mid-load marks "refresh again after" instead of
// racing a second overlapping load.
func (t *ThreadSync) requestRefresh() {
	if t.refreshing {
		t.refreshAgain = true
		return
	}
	t.refreshing = true
	t.refreshSeq++
	seq := t.refreshSeq

	go func() {
		msgs, err := t.store.ListByConversation(t.ctx, t.conversationId)
		t.enqueue(evRefreshDone{seq: seq, msgs: msgs, err: err})
	}()
}

// applyRefresh installs a refresh result as the authoritative full
// snapshot. Results older than the currently-applied one are discarded
// so a stale load can never clobber a newer one.
func (t *ThreadSync) applyRefresh(e evRefreshDone) {
	t.refreshing = false

	if e.err != nil {
		log.CtxWarn(t.ctx, "thread refresh failed: conversation_id=%s, error=%v", t.conversationId, e.err)
	} else if e.seq > t.appliedSeq {
		t.appliedSeq = e.seq
		t.lastCount = int64(len(e.msgs))

		list := entity.DedupeMessages(e.msgs)
		entity.SortMessages(list)

		// Re-append in-flight optimistic rows the snapshot does not
		// cover yet; drop the ones it already contains.
		present := make(map[string]struct{}, len(list))
		for _, m := range list {
			if m.ClientMsgId != "" {
				present[m.ClientMsgId] = struct{}{}
			}
		}
		for corrId, temp := range t.pending {
			if _, ok := present[corrId]; ok {
				delete(t.pending, corrId)
			} else {
				list = append(list, temp)
			}
		}

		t.setMessages(list)
	}

	t.mu.Lock()
	if t.state == ThreadLoading {
		t.state = ThreadLive
	}
	t.mu.Unlock()

	if t.refreshAgain {
		t.refreshAgain = false
		t.requestRefresh()
	}
}

// pollOnce spawns a count query; an increased count means the push
// channel missed something and a refresh is due
func (t *ThreadSync) pollOnce() {
	go func() {
		count, err := t.store.CountByConversation(t.ctx, t.conversationId)
		t.enqueue(evPollDone{count: count, err: err})
	}()
}

// replaceByCorrelation swaps the temp row sharing the correlation id
// for the authoritative row, keeping exactly one visible copy
func (t *ThreadSync) replaceByCorrelation(clientMsgId string, msg *entity.Message) {
	list := t.snapshotLocked()
	replaced := false
	for i, m := range list {
		if m.ClientMsgId == clientMsgId && m.IsTemp() {
			list[i] = msg
			replaced = true
			break
		}
	}
	if !replaced {
		// Temp row already superseded by a refresh; still make sure the
		// authoritative row is present exactly once.
		for _, m := range list {
			if m.Id == msg.Id || m.ClientMsgId == clientMsgId {
				return
			}
		}
		list = append(list, msg)
	}
	t.setMessages(list)
}

// removeById drops a row from the list
func (t *ThreadSync) removeById(id string) {
	list := t.snapshotLocked()
	out := list[:0]
	for _, m := range list {
		if m.Id != id {
			out = append(out, m)
		}
	}
	t.setMessages(out)
}

// snapshotLocked copies the visible list for reducer mutation
func (t *ThreadSync) snapshotLocked() []*entity.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*entity.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// setMessages installs a new visible list and fires the change hook
func (t *ThreadSync) setMessages(msgs []*entity.Message) {
	t.mu.Lock()
	t.messages = msgs
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange()
	}
}
