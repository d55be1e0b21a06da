// Package feed consumes the platform's change feed: a websocket channel
// delivering best-effort row-insert notifications. Delivery is not
// guaranteed; the synchronizers keep a polling fallback for that reason,
// so a dead subscription is closed silently rather than reconnected.
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/relay/internal/config"
	"github.com/mbeoliero/relay/pkg/constant"
	"github.com/mbeoliero/relay/pkg/errcode"
)

// Event is a single change-feed notification
type Event struct {
	Table  string          `json:"table"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

// subscribeFrame is the frame sent to register interest in a topic
type subscribeFrame struct {
	Action string `json:"action"`
	Table  string `json:"table"`
	Event  string `json:"event"`
	Filter string `json:"filter,omitempty"`
}

// Subscription is a live change-feed subscription handle
type Subscription interface {
	Close() error
}

// Client dials the change feed endpoint
type Client struct {
	cfg   *config.FeedConfig
	token string
}

// NewClient creates a new feed Client
func NewClient(cfg *config.FeedConfig, token string) *Client {
	return &Client{cfg: cfg, token: token}
}

// Subscribe opens one websocket connection for the given table/filter
// and dispatches matching insert events to handler until the
// subscription is closed or the connection dies.
func (c *Client) Subscribe(ctx context.Context, table, filter string, handler func(Event)) (Subscription, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: c.cfg.WriteWait}

	header := map[string][]string{}
	if c.token != "" {
		header["Authorization"] = []string{"Bearer " + c.token}
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return nil, errcode.ErrFeedDialFailed.Wrap(err)
	}

	sub := &subscription{
		conn:      conn,
		closeChan: make(chan struct{}),
		writeWait: c.cfg.WriteWait,
		pongWait:  c.cfg.PongWait,
	}

	conn.SetReadLimit(c.cfg.MaxMessageSize)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	frame := subscribeFrame{
		Action: "subscribe",
		Table:  table,
		Event:  constant.FeedEventInsert,
		Filter: filter,
	}
	if err := sub.writeJSON(frame); err != nil {
		conn.Close()
		return nil, errcode.ErrFeedDialFailed.Wrap(err)
	}

	go sub.readLoop(ctx, table, handler)
	go sub.pingLoop(c.cfg.PingPeriod)

	log.CtxDebug(ctx, "feed subscribed: table=%s, filter=%s", table, filter)
	return sub, nil
}

// subscription implements Subscription over one websocket connection
type subscription struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeChan chan struct{}
	writeWait time.Duration
	pongWait  time.Duration
}

// writeJSON writes a frame (single writer via mutex)
func (s *subscription) writeJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	return s.conn.WriteJSON(v)
}

// readLoop reads events until the connection dies or Close is called.
// Read errors are not surfaced: the poll fallback bounds staleness.
func (s *subscription) readLoop(ctx context.Context, table string, handler func(Event)) {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closeChan:
			default:
				log.CtxDebug(ctx, "feed read closed: table=%s, error=%v", table, err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.CtxWarn(ctx, "feed event decode failed: %v", err)
			continue
		}
		if ev.Table != table || ev.Type != constant.FeedEventInsert {
			continue
		}

		handler(ev)
	}
}

// pingLoop keeps the connection alive
func (s *subscription) pingLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				log.Debug("feed ping error: %v", err)
				return
			}
		case <-s.closeChan:
			return
		}
	}
}

// Close tears down the subscription. Safe to call more than once.
func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeChan)
		s.conn.Close()
	})
	return nil
}
