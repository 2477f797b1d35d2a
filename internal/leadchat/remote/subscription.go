package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"lead-chat/internal/leadchat"
	"lead-chat/internal/model"
	"lead-chat/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const closeWait = time.Second

func (c *Client) wsURL(leadID uint) string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = c.baseURL.Path + leadPath(leadID, "/ws")
	return u.String()
}

// Subscribe 打开线索频道, 收到 SUBSCRIBED 确认后返回
func (c *Client) Subscribe(ctx context.Context, leadID uint) (leadchat.Subscription, error) {
	header := http.Header{}
	if err := c.authorize(header); err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.wsURL(leadID), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, decodeAPIError(resp)
		}
		return nil, fmt.Errorf("failed to open lead channel: %w", err)
	}

	// 握手期间 ctx 取消时关闭连接以打断阻塞的读
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	for {
		var frame model.ChangeEvent
		if err := conn.ReadJSON(&frame); err != nil {
			stop()
			conn.Close()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("lead channel closed before subscription was confirmed: %w", err)
		}
		if frame.Type == model.EventSubscribed {
			break
		}
	}
	if !stop() {
		conn.Close()
		return nil, ctx.Err()
	}

	sub := &subscription{
		leadID: leadID,
		conn:   conn,
		events: make(chan leadchat.Event, c.eventBuffer),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
	go sub.readLoop()
	logger.L.Debug("Lead channel subscribed", zap.Uint("leadID", leadID))
	return sub, nil
}

type subscription struct {
	leadID uint
	conn   *websocket.Conn
	events chan leadchat.Event
	done   chan struct{}
	stop   chan struct{}
	once   sync.Once
}

func (s *subscription) LeadID() uint                  { return s.leadID }
func (s *subscription) Events() <-chan leadchat.Event { return s.events }
func (s *subscription) Done() <-chan struct{}         { return s.done }

// Unsubscribe 可重复调用
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.stop)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
		s.conn.Close()
	})
}

func (s *subscription) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		var frame model.ChangeEvent
		if err := s.conn.ReadJSON(&frame); err != nil {
			select {
			case <-s.stop:
			default:
				var closeErr *websocket.CloseError
				if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseNormalClosure {
					logger.L.Warn("Lead channel dropped", zap.Uint("leadID", s.leadID), zap.Error(err))
				}
				s.conn.Close()
			}
			return
		}

		event, ok := toEvent(frame)
		if !ok || (frame.LeadID != 0 && frame.LeadID != s.leadID) {
			continue
		}
		select {
		case s.events <- event:
		case <-s.stop:
			return
		}
	}
}

func toEvent(frame model.ChangeEvent) (leadchat.Event, bool) {
	switch frame.Type {
	case model.EventInsert:
		if frame.Message == nil {
			return leadchat.Event{}, false
		}
		return leadchat.Event{Kind: leadchat.EventInserted, Message: frame.Message, MessageID: frame.Message.ID}, true
	case model.EventUpdate:
		if frame.Message == nil {
			return leadchat.Event{}, false
		}
		return leadchat.Event{Kind: leadchat.EventUpdated, Message: frame.Message, MessageID: frame.Message.ID}, true
	case model.EventDelete:
		id := frame.MessageID
		if id == "" && frame.Message != nil {
			id = frame.Message.ID
		}
		if id == "" {
			return leadchat.Event{}, false
		}
		return leadchat.Event{Kind: leadchat.EventDeleted, MessageID: id}, true
	default:
		return leadchat.Event{}, false
	}
}
