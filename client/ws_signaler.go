package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteTimeout = 5 * time.Second

type wsSignaler struct {
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}

	writeMu sync.Mutex
	once    sync.Once
}

// DialSignaler opens the websocket signaling transport.
func DialSignaler(ctx context.Context, url string) (Signaler, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	s := &wsSignaler{
		conn:   conn,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *wsSignaler) readLoop() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad event json, dropping")
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *wsSignaler) Send(env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

func (s *wsSignaler) Events() <-chan Event { return s.events }

func (s *wsSignaler) Close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
