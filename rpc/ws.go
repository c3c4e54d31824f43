package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"xmblvault/integrations/journal"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsSubBuffer    = 64
)

type broadcaster struct {
	mu   sync.Mutex
	subs map[chan *journal.Entry]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan *journal.Entry]struct{})}
}

func (b *broadcaster) subscribe() (<-chan *journal.Entry, func()) {
	ch := make(chan *journal.Entry, wsSubBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	cancel := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *broadcaster) publish(entry *journal.Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- entry:
		default:
			// Slow consumer, drop. The client can re-sync via its cursor.
		}
	}
}

// PublishEntry fans a freshly journaled entry out to connected stream clients.
func (s *Server) PublishEntry(entry *journal.Entry) {
	if s == nil || entry == nil {
		return
	}
	s.events.publish(entry)
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.ledger == nil {
		http.Error(w, "ledger unavailable", http.StatusServiceUnavailable)
		return
	}
	var cursor uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid cursor", http.StatusBadRequest)
			return
		}
		cursor = parsed
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamEvents(r.Context(), conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor uint64) error {
	updates, cancel := s.events.subscribe()
	defer cancel()

	lastSent := cursor
	if s.journal != nil {
		err := s.journal.ReplayFrom(cursor, func(entry *journal.Entry) error {
			if err := writeEntry(ctx, conn, entry); err != nil {
				return err
			}
			lastSent = entry.Seq
			return nil
		})
		if err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-updates:
			if !ok {
				return nil
			}
			if entry.Seq <= lastSent {
				continue
			}
			if err := writeEntry(ctx, conn, entry); err != nil {
				return err
			}
			lastSent = entry.Seq
		}
	}
}

func writeEntry(ctx context.Context, conn *websocket.Conn, entry *journal.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
