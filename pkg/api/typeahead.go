package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rubiojr/ontosearch/pkg/search"
)

const (
	typeaheadReadLimit  = 64 * 1024
	typeaheadPongWait   = 60 * time.Second
	typeaheadPingPeriod = 50 * time.Second
	typeaheadWriteWait  = 10 * time.Second
)

// typeaheadConn serializes writes; the ping loop and the query loop share
// the connection.
type typeaheadConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *typeaheadConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(typeaheadWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *typeaheadConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(typeaheadWriteWait))
}

// HandleTypeahead upgrades to a websocket and answers every query frame with
// a search result frame. Frames are processed in order.
func (s *Server) HandleTypeahead(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("typeahead upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	l := s.log.With("remote", r.RemoteAddr)
	l.Debugf("typeahead client connected")

	tc := &typeaheadConn{conn: conn}
	conn.SetReadLimit(typeaheadReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(typeaheadPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(typeaheadPongWait))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(typeaheadPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := tc.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Warnf("typeahead read error: %v", err)
			}
			l.Debugf("typeahead client disconnected")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(typeaheadPongWait))

		reply := s.typeahead(ctx, data)
		if err := tc.writeJSON(reply); err != nil {
			l.Warnf("typeahead write error: %v", err)
			return
		}
	}
}

func (s *Server) typeahead(ctx context.Context, data []byte) TypeaheadReply {
	var msg TypeaheadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return TypeaheadReply{Error: "Invalid JSON", Message: err.Error()}
	}

	reply := TypeaheadReply{ID: msg.ID, Keyword: msg.Keyword}
	if msg.Size < 0 {
		reply.Error = "Invalid paging"
		reply.Message = "size must not be negative"
		return reply
	}

	rule, err := s.resolveRule(msg.Rule, msg.Field, msg.RuleName)
	if err != nil {
		reply.Error = "Invalid rule"
		reply.Message = err.Error()
		return reply
	}

	result := s.service.Search(ctx, msg.Keyword, rule, search.SearchOptions{Size: msg.Size})
	reply.Result = &result
	return reply
}
