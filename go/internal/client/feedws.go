package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/duopick/duopick/go/internal/feed"
)

// FeedConn is a live WebSocket attachment to a room's change feed.
type FeedConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// AttachFeed dials the server's feed endpoint for a room and invokes handler
// for every delivered event. The caller should reload its snapshot after a
// successful attach; events before the attach are not replayed.
func AttachFeed(ctx context.Context, serverURL string, userID uuid.UUID, roomID uuid.UUID, handler feed.Handler) (*FeedConn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws/room"
	u.RawQuery = url.Values{"room_id": {roomID.String()}}.Encode()

	header := map[string][]string{"X-User-ID": {userID.String()}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}

	fc := &FeedConn{
		conn: conn,
		done: make(chan struct{}),
	}
	go fc.readLoop(handler)
	return fc, nil
}

func (fc *FeedConn) readLoop(handler feed.Handler) {
	defer close(fc.done)
	fc.conn.SetPongHandler(func(string) error {
		fc.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})
	fc.conn.SetPingHandler(func(appData string) error {
		fc.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return fc.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})
	fc.conn.SetReadDeadline(time.Now().Add(90 * time.Second))

	for {
		_, data, err := fc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Msg("feed connection closed unexpectedly")
			}
			return
		}
		var event feed.Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Error().Err(err).Msg("undecodable feed frame")
			continue
		}
		handler(event)
		fc.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	}
}

// Done is closed when the read loop exits, whether by Close or by the
// connection dropping.
func (fc *FeedConn) Done() <-chan struct{} {
	return fc.done
}

// Close tears the attachment down.
func (fc *FeedConn) Close() error {
	fc.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return fc.conn.Close()
}
