package rtc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/louisbranch/covey.town/internal/platform/errors"
	"github.com/louisbranch/covey.town/internal/platform/timeouts"
	"golang.org/x/net/websocket"
)

// WebsocketConnector opens the provider session endpoint over a websocket,
// presenting the credential as a bearer token.
type WebsocketConnector struct {
	URL     string
	Origin  string
	Timeout time.Duration
}

// Connect dials the session endpoint. Handshake failures are reported as
// CONNECT_FAILED.
func (c WebsocketConnector) Connect(ctx context.Context, credential string) (Session, error) {
	url := strings.TrimSpace(c.URL)
	if url == "" {
		return nil, errors.New("realtime session URL is required")
	}
	origin := strings.TrimSpace(c.Origin)
	if origin == "" {
		origin = "http://localhost/"
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = timeouts.RealtimeHandshake
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := websocket.NewConfig(url, origin)
	if err != nil {
		return nil, fmt.Errorf("realtime session config: %w", err)
	}
	cfg.Header = make(http.Header)
	cfg.Header.Set("Authorization", "Bearer "+credential)

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := cfg.DialContext(dialCtx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConnectFailed, "realtime session handshake failed", err)
	}
	return &WebsocketSession{conn: conn}, nil
}

// WebsocketSession is a session backed by one websocket connection.
type WebsocketSession struct {
	conn *websocket.Conn
}

// Conn exposes the underlying connection to the media layer.
func (s *WebsocketSession) Conn() *websocket.Conn {
	return s.conn
}

// Close closes the connection.
func (s *WebsocketSession) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
