package ui

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"casedesk/ports"

	"github.com/gorilla/websocket"
)

// Client speaks the chat socket protocol and satisfies ports.Agent, so a
// terminal front-end can talk to a running chat server
type Client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

var _ ports.Agent = (*Client)(nil)

// Dial connects to the socket endpoint of the chat server at baseURL
// (http://host:port). A non-empty threadID selects the conversation thread.
func Dial(ctx context.Context, baseURL, threadID string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	if threadID != "" {
		q := u.Query()
		q.Set("thread", threadID)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chat server: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Stream sends input and relays answer tokens until the server reports done or an error
func (c *Client) Stream(ctx context.Context, threadID, input string, onToken ports.TokenFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	if err := writeText(c.conn, input); err != nil {
		return err
	}
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		frame := string(data)
		switch {
		case frame == FrameReceived:
		case frame == FrameDone:
			return nil
		case strings.HasPrefix(frame, FrameError):
			return fmt.Errorf("%s", strings.TrimPrefix(frame, FrameError))
		default:
			if err := onToken(frame); err != nil {
				return err
			}
		}
	}
}

// Close closes the socket
func (c *Client) Close() error {
	return c.conn.Close()
}
