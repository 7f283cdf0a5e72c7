// Package api implements the persistent websocket connection to Trade
// Republic and the subscription multiplexer on top of it. Each outgoing
// request gets a fresh numeric identifier; inbound messages arrive in
// arbitrary order and carry the identifier the server echoes back, so
// callers correlate responses by id and by the declared subscription type.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
)

// DefaultURL is the Trade Republic websocket endpoint.
const DefaultURL = "wss://api.traderepublic.com"

// connectVersion is the protocol version sent in the connect handshake.
const connectVersion = 31

// conn is the subset of the websocket connection the client uses.
// Production code passes a *websocket.Conn; tests pass a scripted fake.
type conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Subscription records an outgoing request while it is pending: its
// identifier, the declared type tag, and the payload it was issued with.
type Subscription struct {
	ID      int
	Type    string
	Payload map[string]any
}

// Client multiplexes typed subscriptions over a single duplex connection.
//
// The client is intended for a single-threaded cooperative schedule:
// exactly one goroutine issues subscriptions and blocks in Receive. It is
// not safe for concurrent use.
type Client struct {
	logger *slog.Logger
	conn   conn

	token  string
	locale string

	nextID int
	subs   map[int]Subscription
}

// Options configures the connection.
type Options struct {
	URL    string // websocket endpoint, DefaultURL if empty
	Token  string // session token attached to every subscription
	Locale string // locale sent in the connect handshake, "de" if empty
}

// Dial opens the websocket connection and performs the connect handshake.
func Dial(ctx context.Context, logger *slog.Logger, opts Options) (*Client, error) {
	endpoint := opts.URL
	if endpoint == "" {
		endpoint = DefaultURL
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := newClient(logger, ws, opts)
	if err := c.handshake(); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return c, nil
}

func newClient(logger *slog.Logger, wire conn, opts Options) *Client {
	locale := opts.Locale
	if locale == "" {
		locale = "de"
	}
	return &Client{
		logger: logger,
		conn:   wire,
		token:  opts.Token,
		locale: locale,
		nextID: 1,
		subs:   make(map[int]Subscription),
	}
}

// handshake sends the connect message and waits for the server to confirm.
func (c *Client) handshake() error {
	hello := map[string]any{
		"locale":          c.locale,
		"platformId":      "webtrading",
		"platformVersion": "chrome - 131.0.0",
		"clientId":        "app.traderepublic.com",
		"clientVersion":   "3.151.3",
	}
	data, err := json.Marshal(hello)
	if err != nil {
		return fmt.Errorf("encode connect payload: %w", err)
	}

	msg := fmt.Sprintf("connect %d %s", connectVersion, data)
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return &Error{Message: "send connect", Cause: err}
	}

	_, reply, err := c.conn.ReadMessage()
	if err != nil {
		return &Error{Message: "read connect reply", Cause: err}
	}
	if string(reply) != "connected" {
		return &Error{Message: fmt.Sprintf("unexpected connect reply %q", reply)}
	}

	c.logger.Debug("websocket connected", "endpoint", "trade republic")
	return nil
}

// Token returns the session token the connection was opened with.
func (c *Client) Token() string {
	return c.token
}

// Subscribe sends a typed request and returns its fresh identifier
// immediately. The session token, when present, is attached to the payload.
func (c *Client) Subscribe(payload map[string]any) (int, error) {
	id := c.nextID
	c.nextID++

	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	if c.token != "" {
		body["token"] = c.token
	}

	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode subscription payload: %w", err)
	}

	msg := fmt.Sprintf("sub %d %s", id, data)
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return 0, &Error{SubscriptionID: id, Message: "send subscription", Cause: err}
	}

	typeTag, _ := payload["type"].(string)
	c.subs[id] = Subscription{ID: id, Type: typeTag, Payload: payload}

	c.logger.Debug("subscribed", "id", id, "type", typeTag)
	return id, nil
}

// Unsubscribe signals the server to stop producing messages for the given
// identifier and releases the local bookkeeping.
func (c *Client) Unsubscribe(id int) error {
	msg := fmt.Sprintf("unsub %d", id)
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return &Error{SubscriptionID: id, Message: "send unsubscribe", Cause: err}
	}
	delete(c.subs, id)
	c.logger.Debug("unsubscribed", "id", id)
	return nil
}

// Receive blocks until the next answer frame arrives and returns it
// together with the subscription it belongs to. Keepalive frames are
// skipped, delta frames are logged and skipped (every consumer here
// unsubscribes after the first full answer), and server error frames are
// returned as *Error, which callers treat as fatal to their receive loop.
func (c *Client) Receive(ctx context.Context) (int, Subscription, json.RawMessage, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, Subscription{}, nil, err
		}

		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return 0, Subscription{}, nil, &Error{Message: "read message", Cause: err}
		}

		id, code, payload, err := splitFrame(string(frame))
		if err != nil {
			return 0, Subscription{}, nil, err
		}

		sub := c.subs[id]

		switch code {
		case "A":
			return id, sub, json.RawMessage(payload), nil
		case "C":
			continue
		case "D":
			c.logger.Debug("ignoring delta frame", "id", id, "type", sub.Type)
			continue
		case "E":
			return 0, Subscription{}, nil, &Error{
				SubscriptionID: id,
				Message:        fmt.Sprintf("server error for %q subscription: %s", sub.Type, payload),
			}
		default:
			return 0, Subscription{}, nil, &Error{
				SubscriptionID: id,
				Message:        fmt.Sprintf("unknown frame code %q", code),
			}
		}
	}
}

// splitFrame parses an inbound frame of the form "<id> <code> <payload>".
// The payload is optional for keepalive frames.
func splitFrame(frame string) (int, string, string, error) {
	parts := strings.SplitN(frame, " ", 3)
	if len(parts) < 2 {
		return 0, "", "", &Error{Message: fmt.Sprintf("malformed frame %q", frame)}
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", "", &Error{Message: fmt.Sprintf("malformed frame id %q", parts[0]), Cause: err}
	}
	payload := ""
	if len(parts) == 3 {
		payload = parts[2]
	}
	return id, parts[1], payload, nil
}

// Close tears down the websocket connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
