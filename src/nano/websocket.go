package nano

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	TopicConfirmation = "confirmation"

	writeWait = 10 * time.Second
)

// SubscriptionOptions filters the confirmation topic to a set of accounts.
type SubscriptionOptions struct {
	AllLocalAccounts *bool    `json:"all_local_accounts,omitempty"`
	Accounts         []string `json:"accounts"`
}

// SubscriptionRequest is a subscribe or unsubscribe action.
type SubscriptionRequest struct {
	Action  string              `json:"action"`
	Topic   string              `json:"topic"`
	Ack     bool                `json:"ack"`
	Options SubscriptionOptions `json:"options"`
}

// PingRequest keeps the connection alive.
type PingRequest struct {
	Action string `json:"action"`
}

// Event is any inbound frame. Acks carry Ack, notifications carry Topic and
// Message.
type Event struct {
	Topic   string          `json:"topic"`
	Ack     string          `json:"ack"`
	Time    string          `json:"time"`
	Message json.RawMessage `json:"message"`
}

// Confirmation is the message of a confirmation notification.
type Confirmation struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Hash    string `json:"hash"`
	Block   struct {
		Type    string `json:"type"`
		Subtype string `json:"subtype"`
	} `json:"block"`
}

// Confirmation decodes the message of a confirmation event.
func (e *Event) Confirmation() (*Confirmation, error) {
	if e.Topic != TopicConfirmation {
		return nil, fmt.Errorf("%w: event topic is %q", ErrProtocol, e.Topic)
	}
	var c Confirmation
	if err := json.Unmarshal(e.Message, &c); err != nil {
		return nil, fmt.Errorf("%w: confirmation message: %v", ErrProtocol, err)
	}
	if c.Hash == "" || c.Account == "" {
		return nil, fmt.Errorf("%w: confirmation without hash or account", ErrProtocol)
	}
	return &c, nil
}

// Feed is one websocket connection to a node's push channel. Writes are
// serialised; Next must be called from a single goroutine.
type Feed struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// DialFeed opens the push channel at url.
func DialFeed(ctx context.Context, url string, handshakeTimeout time.Duration) (*Feed, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: websocket handshake with %s returned %d: %v", ErrConnection, url, resp.StatusCode, err)
		}
		return nil, transportError("websocket dial", url, err)
	}
	return &Feed{conn: conn}, nil
}

// Subscribe asks for confirmations of accounts.
func (f *Feed) Subscribe(accounts []string) error {
	all := false
	return f.writeJSON(SubscriptionRequest{
		Action:  "subscribe",
		Topic:   TopicConfirmation,
		Ack:     true,
		Options: SubscriptionOptions{AllLocalAccounts: &all, Accounts: accounts},
	})
}

// Unsubscribe drops confirmations of accounts.
func (f *Feed) Unsubscribe(accounts []string) error {
	if accounts == nil {
		accounts = []string{}
	}
	return f.writeJSON(SubscriptionRequest{
		Action:  "unsubscribe",
		Topic:   TopicConfirmation,
		Ack:     true,
		Options: SubscriptionOptions{Accounts: accounts},
	})
}

// Ping sends a keep-alive.
func (f *Feed) Ping() error {
	return f.writeJSON(PingRequest{Action: "ping"})
}

func (f *Feed) writeJSON(v interface{}) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := f.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("%w: websocket write: %v", ErrConnection, err)
	}
	return nil
}

// Next blocks for the next text frame and decodes it.
func (f *Feed) Next() (*Event, error) {
	for {
		msgType, data, err := f.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: websocket read: %v", ErrConnection, err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: websocket frame: %v", ErrProtocol, err)
		}
		return &ev, nil
	}
}

// Close sends a close frame and tears the connection down. Safe to call
// more than once and concurrently with Next, which then returns an error.
func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.writeMu.Lock()
		f.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		f.writeMu.Unlock()
		err = f.conn.Close()
	})
	return err
}
