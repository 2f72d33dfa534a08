package connection

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/achi777/cryptoTrade/internal/subscription"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAuthFailed      = errors.New("authentication rejected")
	ErrTimeout         = errors.New("operation timeout")
	ErrAlreadyClosed   = errors.New("already closed")
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// RawMessage wraps raw message bytes with a receive timestamp.
type RawMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Envelope is the outer frame of every server message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// authMessage is the outbound authentication frame.
type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// channelRef names one stream in a subscribe/unsubscribe frame.
type channelRef struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// channelMessage is the outbound subscribe/unsubscribe frame.
type channelMessage struct {
	Type     string       `json:"type"`
	Channels []channelRef `json:"channels"`
}

// authResultPayload is the data of "authenticated" and "auth_error" frames.
type authResultPayload struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
	Error   string `json:"error"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // WebSocket URL (e.g., wss://exchange.example.com/ws)
	PingInterval time.Duration // Interval between keepalive pings
	PingTimeout  time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval: 30 * time.Second,
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1024,
	}
}

// ManagerConfig configures the connection Manager.
type ManagerConfig struct {
	URL               string        // WebSocket URL
	ReconnectAttempts int           // Max consecutive reconnect attempts before giving up
	ReconnectDelay    time.Duration // Fixed wait between reconnect attempts
	AuthTimeout       time.Duration // Timeout for the authentication handshake
	Client            ClientConfig  // Per-connection settings
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ReconnectAttempts: 5,
		ReconnectDelay:    1 * time.Second,
		AuthTimeout:       10 * time.Second,
		Client:            DefaultClientConfig(),
	}
}

// channelRefs converts registry topics into wire channel refs.
func channelRefs(topics []subscription.Topic) []channelRef {
	refs := make([]channelRef, 0, len(topics))
	for _, t := range topics {
		refs = append(refs, channelRef{Type: string(t.Kind), Symbol: t.Symbol})
	}
	return refs
}
