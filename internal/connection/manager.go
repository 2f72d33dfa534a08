package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/achi777/cryptoTrade/internal/auth"
	"github.com/achi777/cryptoTrade/internal/subscription"
)

// Manager owns the single WebSocket session to the exchange: connect,
// authenticate, replay subscriptions, and reconnect with a bounded retry
// budget when the connection drops. It implements subscription.Sender so the
// registry can push subscribe/unsubscribe frames through the live session.
type Manager struct {
	cfg      ManagerConfig
	tokens   auth.TokenSource
	registry *subscription.Registry
	logger   *slog.Logger

	// newClient is swapped out in tests.
	newClient func(ClientConfig, *slog.Logger) Client

	events  chan RawMessage
	stateCh chan State

	mu       sync.Mutex
	state    State
	client   Client
	gen      int
	retrying bool
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a connection manager and binds it to the registry as
// its transport sender.
func NewManager(cfg ManagerConfig, tokens auth.TokenSource, registry *subscription.Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = DefaultManagerConfig().ReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultManagerConfig().ReconnectDelay
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = DefaultManagerConfig().AuthTimeout
	}
	if cfg.Client.BufferSize <= 0 {
		cfg.Client = DefaultClientConfig()
	}
	cfg.Client.URL = cfg.URL

	m := &Manager{
		cfg:       cfg,
		tokens:    tokens,
		registry:  registry,
		logger:    logger,
		newClient: NewClient,
		events:    make(chan RawMessage, cfg.Client.BufferSize),
		stateCh:   make(chan State, 16),
	}
	registry.Bind(m)
	return m
}

// Connect establishes and authenticates the session. Calling Connect while a
// session is live or a reconnect cycle is running is a no-op. If the first
// attempt fails, the bounded retry cycle continues in the background and the
// first attempt's error is returned.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrAlreadyClosed
	}
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return nil
	}
	if m.ctx == nil {
		m.ctx, m.cancel = context.WithCancel(ctx)
	}
	m.mu.Unlock()

	m.setState(StateConnecting)

	if err := m.establish(); err != nil {
		m.logger.Warn("connect failed, retrying in background", "error", err)
		m.startRetry()
		return err
	}
	return nil
}

// Disconnect tears the session down and clears all subscription bookkeeping.
// The manager cannot be reused afterwards.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cl := m.client
	m.client = nil
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cl != nil {
		cl.Close()
	}

	m.registry.Clear()
	m.wg.Wait()
	m.setState(StateDisconnected)

	m.logger.Info("disconnected")
	return nil
}

// Events returns the channel of data frames in arrival order. Control frames
// for the auth handshake are consumed by the manager and never appear here.
func (m *Manager) Events() <-chan RawMessage {
	return m.events
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StateChanges returns a channel of state transitions. Slow consumers miss
// intermediate transitions rather than blocking the session.
func (m *Manager) StateChanges() <-chan State {
	return m.stateCh
}

// SendSubscribe implements subscription.Sender.
func (m *Manager) SendSubscribe(topics []subscription.Topic) error {
	return m.sendChannels("subscribe", topics)
}

// SendUnsubscribe implements subscription.Sender.
func (m *Manager) SendUnsubscribe(topics []subscription.Topic) error {
	return m.sendChannels("unsubscribe", topics)
}

func (m *Manager) sendChannels(action string, topics []subscription.Topic) error {
	m.mu.Lock()
	cl := m.client
	st := m.state
	m.mu.Unlock()

	if cl == nil || st < StateConnected {
		return subscription.ErrNotConnected
	}

	frame, err := json.Marshal(channelMessage{Type: action, Channels: channelRefs(topics)})
	if err != nil {
		return err
	}

	if err := cl.Send(frame); err != nil {
		if errors.Is(err, ErrNotConnected) {
			return subscription.ErrNotConnected
		}
		return err
	}
	return nil
}

// establish runs one full connect-and-authenticate attempt and, on success,
// replays the subscription set.
func (m *Manager) establish() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrAlreadyClosed
	}
	m.gen++
	gen := m.gen
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.mu.Unlock()

	cl := m.newClient(m.cfg.Client, m.logger)
	if err := cl.Connect(m.ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.client = cl
	m.mu.Unlock()
	m.setState(StateConnected)

	authCh := make(chan error, 1)
	m.wg.Add(1)
	go m.pump(cl, gen, authCh)

	if err := m.authenticate(cl, authCh); err != nil {
		cl.Close()
		return err
	}

	m.setState(StateAuthenticated)
	m.logger.Info("session established", "url", m.cfg.URL)

	// Server-side subscriptions do not survive a disconnect; the registry
	// set is the source of truth.
	if err := m.registry.Replay(); err != nil {
		m.logger.Warn("subscription replay failed", "error", err)
	}
	return nil
}

// authenticate sends the token frame and waits for the server verdict.
func (m *Manager) authenticate(cl Client, authCh <-chan error) error {
	token, err := m.tokens.Token()
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}

	frame, err := json.Marshal(authMessage{Type: "authenticate", Token: token})
	if err != nil {
		return err
	}
	if err := cl.Send(frame); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	select {
	case <-m.ctx.Done():
		return m.ctx.Err()
	case <-time.After(m.cfg.AuthTimeout):
		return ErrTimeout
	case err := <-authCh:
		return err
	}
}

// pump reads one connection's frames: auth verdicts go to authCh, everything
// else is forwarded to the events channel in arrival order. A connection
// error hands control to the reconnect cycle.
func (m *Manager) pump(cl Client, gen int, authCh chan<- error) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return

		case err := <-cl.Errors():
			m.logger.Warn("connection error", "error", err)
			m.scheduleReconnect(gen)
			return

		case msg, ok := <-cl.Messages():
			if !ok {
				m.scheduleReconnect(gen)
				return
			}

			var env Envelope
			if err := json.Unmarshal(msg.Data, &env); err != nil {
				m.logger.Debug("unparseable frame", "error", err)
				continue
			}

			switch env.Type {
			case "authenticated":
				select {
				case authCh <- nil:
				default:
				}
				continue
			case "auth_error":
				var payload authResultPayload
				json.Unmarshal(env.Data, &payload)
				verdict := error(ErrAuthFailed)
				if payload.Error != "" {
					verdict = fmt.Errorf("%w: %s", ErrAuthFailed, payload.Error)
				}
				select {
				case authCh <- verdict:
				default:
				}
				continue
			}

			// Blocks when the buffer is full; the consumer's growable
			// queue keeps this short, and shutdown unblocks via ctx.
			select {
			case m.events <- msg:
			case <-m.ctx.Done():
				return
			}
		}
	}
}

// scheduleReconnect kicks off the retry cycle for a lost connection. Stale
// generations (an old pump outliving a replacement connection) are ignored.
func (m *Manager) scheduleReconnect(gen int) {
	m.mu.Lock()
	if m.closed || gen != m.gen || m.retrying {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.setState(StateConnecting)
	m.startRetry()
}

func (m *Manager) startRetry() {
	m.mu.Lock()
	if m.closed || m.retrying {
		m.mu.Unlock()
		return
	}
	m.retrying = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.retryLoop()
}

// retryLoop makes up to ReconnectAttempts attempts with a fixed delay
// between them. Success resets the budget: the next outage starts a fresh
// cycle. Exhaustion parks the manager in StateDisconnected; a later Connect
// call starts over.
func (m *Manager) retryLoop() {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		m.retrying = false
		m.mu.Unlock()
	}()

	for attempt := 1; attempt <= m.cfg.ReconnectAttempts; attempt++ {
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(m.cfg.ReconnectDelay):
		}

		m.setState(StateConnecting)
		m.logger.Info("reconnecting", "attempt", attempt, "max", m.cfg.ReconnectAttempts)

		if err := m.establish(); err != nil {
			m.logger.Warn("reconnect failed", "attempt", attempt, "error", err)
			continue
		}
		return
	}

	m.logger.Error("reconnect attempts exhausted, going offline",
		"attempts", m.cfg.ReconnectAttempts,
	)
	m.setState(StateDisconnected)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s || (m.closed && s != StateDisconnected) {
		m.mu.Unlock()
		return
	}
	m.state = s
	m.mu.Unlock()

	select {
	case m.stateCh <- s:
	default:
	}
}
