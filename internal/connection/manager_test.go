package connection

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/achi777/cryptoTrade/internal/auth"
	"github.com/achi777/cryptoTrade/internal/subscription"
)

// fakeClient is an in-memory Client that answers the auth handshake itself.
type fakeClient struct {
	failConnect bool
	rejectAuth  bool

	mu        sync.Mutex
	connected bool
	frames    [][]byte

	messages chan RawMessage
	errors   chan error
}

func (f *fakeClient) Connect(ctx context.Context) error {
	if f.failConnect {
		return errors.New("dial refused")
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Send(data []byte) error {
	f.mu.Lock()
	if !f.connected {
		f.mu.Unlock()
		return ErrNotConnected
	}
	f.frames = append(f.frames, data)
	f.mu.Unlock()

	var frame struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	if frame.Type == "authenticate" {
		verdict := `{"type":"authenticated","data":{"message":"Authentication successful"}}`
		if f.rejectAuth {
			verdict = `{"type":"auth_error","data":{"error":"Invalid token"}}`
		}
		f.messages <- RawMessage{Data: []byte(verdict), ReceivedAt: time.Now()}
	}
	return nil
}

func (f *fakeClient) Messages() <-chan RawMessage { return f.messages }
func (f *fakeClient) Errors() <-chan error        { return f.errors }

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// countFrames returns how many sent frames have the given type.
func (f *fakeClient) countFrames(frameType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, data := range f.frames {
		var frame struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &frame) == nil && frame.Type == frameType {
			n++
		}
	}
	return n
}

// fakeDialer hands out fakeClients and remembers every one it created.
type fakeDialer struct {
	mu          sync.Mutex
	failConnect bool
	rejectAuth  bool
	clients     []*fakeClient
}

func (d *fakeDialer) newClient(cfg ClientConfig, _ *slog.Logger) Client {
	d.mu.Lock()
	defer d.mu.Unlock()

	fc := &fakeClient{
		failConnect: d.failConnect,
		rejectAuth:  d.rejectAuth,
		messages:    make(chan RawMessage, 64),
		errors:      make(chan error, 1),
	}
	d.clients = append(d.clients, fc)
	return fc
}

func (d *fakeDialer) setFailConnect(fail bool) {
	d.mu.Lock()
	d.failConnect = fail
	d.mu.Unlock()
}

func (d *fakeDialer) clientCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.clients)
}

func (d *fakeDialer) latest() *fakeClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.clients) == 0 {
		return nil
	}
	return d.clients[len(d.clients)-1]
}

func (d *fakeDialer) subscribeFrames() int {
	d.mu.Lock()
	clients := append([]*fakeClient(nil), d.clients...)
	d.mu.Unlock()

	n := 0
	for _, fc := range clients {
		n += fc.countFrames("subscribe")
	}
	return n
}

func testManager(t *testing.T, dialer *fakeDialer) (*Manager, *subscription.Registry) {
	t.Helper()

	reg := subscription.NewRegistry(nil)
	cfg := ManagerConfig{
		URL:               "ws://test",
		ReconnectAttempts: 5,
		ReconnectDelay:    5 * time.Millisecond,
		AuthTimeout:       time.Second,
	}
	m := NewManager(cfg, auth.StaticToken("test-token"), reg, nil)
	m.newClient = dialer.newClient
	return m, reg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManager_ConnectAuthenticates(t *testing.T) {
	dialer := &fakeDialer{}
	m, _ := testManager(t, dialer)
	defer m.Disconnect()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if got := m.State(); got != StateAuthenticated {
		t.Errorf("State = %v, want authenticated", got)
	}
	if got := dialer.latest().countFrames("authenticate"); got != 1 {
		t.Errorf("authenticate frames = %d, want 1", got)
	}
}

func TestManager_ConnectIdempotent(t *testing.T) {
	dialer := &fakeDialer{}
	m, _ := testManager(t, dialer)
	defer m.Disconnect()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}

	if got := dialer.clientCount(); got != 1 {
		t.Errorf("clients created = %d, want 1", got)
	}
}

func TestManager_AuthRejected(t *testing.T) {
	dialer := &fakeDialer{rejectAuth: true}
	m, _ := testManager(t, dialer)
	defer m.Disconnect()

	err := m.Connect(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("Connect error = %v, want ErrAuthFailed", err)
	}
}

func TestManager_ReplayAfterReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	m, reg := testManager(t, dialer)
	defer m.Disconnect()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := reg.SubscribeInstrument("ETH_USDT"); err != nil {
		t.Fatalf("SubscribeInstrument failed: %v", err)
	}

	// Drop the connection twice; each recovery must replay the full set.
	for i := 0; i < 2; i++ {
		before := dialer.clientCount()
		want := dialer.subscribeFrames() + 1
		dialer.latest().errors <- ErrStaleConnection
		waitFor(t, "reconnect and replay", func() bool {
			return dialer.clientCount() > before && dialer.subscribeFrames() >= want
		})
	}

	if got := dialer.subscribeFrames(); got != 3 {
		t.Errorf("subscribe frames = %d, want 3 (initial + 2 replays)", got)
	}
	if got := reg.Len(); got != 3 {
		t.Errorf("registry size = %d, want 3", got)
	}
}

func TestManager_RetryExhaustion(t *testing.T) {
	dialer := &fakeDialer{failConnect: true}
	m, _ := testManager(t, dialer)
	defer m.Disconnect()

	if err := m.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect to fail")
	}

	// 1 synchronous attempt + 5 background retries, then offline.
	waitFor(t, "retry exhaustion", func() bool {
		return dialer.clientCount() == 6 && m.State() == StateDisconnected
	})

	// Stays offline without further attempts.
	time.Sleep(30 * time.Millisecond)
	if got := dialer.clientCount(); got != 6 {
		t.Errorf("clients created = %d, want 6", got)
	}

	// A fresh Connect starts the cycle over.
	dialer.setFailConnect(false)
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect after exhaustion failed: %v", err)
	}
	if got := m.State(); got != StateAuthenticated {
		t.Errorf("State = %v, want authenticated", got)
	}
}

func TestManager_ForwardsDataFrames(t *testing.T) {
	dialer := &fakeDialer{}
	m, _ := testManager(t, dialer)
	defer m.Disconnect()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	frame := `{"type":"ticker","data":{"symbol":"BTC_USDT","last_price":"50000.00"}}`
	dialer.latest().messages <- RawMessage{Data: []byte(frame), ReceivedAt: time.Now()}

	select {
	case msg := <-m.Events():
		if string(msg.Data) != frame {
			t.Errorf("got %q, want %q", msg.Data, frame)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestManager_FullEventBufferLosesNothing(t *testing.T) {
	dialer := &fakeDialer{}
	reg := subscription.NewRegistry(nil)
	cfg := ManagerConfig{
		URL:               "ws://test",
		ReconnectAttempts: 5,
		ReconnectDelay:    5 * time.Millisecond,
		AuthTimeout:       time.Second,
		Client:            ClientConfig{BufferSize: 1},
	}
	m := NewManager(cfg, auth.StaticToken("test-token"), reg, nil)
	m.newClient = dialer.newClient
	defer m.Disconnect()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// Far more frames than the event buffer holds; the pump must hold
	// them back rather than drop.
	const n = 8
	for i := 0; i < n; i++ {
		frame := `{"type":"ticker","data":{"symbol":"BTC_USDT","last_price":"` + string(rune('0'+i)) + `"}}`
		dialer.latest().messages <- RawMessage{Data: []byte(frame), ReceivedAt: time.Now()}
	}

	for i := 0; i < n; i++ {
		select {
		case msg := <-m.Events():
			want := `"last_price":"` + string(rune('0'+i)) + `"`
			if !strings.Contains(string(msg.Data), want) {
				t.Errorf("frame %d: got %q, want substring %q", i, msg.Data, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for frame %d of %d", i, n)
		}
	}
}

func TestManager_SubscribeWhileOffline(t *testing.T) {
	dialer := &fakeDialer{}
	m, reg := testManager(t, dialer)
	defer m.Disconnect()

	// Recorded before any session exists, sent by replay on connect.
	if err := reg.Subscribe(subscription.Topic{Kind: subscription.KindTicker, Symbol: "BTC_USDT"}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if got := dialer.subscribeFrames(); got != 1 {
		t.Errorf("subscribe frames = %d, want 1", got)
	}
}

func TestManager_DisconnectClearsRegistry(t *testing.T) {
	dialer := &fakeDialer{}
	m, reg := testManager(t, dialer)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := reg.SubscribeInstrument("BTC_USDT"); err != nil {
		t.Fatalf("SubscribeInstrument failed: %v", err)
	}

	if err := m.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	if got := reg.Len(); got != 0 {
		t.Errorf("registry size after Disconnect = %d, want 0", got)
	}
	if got := m.State(); got != StateDisconnected {
		t.Errorf("State = %v, want disconnected", got)
	}
}
