// Package subscription tracks the set of streaming topics the session wants.
// The set is the single source of truth for what the server should believe is
// subscribed: it survives disconnects and is replayed in full after every
// successful reconnect.
package subscription

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// Kind identifies one stream of events for an instrument.
type Kind string

const (
	KindTicker    Kind = "ticker"
	KindOrderBook Kind = "orderbook"
	KindTrades    Kind = "trades"
)

// InstrumentKinds are the topic kinds an instrument view needs.
var InstrumentKinds = []Kind{KindTicker, KindOrderBook, KindTrades}

// Topic is a (kind, symbol) pair.
type Topic struct {
	Kind   Kind
	Symbol string
}

// Key returns the registry key, e.g. "ticker:BTC_USDT".
func (t Topic) Key() string {
	return string(t.Kind) + ":" + t.Symbol
}

// Sender transmits subscribe/unsubscribe messages over the live transport.
// Implementations return ErrNotConnected when there is no established
// session; the registry keeps its set either way and relies on Replay.
type Sender interface {
	SendSubscribe(topics []Topic) error
	SendUnsubscribe(topics []Topic) error
}

// ErrNotConnected is returned by a Sender with no established session.
var ErrNotConnected = errors.New("not connected")

// Registry is the idempotent topic set.
type Registry struct {
	mu     sync.Mutex
	topics map[string]Topic
	sender Sender
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		topics: make(map[string]Topic),
		logger: logger,
	}
}

// Bind attaches the transport sender. Called once by the connection manager
// during wiring; until then the registry only records intent.
func (r *Registry) Bind(sender Sender) {
	r.mu.Lock()
	r.sender = sender
	r.mu.Unlock()
}

// Subscribe adds topics to the set and, if a session is established, sends a
// subscribe message for the ones actually added. Adding a topic twice is a
// no-op and does not resend.
func (r *Registry) Subscribe(topics ...Topic) error {
	r.mu.Lock()
	added := make([]Topic, 0, len(topics))
	for _, t := range topics {
		if _, ok := r.topics[t.Key()]; ok {
			continue
		}
		r.topics[t.Key()] = t
		added = append(added, t)
	}
	sender := r.sender
	r.mu.Unlock()

	if len(added) == 0 || sender == nil {
		return nil
	}

	if err := sender.SendSubscribe(added); err != nil {
		if errors.Is(err, ErrNotConnected) {
			// The set diverges from the server only while disconnected;
			// Replay resolves it on the next established session.
			r.logger.Debug("subscribe deferred until reconnect", "topics", len(added))
			return nil
		}
		return err
	}
	return nil
}

// Unsubscribe removes topics from the set and, if a session is established,
// sends an unsubscribe message for the ones actually removed. Removing an
// absent topic is a no-op.
func (r *Registry) Unsubscribe(topics ...Topic) error {
	r.mu.Lock()
	removed := make([]Topic, 0, len(topics))
	for _, t := range topics {
		if _, ok := r.topics[t.Key()]; !ok {
			continue
		}
		delete(r.topics, t.Key())
		removed = append(removed, t)
	}
	sender := r.sender
	r.mu.Unlock()

	if len(removed) == 0 || sender == nil {
		return nil
	}

	if err := sender.SendUnsubscribe(removed); err != nil {
		if errors.Is(err, ErrNotConnected) {
			r.logger.Debug("unsubscribe deferred until reconnect", "topics", len(removed))
			return nil
		}
		return err
	}
	return nil
}

// SubscribeInstrument subscribes all topic kinds for one symbol in a single
// protocol message.
func (r *Registry) SubscribeInstrument(symbol string) error {
	return r.Subscribe(instrumentTopics(symbol)...)
}

// UnsubscribeInstrument removes all topic kinds for one symbol.
func (r *Registry) UnsubscribeInstrument(symbol string) error {
	return r.Unsubscribe(instrumentTopics(symbol)...)
}

// Replay resends the entire current set. Called by the connection manager
// after every successful connect-and-authenticate; server-side subscriptions
// are not assumed to survive a disconnect.
func (r *Registry) Replay() error {
	topics := r.Topics()
	if len(topics) == 0 {
		return nil
	}

	r.mu.Lock()
	sender := r.sender
	r.mu.Unlock()
	if sender == nil {
		return nil
	}

	r.logger.Debug("replaying subscriptions", "topics", len(topics))
	return sender.SendSubscribe(topics)
}

// Clear drops the whole set. Used by Disconnect, which tears down all
// subscription bookkeeping.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.topics = make(map[string]Topic)
	r.mu.Unlock()
}

// Topics returns a sorted snapshot of the set.
func (r *Registry) Topics() []Topic {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := make([]Topic, 0, len(r.topics))
	for _, t := range r.topics {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		return topics[i].Key() < topics[j].Key()
	})
	return topics
}

// Contains reports whether a topic is in the set.
func (r *Registry) Contains(t Topic) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.topics[t.Key()]
	return ok
}

// Len returns the number of topics in the set.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics)
}

func instrumentTopics(symbol string) []Topic {
	topics := make([]Topic, 0, len(InstrumentKinds))
	for _, k := range InstrumentKinds {
		topics = append(topics, Topic{Kind: k, Symbol: symbol})
	}
	return topics
}
