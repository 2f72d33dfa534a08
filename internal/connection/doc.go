// Package connection manages the WebSocket session to the exchange.
//
// Client wraps one gorilla/websocket connection: serialized writes, a read
// loop feeding a buffered channel, and ping/pong liveness tracking.
//
// Manager sits above Client and owns the session lifecycle:
//
//	disconnected -> connecting -> connected -> authenticated
//
// After every successful connect it authenticates in-band with a bearer
// token and replays the subscription registry, so a reconnect is invisible
// to downstream consumers apart from the refreshed snapshots. Reconnects
// use a bounded budget of attempts with a fixed delay; when the budget is
// exhausted the manager goes offline until Connect is called again.
package connection
