// Package socket manages the module's message-oriented network connections.
//
// Each connection moves through Connecting, Open and Closed. Sends issued while
// connecting are queued and flushed in order, before the open notification is
// delivered, so they reach the transport ahead of anything sent afterwards.
// A connection opened with auto-reconnect re-enters Connecting as soon as it
// closes, keeping its id and URL; reconnect dials are paced by a token bucket.
//
// Transport events arrive on transport goroutines and are posted to the loop.
// Every connection attempt carries a generation number, and events from an
// earlier generation are discarded.
package socket
