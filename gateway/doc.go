// Package gateway implements the streaming control plane over WebSocket.
//
// Each connection speaks a message-oriented protocol: clients subscribe to
// tasks, receive live events and issue control commands (interrupt, pause,
// resume, message injection). Subscribing with a last known sequence replays
// the persisted event backlog before any live event, and per-subscription
// sequence tracking guarantees every event in the gap is delivered exactly
// once, in order. The hub doubles as the process-wide event sink fed by the
// queue and the worker.
package gateway
