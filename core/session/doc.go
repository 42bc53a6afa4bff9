// Package session manages the single logical connection a process holds to
// the cluster service and defines the wire envelope every operation travels
// in.
//
// # Lifecycle
//
// A [Session] moves through four states:
//
//	Unopened -> Open -> Closed
//	              \---> Lost -> Open (reopen)
//
// Open sends an open-session request through the configured [Transport] and
// stores the server-assigned session id. A response carrying the
// [CodeUnknownSession] code marks the session Lost exactly once per
// generation and notifies subscribers; the manager package reacts to that
// notification by running its recovery strategy. While Lost, submissions
// fail fast with [ErrSessionLost] until the session is reopened.
//
// # Envelope
//
// Every request is wrapped in an [Envelope] carrying the message type, the
// session id, an optional target resource id, the resolved consistency and
// an optional TTL. Envelopes are routed to a partition derived from the
// resource key (see internal/shard), so a partitioned cluster service can
// scale horizontally.
//
// # Transports
//
// [Transport] abstracts the messaging layer. [MemoryTransport] delivers
// envelopes in-process and, together with [MemoryService], forms a complete
// stub cluster service for tests. The adapters/nats package provides a NATS
// implementation.
package session
