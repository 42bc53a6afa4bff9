package session

import (
	"context"
)

// ServiceHandlerFunc handles a single envelope on the service side and
// returns the response payload. Returning a *ServiceError propagates its
// code to the client; any other error is reported as a plain message.
type ServiceHandlerFunc = func(ctx context.Context, env Envelope) ([]byte, error)

// Transport delivers envelopes to the cluster service and returns replies.
type Transport interface {
	// Request sends an envelope and waits for the reply.
	Request(ctx context.Context, env Envelope) ([]byte, error)

	Close() error
}
