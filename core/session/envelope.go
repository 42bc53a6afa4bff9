package session

import (
	"strings"
	"time"

	"github.com/codewandler/rsrc-go/internal/reflector"
)

const (
	headerPrefix = "x-rsrc-"

	// HeaderKey carries the partition key an envelope is routed by.
	HeaderKey = "x-rsrc-key"
)

// Operation kinds carried by resource-addressed envelopes. Protocol
// messages (session open, resolution, delete, ...) leave Kind empty.
const (
	KindCommand = "command"
	KindQuery   = "query"
)

type EnvelopeOption func(*Envelope)

// WithHeader attaches a header to the envelope. Header names starting with
// "x-rsrc-" are reserved; Validate rejects them.
func WithHeader(key, value string) EnvelopeOption {
	return func(e *Envelope) {
		if e.Headers == nil {
			e.Headers = make(map[string]string)
		}
		e.Headers[key] = value
	}
}

// WithTTL bounds how long the envelope may wait for delivery.
func WithTTL(ttl time.Duration) EnvelopeOption {
	return func(e *Envelope) {
		e.TTLMs = ttl.Milliseconds()
		if e.CreatedAtMs == 0 {
			e.CreatedAtMs = time.Now().UnixMilli()
		}
	}
}

// Envelope wraps a single request to the cluster service.
type Envelope struct {
	Shard       int               `json:"shard"`
	Type        string            `json:"type"`
	Session     int64             `json:"session,omitempty"`
	Resource    int64             `json:"resource,omitempty"`
	Kind        string            `json:"kind,omitempty"`
	Consistency string            `json:"consistency,omitempty"`
	Data        []byte            `json:"data,omitempty"`
	ReplyTo     string            `json:"reply_to,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	CreatedAtMs int64             `json:"created_at_ms,omitempty"`
	TTLMs       int64             `json:"ttl_ms,omitempty"`
}

func (e Envelope) GetHeader(key string) (string, bool) {
	if e.Headers == nil {
		return "", false
	}
	v, ok := e.Headers[key]
	return v, ok
}

// TTL returns the remaining time to live, or 0 when no TTL applies or the
// envelope already expired.
func (e Envelope) TTL() time.Duration {
	if e.TTLMs <= 0 || e.CreatedAtMs <= 0 {
		return 0
	}
	deadline := e.CreatedAtMs + e.TTLMs
	rem := deadline - time.Now().UnixMilli()
	if rem <= 0 {
		return 0
	}
	return time.Duration(rem) * time.Millisecond
}

// Expired reports whether the envelope's TTL has elapsed. Envelopes without
// a TTL never expire.
func (e Envelope) Expired() bool {
	if e.TTLMs <= 0 || e.CreatedAtMs <= 0 {
		return false
	}
	return time.Now().UnixMilli() >= e.CreatedAtMs+e.TTLMs
}

// Validate rejects envelopes using reserved headers.
func (e Envelope) Validate() error {
	for k := range e.Headers {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, headerPrefix) && lk != HeaderKey {
			return ErrReservedHeader
		}
	}
	return nil
}

// messageType derives the wire type of a protocol payload. Payloads can
// override the reflected name by implementing MessageType() string.
func messageType(v any) string {
	if t, ok := v.(interface{ MessageType() string }); ok {
		return t.MessageType()
	}
	return reflector.NameOf(v)
}
