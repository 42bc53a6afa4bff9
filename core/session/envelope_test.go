package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnvelope_TTL_Expired(t *testing.T) {
	now := time.Now().UnixMilli()

	// No TTL set - not expired
	env := Envelope{}
	require.False(t, env.Expired())
	require.Equal(t, time.Duration(0), env.TTL())

	// TTL set but no CreatedAtMs - not expired
	env = Envelope{TTLMs: 1000}
	require.False(t, env.Expired())

	// TTL in the future - not expired
	env = Envelope{TTLMs: 1000, CreatedAtMs: now}
	require.False(t, env.Expired())
	require.Greater(t, env.TTL(), time.Duration(0))

	// TTL in the past - expired
	env = Envelope{TTLMs: 100, CreatedAtMs: now - 200}
	require.True(t, env.Expired())
	require.Equal(t, time.Duration(0), env.TTL())
}

func TestEnvelope_Validate_ReservedHeaders(t *testing.T) {
	env := Envelope{}
	require.NoError(t, env.Validate())

	env = Envelope{Headers: map[string]string{"my-header": "value"}}
	require.NoError(t, env.Validate())

	// the key header itself is allowed
	env = Envelope{Headers: map[string]string{HeaderKey: "some-key"}}
	require.NoError(t, env.Validate())

	// other x-rsrc-* headers are reserved
	env = Envelope{Headers: map[string]string{"x-rsrc-internal": "value"}}
	require.ErrorIs(t, env.Validate(), ErrReservedHeader)

	// case insensitive check
	env = Envelope{Headers: map[string]string{"X-RSRC-INTERNAL": "value"}}
	require.ErrorIs(t, env.Validate(), ErrReservedHeader)
}

func TestWithTTL(t *testing.T) {
	env := Envelope{}
	WithTTL(5 * time.Second)(&env)

	require.Equal(t, int64(5000), env.TTLMs)
	require.NotZero(t, env.CreatedAtMs)
}

func TestWithHeader(t *testing.T) {
	env := Envelope{}
	WithHeader("a", "1")(&env)
	WithHeader("b", "2")(&env)

	v, ok := env.GetHeader("a")
	require.True(t, ok)
	require.Equal(t, "1", v)

	_, ok = env.GetHeader("missing")
	require.False(t, ok)
}

type customNamed struct{}

func (customNamed) MessageType() string { return "custom.named" }

func TestMessageType(t *testing.T) {
	require.Equal(t, "custom.named", messageType(customNamed{}))
	require.Equal(t, MsgOpenSession, messageType(OpenSessionRequest{}))
	require.Contains(t, messageType(struct2{}), "struct2")
}

type struct2 struct{}
