package session

import (
	"errors"
	"fmt"
)

var (
	// Transport errors
	ErrTransportClosed = errors.New("transport closed")
	ErrNoService       = errors.New("no service subscriber")

	// Envelope errors
	ErrEnvelopeExpired = errors.New("envelope TTL expired")
	ErrReservedHeader  = errors.New("cannot set reserved header")

	// Session lifecycle errors
	ErrSessionNotOpen = errors.New("session not open")
	ErrSessionClosed  = errors.New("session closed")
	ErrSessionLost    = errors.New("session lost")
)

// Service error codes carried in response frames.
const (
	CodeUnknownSession  = "unknown_session"
	CodeUnknownResource = "unknown_resource"
)

// ServiceError is an error reported by the cluster service itself, as
// opposed to a transport failure. The Code is machine-readable and stable
// across transports.
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service error: %s", e.Code)
	}
	return fmt.Sprintf("service error: %s: %s", e.Code, e.Message)
}

// IsUnknownSession reports whether err is a service error indicating the
// submitting session is not known to the cluster anymore.
func IsUnknownSession(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Code == CodeUnknownSession
}

// IsUnknownResource reports whether err is a service error indicating the
// target resource does not exist (or was deleted).
func IsUnknownResource(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Code == CodeUnknownResource
}
