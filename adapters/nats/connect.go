package nats

import (
	"os"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
)

type closeFunc = func()

// Connector produces the NATS connection a transport runs on, together
// with the release function the transport invokes from Close.
type Connector func() (nc *natsgo.Conn, release closeFunc, err error)

// ConnectURL dials a single NATS endpoint. The connection is named so it
// is identifiable in server-side monitoring.
func ConnectURL(natsURL string) Connector {
	return func() (*natsgo.Conn, closeFunc, error) {
		nc, err := natsgo.Connect(
			natsURL,
			natsgo.Name("rsrc"),
			natsgo.MaxReconnects(5),
			natsgo.ReconnectWait(250*time.Millisecond),
		)
		if err != nil {
			return nil, nil, err
		}
		return nc, nc.Close, nil
	}
}

// ConnectDefault resolves the endpoint from the environment: RSRC_NATS_URL
// first, the conventional NATS_URL second, the library default last.
func ConnectDefault() Connector {
	for _, key := range []string{"RSRC_NATS_URL", "NATS_URL"} {
		if url := os.Getenv(key); url != "" {
			return ConnectURL(url)
		}
	}
	return ConnectURL(natsgo.DefaultURL)
}

// ReuseConnection shares one underlying connection across transports: the
// first lease dials, every later lease joins, and the connection is closed
// when the last lease is released.
func ReuseConnection(connect Connector) Connector {
	s := &sharedConn{connect: connect}
	return s.lease
}

type sharedConn struct {
	connect Connector

	mu      sync.Mutex
	nc      *natsgo.Conn
	release closeFunc
	leases  int
}

func (s *sharedConn) lease() (*natsgo.Conn, closeFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nc == nil {
		nc, release, err := s.connect()
		if err != nil {
			return nil, nil, err
		}
		s.nc, s.release = nc, release
	}
	s.leases++
	return s.nc, s.drop, nil
}

func (s *sharedConn) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leases--
	if s.leases > 0 {
		return
	}
	s.release()
	s.nc, s.release = nil, nil
}
