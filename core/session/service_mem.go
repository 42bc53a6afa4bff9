package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// AppliedOp records one resource operation the stub service applied.
type AppliedOp struct {
	Name        string
	Kind        string
	Consistency string
}

type stubResource struct {
	key     string
	rtype   string
	deleted bool
	ops     []AppliedOp
}

// MemoryService is an in-process stand-in for the cluster service: it
// implements the session/resource protocol over any transport that accepts
// a ServiceHandlerFunc. Resource semantics are reduced to identity
// management plus operation recording, which is all the client layer needs.
//
// Fault hooks (ExpireSessions, ShuffleIDs, DropKey, FailResolves) let tests
// drive session loss and recovery outcomes deterministically.
type MemoryService struct {
	log *slog.Logger

	mu           sync.Mutex
	nextSession  int64
	nextResource int64
	sessions     map[int64]string          // session id -> client id
	keys         map[string]int64          // "<type>/<key>" -> bound resource id
	resources    map[int64]*stubResource   // resource id -> state
	skipLeft     int
	failLeft     int
	failErr      error
}

func NewMemoryService() *MemoryService {
	return &MemoryService{
		log:       slog.New(slog.DiscardHandler),
		sessions:  make(map[int64]string),
		keys:      make(map[string]int64),
		resources: make(map[int64]*stubResource),
	}
}

func (s *MemoryService) WithLog(log *slog.Logger) *MemoryService {
	s.log = log.With(slog.String("service", "mem"))
	return s
}

// Handle implements ServiceHandlerFunc.
func (s *MemoryService) Handle(_ context.Context, env Envelope) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if env.Type == MsgOpenSession {
		return s.openSession(env)
	}

	if _, ok := s.sessions[env.Session]; !ok {
		return nil, &ServiceError{Code: CodeUnknownSession, Message: fmt.Sprintf("session %d", env.Session)}
	}

	switch env.Type {
	case MsgCloseSession:
		delete(s.sessions, env.Session)
		return json.Marshal(CloseSessionResponse{})

	case MsgResourceExists:
		var req ResourceExistsRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return nil, err
		}
		return json.Marshal(ResourceExistsResponse{Exists: s.keyExists(req.Key)})

	case MsgGetResource:
		return s.resolve(env, false, false)
	case MsgCreateResource:
		return s.resolve(env, true, false)
	case MsgGetResourceIfExists:
		return s.resolve(env, false, true)
	case MsgCreateResourceIfExists:
		return s.resolve(env, true, true)

	case MsgDeleteResource:
		var req DeleteResourceRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return nil, err
		}
		s.deleteResource(req.ResourceID)
		return json.Marshal(DeleteResourceResponse{})
	}

	if env.Kind != "" {
		return s.apply(env)
	}
	return nil, fmt.Errorf("memory service: unknown message type %q", env.Type)
}

func (s *MemoryService) openSession(env Envelope) ([]byte, error) {
	var req OpenSessionRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return nil, err
	}
	s.nextSession++
	s.sessions[s.nextSession] = req.ClientID
	s.log.Debug("session opened", slog.Int64("session", s.nextSession))
	return json.Marshal(OpenSessionResponse{SessionID: s.nextSession})
}

type resolveRequest struct {
	Key  string `json:"key"`
	Type string `json:"type"`
}

func (s *MemoryService) resolve(env Envelope, create, ifExists bool) ([]byte, error) {
	if s.skipLeft > 0 {
		s.skipLeft--
	} else if s.failLeft > 0 {
		s.failLeft--
		return nil, s.failErr
	}

	var req resolveRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return nil, err
	}

	tk := typeKey(req.Type, req.Key)
	bound, ok := s.keys[tk]

	if ifExists && !ok {
		return json.Marshal(ResourceIDResponse{ResourceID: 0})
	}

	var id int64
	switch {
	case create:
		// Always a fresh instance; the key binding is established for
		// later IfExists checks.
		id = s.allocate(req.Type, req.Key)
		if !ok {
			s.keys[tk] = id
		}
	case ok:
		id = bound
	default:
		id = s.allocate(req.Type, req.Key)
		s.keys[tk] = id
	}

	return json.Marshal(ResourceIDResponse{ResourceID: id})
}

func (s *MemoryService) allocate(rtype, key string) int64 {
	s.nextResource++
	s.resources[s.nextResource] = &stubResource{key: key, rtype: rtype}
	return s.nextResource
}

func (s *MemoryService) apply(env Envelope) ([]byte, error) {
	r, ok := s.resources[env.Resource]
	if !ok || r.deleted {
		return nil, &ServiceError{Code: CodeUnknownResource, Message: fmt.Sprintf("resource %d", env.Resource)}
	}

	r.ops = append(r.ops, AppliedOp{Name: env.Type, Kind: env.Kind, Consistency: env.Consistency})
	// Echo the payload; concrete resource semantics live server-side and
	// are out of scope here.
	return env.Data, nil
}

func (s *MemoryService) deleteResource(id int64) {
	r, ok := s.resources[id]
	if !ok {
		return
	}
	r.deleted = true
	tk := typeKey(r.rtype, r.key)
	if s.keys[tk] == id {
		delete(s.keys, tk)
	}
}

/* ---------------------- test hooks & inspection ---------------------- */

// ExpireSessions invalidates every open session. The next submission on
// any of them is answered with CodeUnknownSession.
func (s *MemoryService) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[int64]string)
}

// ShuffleIDs rebinds every key to a freshly allocated resource id,
// simulating the id reassignment a real cluster performs across session
// generations.
func (s *MemoryService) ShuffleIDs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tk, old := range s.keys {
		r := s.resources[old]
		s.nextResource++
		s.resources[s.nextResource] = &stubResource{key: r.key, rtype: r.rtype}
		s.keys[tk] = s.nextResource
		delete(s.resources, old)
	}
}

// DropKey removes the binding for a key, as if another client deleted the
// resource. Recovery re-resolution for it yields id 0.
func (s *MemoryService) DropKey(rtype, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tk := typeKey(rtype, key)
	if id, ok := s.keys[tk]; ok {
		if r := s.resources[id]; r != nil {
			r.deleted = true
		}
		delete(s.keys, tk)
	}
}

// FailResolves makes the next n resolution requests fail with err.
func (s *MemoryService) FailResolves(n int, err error) {
	s.FailResolvesAfter(0, n, err)
}

// FailResolvesAfter lets skip resolution requests through, then fails the
// following n with err.
func (s *MemoryService) FailResolvesAfter(skip, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipLeft = skip
	s.failLeft = n
	s.failErr = err
}

// ResourceID returns the id currently bound to (rtype, key), or 0.
func (s *MemoryService) ResourceID(rtype, key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[typeKey(rtype, key)]
}

// Applied returns the operations applied to a resource id, in order.
func (s *MemoryService) Applied(id int64) []AppliedOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return nil
	}
	out := make([]AppliedOp, len(r.ops))
	copy(out, r.ops)
	return out
}

// OpenSessions returns the number of live sessions.
func (s *MemoryService) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func typeKey(rtype, key string) string { return rtype + "/" + key }

// keyExists is type-agnostic: Exists asks about the key namespace, not a
// particular declared type. Caller must hold mu.
func (s *MemoryService) keyExists(key string) bool {
	for tk := range s.keys {
		if strings.HasSuffix(tk, "/"+key) {
			return true
		}
	}
	return false
}
