package session

// Wire message types of the session/resource management protocol.
const (
	MsgOpenSession  = "rsrc.session.open"
	MsgCloseSession = "rsrc.session.close"

	MsgResourceExists         = "rsrc.resource.exists"
	MsgGetResource            = "rsrc.resource.get"
	MsgCreateResource         = "rsrc.resource.create"
	MsgGetResourceIfExists    = "rsrc.resource.get_if_exists"
	MsgCreateResourceIfExists = "rsrc.resource.create_if_exists"
	MsgDeleteResource         = "rsrc.resource.delete"
)

type (
	OpenSessionRequest struct {
		ClientID string `json:"client_id"`
	}
	OpenSessionResponse struct {
		SessionID int64 `json:"session_id"`
	}

	CloseSessionRequest  struct{}
	CloseSessionResponse struct{}

	ResourceExistsRequest struct {
		Key string `json:"key"`
	}
	ResourceExistsResponse struct {
		Exists bool `json:"exists"`
	}

	// GetResourceRequest resolves a key with get-or-create semantics: the
	// returned id is stable for the key within a session generation.
	GetResourceRequest struct {
		Key  string `json:"key"`
		Type string `json:"type"`
	}

	// CreateResourceRequest always allocates a fresh resource instance for
	// the key.
	CreateResourceRequest struct {
		Key  string `json:"key"`
		Type string `json:"type"`
	}

	// GetResourceIfExistsRequest resolves a key only when it is still
	// present; the response carries id 0 otherwise. Used during recovery.
	GetResourceIfExistsRequest struct {
		Key  string `json:"key"`
		Type string `json:"type"`
	}

	// CreateResourceIfExistsRequest allocates a fresh instance only when
	// the key is still present; the response carries id 0 otherwise. Used
	// during recovery.
	CreateResourceIfExistsRequest struct {
		Key  string `json:"key"`
		Type string `json:"type"`
	}

	// ResourceIDResponse answers every resolution request. A non-positive
	// id means "not found".
	ResourceIDResponse struct {
		ResourceID int64 `json:"resource_id"`
	}

	DeleteResourceRequest struct {
		ResourceID int64 `json:"resource_id"`
	}
	DeleteResourceResponse struct{}
)

func (OpenSessionRequest) MessageType() string            { return MsgOpenSession }
func (CloseSessionRequest) MessageType() string           { return MsgCloseSession }
func (ResourceExistsRequest) MessageType() string         { return MsgResourceExists }
func (GetResourceRequest) MessageType() string            { return MsgGetResource }
func (CreateResourceRequest) MessageType() string         { return MsgCreateResource }
func (GetResourceIfExistsRequest) MessageType() string    { return MsgGetResourceIfExists }
func (CreateResourceIfExistsRequest) MessageType() string { return MsgCreateResourceIfExists }
func (DeleteResourceRequest) MessageType() string         { return MsgDeleteResource }
