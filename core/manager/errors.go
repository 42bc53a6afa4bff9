package manager

import "errors"

var (
	// Precondition violations, reported synchronously.
	ErrKeyRequired   = errors.New("key is required")
	ErrTypeRequired  = errors.New("resource type is required")
	ErrBuildRequired = errors.New("build function is required")

	// ErrConstruct wraps failures of caller-supplied build functions.
	ErrConstruct = errors.New("resource construction failed")

	// ErrTypeConflict is returned when a key resolves to an already
	// tracked instance of a different declared type.
	ErrTypeConflict = errors.New("resource type conflict")

	// ErrStaleBinding is returned by submissions through an instance whose
	// binding did not survive the last recovery cycle. The instance stays
	// inert until obtained again via Get or Create.
	ErrStaleBinding = errors.New("resource binding is stale")
)
