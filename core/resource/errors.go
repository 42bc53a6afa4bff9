package resource

import "errors"

var ErrNilOperation = errors.New("operation is required")
