// Package errdefs holds the errors shared by every storage backend.
package errdefs

import "errors"

// ErrObjectNotFound is returned by Get when no object exists under the key.
var ErrObjectNotFound = errors.New("object not found")
