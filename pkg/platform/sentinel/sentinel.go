package sentinel

import "errors"

// Facts reported by stores and remote collaborators. Services translate them
// into domain errors or degrade around them:
// - ErrNotFound: record, namespace or fingerprint does not exist
// - ErrUnavailable: backing store or responder cannot be reached right now
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
