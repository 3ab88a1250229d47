package snapshot

import "errors"

var (
	ErrNotFound        = errors.New("snapshot not found")
	ErrNilBackend      = errors.New("snapshot backend cannot be nil")
	ErrUnknownEncoding = errors.New("unknown snapshot encoding")
	ErrReservedIDField = errors.New("persistent id field collides with a reserved payload key")
	ErrChainCycle      = errors.New("snapshot chain contains a cycle")
	ErrBrokenChain     = errors.New("snapshot chain references a missing snapshot")
)

// IsNotFound reports whether err means nothing is stored under the requested id.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
