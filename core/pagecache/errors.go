package pagecache

import "errors"

// --- Error Definitions ---

var (
	ErrInvalidPageSize  = errors.New("page size must be a positive power of two")
	ErrInvalidExtraSize = errors.New("extra size must be between 0 and 250 bytes")
	ErrUnknownPolicy    = errors.New("unknown replacement policy")
	ErrDuplicatePageID  = errors.New("page id already present in directory")
)
