package crdt

import "errors"

// Integrity errors (§7): returned to the caller. ErrBlockTypeMismatch is
// the exception: GetOrCreateBlock only logs it and returns the existing block.
var (
	ErrRefRoot          = errors.New("crdt: cannot ref a root block")
	ErrRefNonRootType    = errors.New("crdt: can only ref a block's root type")
	ErrBlockTypeMismatch = errors.New("crdt: block id already registered with a different block type")
	ErrBlockNotFound     = errors.New("crdt: referenced block not found")
)

// Transaction-state errors.
var (
	ErrNoActiveTransaction = errors.New("crdt: no active transaction")
	ErrStandaloneBlock     = errors.New("crdt: block has no owning store")
)
