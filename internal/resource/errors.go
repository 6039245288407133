package resource

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by stores.
var (
	// ErrSuperseded is returned by FetchList when a newer fetch settled first
	// and this response was discarded.
	ErrSuperseded = errors.New("fetch superseded by a newer request")

	// ErrNotCreatable is returned by Create when the transport cannot create
	// items.
	ErrNotCreatable = errors.New("resource does not support create")

	// ErrPageOverflow marks a list response carrying more items than its page size.
	ErrPageOverflow = errors.New("response exceeds page size")
)

// FetchError is a failed list or detail fetch. It is recorded on the store
// as StatusFailed and also returned to the caller.
type FetchError struct {
	Resource string
	Op       string // "list" or "get"
	ID       string // set for "get"
	Err      error
}

func (e *FetchError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s %q: %v", e.Resource, e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Resource, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError is a failed mutating call. It is returned to the caller only;
// store state is untouched.
type MutationError struct {
	Resource  string
	ID        string
	Operation string
	Err       error
}

func (e *MutationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %s: %v", e.Resource, e.Operation, e.Err)
	}
	return fmt.Sprintf("%s: %s %q: %v", e.Resource, e.Operation, e.ID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }
