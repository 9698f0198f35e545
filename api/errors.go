// File: api/errors.go
// License: Apache-2.0
//
// Shared error values used across the eclink request transmission layer.

package api

import "errors"

// Submission and completion statuses. Every request terminates with
// exactly one of the terminal statuses below (or nil for success),
// delivered through its completion callback.
var (
	// ErrShutdown indicates the layer or transport has been shut down.
	// Submissions are rejected with it and outstanding requests are
	// drained with it.
	ErrShutdown = errors.New("eclink: layer is shut down")

	// ErrAlreadySubmitted indicates a request or packet was submitted
	// a second time. Requests are single-use.
	ErrAlreadySubmitted = errors.New("eclink: already submitted")

	// ErrInvalidState indicates an operation on a request whose state
	// forbids it, e.g. resubmitting a locked request.
	ErrInvalidState = errors.New("eclink: invalid request state")

	// ErrLocked indicates a packet refused by the transport because it
	// has been locked by a concurrent cancellation.
	ErrLocked = errors.New("eclink: packet is locked")

	// ErrBusy is internal: no admission slot is available right now.
	// It is never delivered to a completion callback.
	ErrBusy = errors.New("eclink: no admission slot available")

	// ErrTimeout indicates the request exceeded its response deadline.
	ErrTimeout = errors.New("eclink: request timed out")

	// ErrCanceled indicates the request was canceled before completing.
	ErrCanceled = errors.New("eclink: request canceled")

	// ErrRemoteProtocol indicates a protocol violation by the remote
	// side, e.g. a response observed before the acknowledgment of its
	// own request. Surfaced rather than masked.
	ErrRemoteProtocol = errors.New("eclink: remote protocol violation")
)
