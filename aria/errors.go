package aria

import "errors"

var (
	// ErrNoSnapshot is returned by SelectRef before any snapshot succeeded.
	ErrNoSnapshot = errors.New("aria: no snapshot refs found, take a snapshot first")
	// ErrUnknownRef is returned by SelectRef for a ref not in the registry.
	ErrUnknownRef = errors.New("aria: ref not found")
	// ErrDetached aborts a build that reached a node outside the document.
	ErrDetached = errors.New("aria: element is detached from the document")
	// ErrNoBody is returned when the document has no <body>.
	ErrNoBody = errors.New("aria: document has no body")
)
