package sequence

import (
	"errors"
	"fmt"
)

// Kinds of programmer errors raised by the engine. A BugError always wraps
// exactly one of these so callers can branch with errors.Is.
var (
	ErrNoTarget        = errors.New("no target node")
	ErrNodeNotFound    = errors.New("node not found")
	ErrWrongRole       = errors.New("node in wrong role")
	ErrSlotsFull       = errors.New("no free slot")
	ErrRootImmutable   = errors.New("root cannot be removed")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvariant       = errors.New("graph invariant violated")
)

// BugError reports an operation invoked against a node that cannot accept
// it. The graph is left untouched whenever one is returned.
type BugError struct {
	Op     string
	NodeID string
	Kind   error
	Detail string
}

func (e *BugError) Error() string {
	msg := "sequence: " + e.Op
	if e.NodeID != "" {
		msg += " " + e.NodeID
	}
	msg += ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *BugError) Unwrap() error { return e.Kind }

// IsBug reports whether err carries a BugError anywhere in its chain.
func IsBug(err error) bool {
	var be *BugError
	return errors.As(err, &be)
}

func bug(op, nodeID string, kind error, format string, args ...any) *BugError {
	return &BugError{Op: op, NodeID: nodeID, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
