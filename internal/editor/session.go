// Package editor ties a draft to its collaborators for one editing session:
// the highlight channel, the configuration modal and the submit call.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/cadence/internal/highlight"
	"github.com/alexanderramin/cadence/internal/sequence"
	"github.com/alexanderramin/cadence/internal/serializer"
	"github.com/alexanderramin/cadence/internal/verify"
)

// DefaultHighlightDuration is how long a rejected node stays flagged when
// Session.HighlightFor is left at zero.
const DefaultHighlightDuration = 3 * time.Second

// HighlightUntilCleared keeps a rejected node flagged until the next
// successful save or an explicit Clear.
const HighlightUntilCleared time.Duration = -1

// ModalOpener asks the modal layer to open one node's configuration.
type ModalOpener interface {
	OpenConfiguration(nodeID string)
}

// ModalOpenerFunc adapts a function to ModalOpener.
type ModalOpenerFunc func(nodeID string)

func (f ModalOpenerFunc) OpenConfiguration(nodeID string) { f(nodeID) }

// SubmitFunc hands a validated document to persistence.
type SubmitFunc func(ctx context.Context, seq *serializer.OrderedSequence) error

// SaveResult is the outcome of Save. A rejected save names the reason and,
// when a node is to blame, that node.
type SaveResult struct {
	OK       bool
	Reason   string
	NodeID   string
	Sequence *serializer.OrderedSequence
}

// ErrNoSubmit is returned when Save passes validation but nothing can
// receive the document.
var ErrNoSubmit = errors.New("no submit function configured")

// Session is one editing session over a draft.
type Session struct {
	Draft        *sequence.Draft
	Highlights   *highlight.Channel
	Modal        ModalOpener
	Submit       SubmitFunc
	Verify       verify.Options
	// HighlightFor is how long a rejected node stays flagged. Zero selects
	// DefaultHighlightDuration; a negative value means HighlightUntilCleared.
	HighlightFor time.Duration
}

// Save verifies the draft and, when it passes, flattens it and submits the
// result. A failed verification never reaches Submit: the offending node is
// highlighted and the modal is asked to open on it. The returned error is
// reserved for submit failures.
func (s *Session) Save(ctx context.Context) (SaveResult, error) {
	if strings.TrimSpace(s.Draft.Name) == "" {
		return SaveResult{Reason: "sequence name is required"}, nil
	}

	res := verify.Verify(s.Draft, s.Verify)
	if !res.Valid {
		if s.Highlights != nil {
			s.Highlights.Highlight([]string{res.NodeID}, s.highlightFor())
		}
		if s.Modal != nil {
			s.Modal.OpenConfiguration(res.NodeID)
		}
		return SaveResult{Reason: res.Message, NodeID: res.NodeID}, nil
	}

	if s.Submit == nil {
		return SaveResult{}, ErrNoSubmit
	}
	seq := serializer.Flatten(s.Draft)
	if err := s.Submit(ctx, seq); err != nil {
		return SaveResult{}, fmt.Errorf("submitting sequence: %w", err)
	}
	if s.Highlights != nil {
		s.Highlights.Clear()
	}
	return SaveResult{OK: true, Sequence: seq}, nil
}

func (s *Session) highlightFor() time.Duration {
	switch {
	case s.HighlightFor == 0:
		return DefaultHighlightDuration
	case s.HighlightFor < 0:
		return HighlightUntilCleared
	}
	return s.HighlightFor
}
