package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/sequence"
	"github.com/google/uuid"
)

var testIDCounter atomic.Int64

// SequentialIDs returns an allocator producing prefix1, prefix2, ... with a
// process-wide counter so ids stay unique across drafts sharing a database.
func SequentialIDs(prefix string) func() string {
	return func() string {
		return fmt.Sprintf("%s%d", prefix, testIDCounter.Add(1))
	}
}

// Draft record options
type DraftOption func(*domain.DraftRecord)

func WithChannel(c domain.ChannelType) DraftOption {
	return func(d *domain.DraftRecord) {
		d.Channel = c
	}
}

func WithSource(src string) DraftOption {
	return func(d *domain.DraftRecord) {
		d.Source = src
	}
}

func WithCreatedAt(at time.Time) DraftOption {
	return func(d *domain.DraftRecord) {
		d.CreatedAt = at
		d.UpdatedAt = at
	}
}

func NewTestDraftRecord(name string, opts ...DraftOption) *domain.DraftRecord {
	now := time.Now().UTC().Truncate(time.Second)
	d := &domain.DraftRecord{
		ID:        uuid.New().String(),
		Name:      name,
		Channel:   domain.ChannelLinkedIn,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewValidDraft builds root(message) -> invite -> end, with the message text
// filled in so it passes verification.
func NewValidDraft(t *testing.T, name string, opts ...sequence.Option) *sequence.Draft {
	t.Helper()
	opts = append([]sequence.Option{sequence.WithIDFunc(SequentialIDs("n"))}, opts...)
	d := sequence.New(name, domain.ChannelLinkedIn, opts...)
	c1, err := d.CreateChild(domain.CommandMessage, d.RootID())
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if err := d.ApplyConfiguration(d.RootID(), domain.Configuration{
		Template: &domain.TextTemplate{PrimaryText: "Hi {{first_name}}", FallbackText: "Hi there"},
	}); err != nil {
		t.Fatalf("apply configuration: %v", err)
	}
	c2, err := d.CreateChild(domain.CommandInvite, c1)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if err := d.MarkTerminal(c2); err != nil {
		t.Fatalf("mark terminal: %v", err)
	}
	return d
}
