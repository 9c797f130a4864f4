package service

import (
	"context"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/editor"
	"github.com/alexanderramin/cadence/internal/highlight"
	"github.com/alexanderramin/cadence/internal/sequence"
	"github.com/alexanderramin/cadence/internal/serializer"
	"github.com/alexanderramin/cadence/internal/verify"
)

// CreateDraftInput describes a new draft. From names a builtin starter
// sequence or a JSON/YAML file to seed it; empty starts from ROOT only.
// Empty Name and Channel fall back to the seed's values.
type CreateDraftInput struct {
	Name    string
	Channel domain.ChannelType
	From    string
}

// OpenDraft is a stored draft loaded into the engine.
type OpenDraft struct {
	Record *domain.DraftRecord
	Graph  *sequence.Draft
}

type DraftService interface {
	Create(ctx context.Context, in CreateDraftInput) (*OpenDraft, error)
	GetByID(ctx context.Context, id string) (*domain.DraftRecord, error)
	List(ctx context.Context) ([]*domain.DraftRecord, error)
	Open(ctx context.Context, id string) (*OpenDraft, error)
	// Mutate loads the draft, applies fn and stores the result in one
	// transaction. Nothing is written when fn fails.
	Mutate(ctx context.Context, id string, fn func(d *sequence.Draft) error) (*OpenDraft, error)
	// Persist writes an open draft's header and graph back.
	Persist(ctx context.Context, od *OpenDraft) error
	Delete(ctx context.Context, id string) error
	Verify(ctx context.Context, id string) (verify.Result, error)
	Export(ctx context.Context, id string) (*serializer.OrderedSequence, error)
	// Save runs the save protocol on an open draft. On rejection the modal
	// and highlight collaborators are notified; on success the flattened
	// sequence and the draft are stored together.
	Save(ctx context.Context, od *OpenDraft, modal editor.ModalOpener, hl *highlight.Channel) (editor.SaveResult, error)
	// Settings exposes the engine and validation settings drafts are opened with.
	Settings() DraftSettings
}

type SequenceService interface {
	List(ctx context.Context) ([]*domain.SavedSequence, error)
	Get(ctx context.Context, id string) (*domain.SavedSequence, *serializer.OrderedSequence, error)
	GetByDraftID(ctx context.Context, draftID string) (*domain.SavedSequence, error)
}
