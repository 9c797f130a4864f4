package repository

import (
	"context"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/serializer"
)

type DraftRepo interface {
	Create(ctx context.Context, d *domain.DraftRecord) error
	GetByID(ctx context.Context, id string) (*domain.DraftRecord, error)
	List(ctx context.Context) ([]*domain.DraftRecord, error)
	Update(ctx context.Context, d *domain.DraftRecord) error
	Delete(ctx context.Context, id string) error
	// ReplaceGraph swaps the stored nodes and edges of a draft. Nodes are
	// expected in traversal order; LoadGraph returns them in that order.
	ReplaceGraph(ctx context.Context, draftID string, nodes []domain.SequenceNode, edges []domain.SequenceEdge) error
	LoadGraph(ctx context.Context, draftID string) ([]domain.SequenceNode, []domain.SequenceEdge, error)
}

type SequenceRepo interface {
	// Save stores seq as the saved sequence of s.DraftID, replacing any
	// earlier save of the same draft.
	Save(ctx context.Context, s *domain.SavedSequence, seq *serializer.OrderedSequence) error
	GetByID(ctx context.Context, id string) (*domain.SavedSequence, error)
	GetByDraftID(ctx context.Context, draftID string) (*domain.SavedSequence, error)
	LoadSteps(ctx context.Context, id string) (*serializer.OrderedSequence, error)
	List(ctx context.Context) ([]*domain.SavedSequence, error)
}
