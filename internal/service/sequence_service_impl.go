package service

import (
	"context"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/repository"
	"github.com/alexanderramin/cadence/internal/serializer"
)

type sequenceService struct {
	sequences repository.SequenceRepo
}

func NewSequenceService(sequences repository.SequenceRepo) SequenceService {
	return &sequenceService{sequences: sequences}
}

func (s *sequenceService) List(ctx context.Context) ([]*domain.SavedSequence, error) {
	return s.sequences.List(ctx)
}

func (s *sequenceService) Get(ctx context.Context, id string) (*domain.SavedSequence, *serializer.OrderedSequence, error) {
	header, err := s.sequences.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	steps, err := s.sequences.LoadSteps(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return header, steps, nil
}

func (s *sequenceService) GetByDraftID(ctx context.Context, draftID string) (*domain.SavedSequence, error) {
	return s.sequences.GetByDraftID(ctx, draftID)
}
