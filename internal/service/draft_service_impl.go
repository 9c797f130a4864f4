package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/editor"
	"github.com/alexanderramin/cadence/internal/highlight"
	"github.com/alexanderramin/cadence/internal/repository"
	"github.com/alexanderramin/cadence/internal/sequence"
	"github.com/alexanderramin/cadence/internal/serializer"
	"github.com/alexanderramin/cadence/internal/verify"
	"github.com/google/uuid"
)

// DraftSettings carries the engine and validation settings every draft is
// opened with.
type DraftSettings struct {
	Engine       []sequence.Option
	Verify       verify.Options
	HighlightFor time.Duration
}

type draftService struct {
	drafts    repository.DraftRepo
	sequences repository.SequenceRepo
	uow       db.UnitOfWork
	settings  DraftSettings
	observer  UseCaseObserver
}

func NewDraftService(
	drafts repository.DraftRepo,
	sequences repository.SequenceRepo,
	uow db.UnitOfWork,
	settings DraftSettings,
	observers ...UseCaseObserver,
) DraftService {
	return &draftService{
		drafts:    drafts,
		sequences: sequences,
		uow:       uow,
		settings:  settings,
		observer:  useCaseObserverOrNoop(observers),
	}
}

func (s *draftService) Settings() DraftSettings { return s.settings }

func (s *draftService) Create(ctx context.Context, in CreateDraftInput) (_ *OpenDraft, err error) {
	fields := map[string]any{"from": in.From}
	defer observe(ctx, s.observer, "draft.create", fields, &err)()

	seed, source, err := loadSeed(in.From)
	if err != nil {
		return nil, err
	}
	graph, err := serializer.Hydrate(seed, s.settings.Engine...)
	if err != nil {
		var invalid *serializer.InvalidError
		if errors.As(err, &invalid) {
			return nil, formatValidationErrors(invalid.Errs)
		}
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		graph.Name = name
	}
	if strings.TrimSpace(graph.Name) == "" {
		return nil, fmt.Errorf("draft name is required")
	}
	if in.Channel != "" {
		graph.Channel = in.Channel
	}
	if !graph.Channel.Valid() {
		return nil, fmt.Errorf("invalid channel type %q", graph.Channel)
	}

	now := time.Now().UTC()
	rec := &domain.DraftRecord{
		ID:        uuid.New().String(),
		Name:      graph.Name,
		Channel:   graph.Channel,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields["draft_id"] = rec.ID
	fields["nodes"] = graph.Len()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txDrafts := repository.NewSQLiteDraftRepo(tx)
		if err := txDrafts.Create(ctx, rec); err != nil {
			return err
		}
		snap := graph.Snapshot()
		return txDrafts.ReplaceGraph(ctx, rec.ID, snap.Nodes, snap.Edges)
	})
	if err != nil {
		return nil, err
	}
	return &OpenDraft{Record: rec, Graph: graph}, nil
}

// loadSeed resolves From into a document: a builtin name first, then a file
// path. An empty From yields no document.
func loadSeed(from string) (*serializer.OrderedSequence, string, error) {
	if from == "" {
		return nil, "", nil
	}
	names, err := serializer.Builtins()
	if err != nil {
		return nil, "", err
	}
	if slices.Contains(names, from) {
		seq, err := serializer.Builtin(from)
		if err != nil {
			return nil, "", err
		}
		return seq, "builtin:" + from, nil
	}
	seq, err := serializer.LoadFile(from)
	if err != nil {
		return nil, "", err
	}
	return seq, "file:" + from, nil
}

func (s *draftService) GetByID(ctx context.Context, id string) (*domain.DraftRecord, error) {
	return s.drafts.GetByID(ctx, id)
}

func (s *draftService) List(ctx context.Context) ([]*domain.DraftRecord, error) {
	return s.drafts.List(ctx)
}

func (s *draftService) Open(ctx context.Context, id string) (*OpenDraft, error) {
	return s.open(ctx, s.drafts, id)
}

func (s *draftService) open(ctx context.Context, drafts repository.DraftRepo, id string) (*OpenDraft, error) {
	rec, err := drafts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	nodes, edges, err := drafts.LoadGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	graph, err := sequence.Restore(rec.Name, rec.Channel, nodes, edges, s.settings.Engine...)
	if err != nil {
		return nil, fmt.Errorf("loading draft %s: %w", id, err)
	}
	return &OpenDraft{Record: rec, Graph: graph}, nil
}

func (s *draftService) Mutate(ctx context.Context, id string, fn func(d *sequence.Draft) error) (_ *OpenDraft, err error) {
	fields := map[string]any{"draft_id": id}
	defer observe(ctx, s.observer, "draft.mutate", fields, &err)()

	var od *OpenDraft
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txDrafts := repository.NewSQLiteDraftRepo(tx)
		loaded, err := s.open(ctx, txDrafts, id)
		if err != nil {
			return err
		}
		if err := fn(loaded.Graph); err != nil {
			return err
		}
		if err := writeDraft(ctx, txDrafts, loaded); err != nil {
			return err
		}
		od = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields["nodes"] = od.Graph.Len()
	return od, nil
}

func (s *draftService) Persist(ctx context.Context, od *OpenDraft) (err error) {
	fields := map[string]any{"draft_id": od.Record.ID, "nodes": od.Graph.Len()}
	defer observe(ctx, s.observer, "draft.persist", fields, &err)()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return writeDraft(ctx, repository.NewSQLiteDraftRepo(tx), od)
	})
}

// writeDraft stores the header, taking name and channel from the graph, and
// replaces the stored nodes and edges.
func writeDraft(ctx context.Context, drafts repository.DraftRepo, od *OpenDraft) error {
	od.Record.Name = od.Graph.Name
	od.Record.Channel = od.Graph.Channel
	od.Record.UpdatedAt = time.Now().UTC()
	if err := drafts.Update(ctx, od.Record); err != nil {
		return err
	}
	snap := od.Graph.Snapshot()
	return drafts.ReplaceGraph(ctx, od.Record.ID, snap.Nodes, snap.Edges)
}

func (s *draftService) Delete(ctx context.Context, id string) (err error) {
	defer observe(ctx, s.observer, "draft.delete", map[string]any{"draft_id": id}, &err)()
	return s.drafts.Delete(ctx, id)
}

func (s *draftService) Verify(ctx context.Context, id string) (verify.Result, error) {
	od, err := s.Open(ctx, id)
	if err != nil {
		return verify.Result{}, err
	}
	return verify.Verify(od.Graph, s.settings.Verify), nil
}

func (s *draftService) Export(ctx context.Context, id string) (*serializer.OrderedSequence, error) {
	od, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return serializer.Flatten(od.Graph), nil
}

func (s *draftService) Save(ctx context.Context, od *OpenDraft, modal editor.ModalOpener, hl *highlight.Channel) (_ editor.SaveResult, err error) {
	fields := map[string]any{"draft_id": od.Record.ID}
	defer observe(ctx, s.observer, "draft.save", fields, &err)()

	session := &editor.Session{
		Draft:        od.Graph,
		Highlights:   hl,
		Modal:        modal,
		Verify:       s.settings.Verify,
		HighlightFor: s.settings.HighlightFor,
		Submit: func(ctx context.Context, seq *serializer.OrderedSequence) error {
			saved := &domain.SavedSequence{
				ID:        uuid.New().String(),
				DraftID:   od.Record.ID,
				Name:      seq.Name,
				Channel:   seq.Channel,
				StepCount: seq.Len(),
				SavedAt:   time.Now().UTC(),
			}
			fields["sequence_id"] = saved.ID
			return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
				if err := writeDraft(ctx, repository.NewSQLiteDraftRepo(tx), od); err != nil {
					return err
				}
				return repository.NewSQLiteSequenceRepo(tx).Save(ctx, saved, seq)
			})
		},
	}

	res, err := session.Save(ctx)
	fields["ok"] = res.OK
	if !res.OK && res.Reason != "" {
		fields["reason"] = res.Reason
		fields["node_id"] = res.NodeID
	}
	return res, err
}
