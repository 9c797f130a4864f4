package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/cadence/internal/repository"
	"github.com/alexanderramin/cadence/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceService_GetAfterSave(t *testing.T) {
	database := testutil.NewTestDB(t)
	drafts := repository.NewSQLiteDraftRepo(database)
	sequences := repository.NewSQLiteSequenceRepo(database)
	ctx := context.Background()

	draftSvc := NewDraftService(drafts, sequences, testutil.NewTestUoW(database), testSettings())
	seqSvc := NewSequenceService(sequences)

	od, err := draftSvc.Create(ctx, CreateDraftInput{From: "inmail-nurture"})
	require.NoError(t, err)
	res, err := draftSvc.Save(ctx, od, nil, nil)
	require.NoError(t, err)
	require.True(t, res.OK, res.Reason)

	list, err := seqSvc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	header, steps, err := seqSvc.Get(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, od.Record.ID, header.DraftID)
	assert.Equal(t, res.Sequence, steps)

	byDraft, err := seqSvc.GetByDraftID(ctx, od.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, header.ID, byDraft.ID)
}

func TestSequenceService_GetMissing(t *testing.T) {
	database := testutil.NewTestDB(t)
	seqSvc := NewSequenceService(repository.NewSQLiteSequenceRepo(database))

	_, _, err := seqSvc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
