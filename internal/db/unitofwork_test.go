package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/alexanderramin/cadence/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openUoW(t *testing.T) (*sql.DB, *db.SQLiteUnitOfWork) {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, db.NewSQLiteUnitOfWork(database)
}

func insertDraft(ctx context.Context, tx db.DBTX, id, name string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO drafts (id, name, created_at, updated_at) VALUES (?, ?, '2025-03-01T09:00:00Z', '2025-03-01T09:00:00Z')`,
		id, name)
	return err
}

func insertRoot(ctx context.Context, tx db.DBTX, draftID, nodeID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO draft_nodes (id, draft_id, role) VALUES (?, ?, 'root')`, nodeID, draftID)
	return err
}

func draftName(t *testing.T, database *sql.DB, id string) (string, bool) {
	t.Helper()
	var name string
	err := database.QueryRow(`SELECT name FROM drafts WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false
	}
	require.NoError(t, err)
	return name, true
}

func countNodes(t *testing.T, database *sql.DB, draftID string) int {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM draft_nodes WHERE draft_id = ?`, draftID).Scan(&n))
	return n
}

func TestWithinTx_CommitsDraftAndGraph(t *testing.T) {
	database, uow := openUoW(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := insertDraft(ctx, tx, "d1", "Warm intro"); err != nil {
			return err
		}
		return insertRoot(ctx, tx, "d1", "n1")
	})
	require.NoError(t, err)

	name, found := draftName(t, database, "d1")
	assert.True(t, found)
	assert.Equal(t, "Warm intro", name)
	assert.Equal(t, 1, countNodes(t, database, "d1"))
}

func TestWithinTx_RollsBackEveryWriteOnError(t *testing.T) {
	database, uow := openUoW(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := insertDraft(ctx, tx, "d2", "Abandoned"); err != nil {
			return err
		}
		if err := insertRoot(ctx, tx, "d2", "n1"); err != nil {
			return err
		}
		return fmt.Errorf("graph write failed")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph write failed")

	_, found := draftName(t, database, "d2")
	assert.False(t, found, "draft header must not survive the rollback")
	assert.Zero(t, countNodes(t, database, "d2"))
}

func TestWithinTx_ConstraintViolationRollsBack(t *testing.T) {
	database, uow := openUoW(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := insertDraft(ctx, tx, "d3", "Orphan"); err != nil {
			return err
		}
		// unknown draft: the foreign key rejects the node
		return insertRoot(ctx, tx, "missing", "n1")
	})
	require.Error(t, err)

	_, found := draftName(t, database, "d3")
	assert.False(t, found)
}

func TestWithinTx_RollsBackOnPanic(t *testing.T) {
	database, uow := openUoW(t)

	assert.Panics(t, func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_ = insertDraft(ctx, tx, "d4", "Panicked")
			panic("boom")
		})
	})

	_, found := draftName(t, database, "d4")
	assert.False(t, found)
}
