package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
)

// SQLiteDraftRepo implements DraftRepo using a SQLite database.
type SQLiteDraftRepo struct {
	db db.DBTX
}

// NewSQLiteDraftRepo creates a new SQLiteDraftRepo.
func NewSQLiteDraftRepo(db db.DBTX) *SQLiteDraftRepo {
	return &SQLiteDraftRepo{db: db}
}

const draftColumns = `id, name, channel_type, source, created_at, updated_at`

func (r *SQLiteDraftRepo) Create(ctx context.Context, d *domain.DraftRecord) error {
	query := `INSERT INTO drafts (` + draftColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.Name,
		string(d.Channel),
		d.Source,
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting draft: %w", err)
	}
	return nil
}

func (r *SQLiteDraftRepo) GetByID(ctx context.Context, id string) (*domain.DraftRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id)
	d, err := scanDraft(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("draft %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning draft: %w", err)
	}
	return d, nil
}

func (r *SQLiteDraftRepo) List(ctx context.Context) ([]*domain.DraftRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+draftColumns+` FROM drafts ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*domain.DraftRecord
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning draft: %w", err)
		}
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating drafts: %w", err)
	}
	return drafts, nil
}

func (r *SQLiteDraftRepo) Update(ctx context.Context, d *domain.DraftRecord) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE drafts SET name = ?, channel_type = ?, source = ?, updated_at = ? WHERE id = ?`,
		d.Name, string(d.Channel), d.Source, d.UpdatedAt.Format(time.RFC3339), d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating draft: %w", err)
	}
	return requireAffected(res, "draft", d.ID)
}

func (r *SQLiteDraftRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return requireAffected(res, "draft", id)
}

func (r *SQLiteDraftRepo) ReplaceGraph(ctx context.Context, draftID string, nodes []domain.SequenceNode, edges []domain.SequenceEdge) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM draft_edges WHERE draft_id = ?`, draftID); err != nil {
		return fmt.Errorf("clearing draft edges: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM draft_nodes WHERE draft_id = ?`, draftID); err != nil {
		return fmt.Errorf("clearing draft nodes: %w", err)
	}

	for i, n := range nodes {
		cfg, err := encodeConfig(n.Config)
		if err != nil {
			return err
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO draft_nodes (id, draft_id, role, command, config, pos_x, pos_y, ordinal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, draftID, string(n.Role), string(n.Command), cfg, n.Position.X, n.Position.Y, i,
		)
		if err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}

	for _, e := range edges {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO draft_edges (id, draft_id, source_id, source_port, target_id, target_port)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, draftID, e.SourceID, string(e.SourcePort), e.TargetID, string(e.TargetPort),
		)
		if err != nil {
			return fmt.Errorf("inserting edge %s: %w", e.ID, err)
		}
	}
	return nil
}

func (r *SQLiteDraftRepo) LoadGraph(ctx context.Context, draftID string) ([]domain.SequenceNode, []domain.SequenceEdge, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, role, command, config, pos_x, pos_y FROM draft_nodes WHERE draft_id = ? ORDER BY ordinal`, draftID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing draft nodes: %w", err)
	}
	var nodes []domain.SequenceNode
	for rows.Next() {
		var n domain.SequenceNode
		var role, command, cfg string
		if err := rows.Scan(&n.ID, &role, &command, &cfg, &n.Position.X, &n.Position.Y); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scanning draft node: %w", err)
		}
		n.Role = domain.NodeRole(role)
		n.Command = domain.Command(command)
		if n.Config, err = decodeConfig(cfg); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("iterating draft nodes: %w", err)
	}
	rows.Close()

	edgeRows, err := r.db.QueryContext(ctx,
		`SELECT id, source_id, source_port, target_id, target_port FROM draft_edges WHERE draft_id = ?`, draftID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing draft edges: %w", err)
	}
	defer edgeRows.Close()
	var edges []domain.SequenceEdge
	for edgeRows.Next() {
		var e domain.SequenceEdge
		var src, dst string
		if err := edgeRows.Scan(&e.ID, &e.SourceID, &src, &e.TargetID, &dst); err != nil {
			return nil, nil, fmt.Errorf("scanning draft edge: %w", err)
		}
		e.SourcePort = domain.Port(src)
		e.TargetPort = domain.Port(dst)
		edges = append(edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating draft edges: %w", err)
	}
	return nodes, edges, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*domain.DraftRecord, error) {
	var d domain.DraftRecord
	var channel, createdAt, updatedAt string
	if err := row.Scan(&d.ID, &d.Name, &channel, &d.Source, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.Channel = domain.ChannelType(channel)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}

func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
