package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/serializer"
)

// SQLiteSequenceRepo implements SequenceRepo using a SQLite database.
type SQLiteSequenceRepo struct {
	db db.DBTX
}

// NewSQLiteSequenceRepo creates a new SQLiteSequenceRepo.
func NewSQLiteSequenceRepo(db db.DBTX) *SQLiteSequenceRepo {
	return &SQLiteSequenceRepo{db: db}
}

const sequenceColumns = `id, draft_id, name, channel_type, step_count, saved_at`

// stepPayload is the JSON column holding a step's configuration.
type stepPayload struct {
	Template *domain.TextTemplate `json:"template,omitempty"`
	Delay    *serializer.Delay    `json:"delay,omitempty"`
}

func (r *SQLiteSequenceRepo) Save(ctx context.Context, s *domain.SavedSequence, seq *serializer.OrderedSequence) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sequences WHERE draft_id = ?`, s.DraftID); err != nil {
		return fmt.Errorf("clearing previous save: %w", err)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sequences (`+sequenceColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.DraftID, s.Name, string(s.Channel), s.StepCount, s.SavedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting sequence: %w", err)
	}

	for i, st := range seq.Steps {
		payload, err := json.Marshal(stepPayload{Template: st.Template, Delay: st.Delay})
		if err != nil {
			return fmt.Errorf("encoding step %s: %w", st.Ref, err)
		}
		var posX, posY any
		if st.Position != nil {
			posX, posY = st.Position.X, st.Position.Y
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO sequence_steps (sequence_id, step_index, ref, parent_ref, port, role, command, config, pos_x, pos_y)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, i, st.Ref, st.ParentRef, string(st.Port), string(st.Role), string(st.Command), string(payload), posX, posY,
		)
		if err != nil {
			return fmt.Errorf("inserting step %s: %w", st.Ref, err)
		}
	}
	return nil
}

func (r *SQLiteSequenceRepo) GetByID(ctx context.Context, id string) (*domain.SavedSequence, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sequenceColumns+` FROM sequences WHERE id = ?`, id)
	return scanSequenceRow(row, id)
}

func (r *SQLiteSequenceRepo) GetByDraftID(ctx context.Context, draftID string) (*domain.SavedSequence, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sequenceColumns+` FROM sequences WHERE draft_id = ?`, draftID)
	return scanSequenceRow(row, "for draft "+draftID)
}

func (r *SQLiteSequenceRepo) LoadSteps(ctx context.Context, id string) (*serializer.OrderedSequence, error) {
	header, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT ref, parent_ref, port, role, command, config, pos_x, pos_y
		FROM sequence_steps WHERE sequence_id = ? ORDER BY step_index`, id)
	if err != nil {
		return nil, fmt.Errorf("listing steps: %w", err)
	}
	defer rows.Close()

	seq := &serializer.OrderedSequence{Name: header.Name, Channel: header.Channel}
	for rows.Next() {
		var st serializer.Step
		var port, role, command, payload string
		var posX, posY sql.NullFloat64
		if err := rows.Scan(&st.Ref, &st.ParentRef, &port, &role, &command, &payload, &posX, &posY); err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}
		st.Port = domain.Port(port)
		st.Role = domain.NodeRole(role)
		st.Command = domain.Command(command)
		var p stepPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decoding step %s: %w", st.Ref, err)
		}
		st.Template = p.Template
		st.Delay = p.Delay
		if x, y := nullableFloat(posX), nullableFloat(posY); x != nil && y != nil {
			st.Position = &domain.Position{X: *x, Y: *y}
		}
		seq.Steps = append(seq.Steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating steps: %w", err)
	}
	return seq, nil
}

func (r *SQLiteSequenceRepo) List(ctx context.Context) ([]*domain.SavedSequence, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sequenceColumns+` FROM sequences ORDER BY saved_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("listing sequences: %w", err)
	}
	defer rows.Close()

	var out []*domain.SavedSequence
	for rows.Next() {
		s, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sequence: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sequences: %w", err)
	}
	return out, nil
}

func scanSequenceRow(row *sql.Row, what string) (*domain.SavedSequence, error) {
	s, err := scanSequence(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sequence %s: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning sequence: %w", err)
	}
	return s, nil
}

func scanSequence(row rowScanner) (*domain.SavedSequence, error) {
	var s domain.SavedSequence
	var channel, savedAt string
	if err := row.Scan(&s.ID, &s.DraftID, &s.Name, &channel, &s.StepCount, &savedAt); err != nil {
		return nil, err
	}
	s.Channel = domain.ChannelType(channel)
	s.SavedAt = parseTime(savedAt)
	return &s, nil
}
