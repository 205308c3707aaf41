package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type InstancePGStore struct {
	pool pgBeginner
}

func NewInstancePGStore(pool pgBeginner) *InstancePGStore {
	return &InstancePGStore{pool: pool}
}

const instanceColumns = `
	  id::text,
	  team_id,
	  matter_id,
	  practice_area,
	  task_id,
	  status,
	  field_values,
	  created_by,
	  created_at,
	  updated_at`

// inTeam runs fn in a transaction scoped to teamID for row-level security.
func inTeam(ctx context.Context, pool pgBeginner, teamID string, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_team', $1, true);`, teamID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func encodeValues(v types.FieldValues) (string, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: values are not JSON-encodable: %v", ruleerr.ErrInvalidInput, err)
	}
	return string(b), nil
}

// decodeValues keeps numbers as json.Number so decimal fields lose no precision.
func decodeValues(raw []byte) (types.FieldValues, error) {
	out := types.FieldValues{}
	if len(raw) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (types.TaskInstance, error) {
	var inst types.TaskInstance
	var status string
	var raw []byte
	if err := row.Scan(&inst.ID, &inst.TeamID, &inst.MatterID, &inst.PracticeArea, &inst.TaskID, &status, &raw, &inst.CreatedBy, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.TaskInstance{}, fmt.Errorf("%w: task instance", ruleerr.ErrNotFound)
		}
		return types.TaskInstance{}, err
	}
	values, err := decodeValues(raw)
	if err != nil {
		return types.TaskInstance{}, err
	}
	inst.Status = types.Status(status)
	inst.Values = values
	return inst, nil
}

func validInstanceID(id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return fmt.Errorf("%w: task instance %q", ruleerr.ErrNotFound, id)
	}
	return nil
}

func (s *InstancePGStore) Create(ctx context.Context, inst types.TaskInstance) (types.TaskInstance, error) {
	values, err := encodeValues(inst.Values)
	if err != nil {
		return types.TaskInstance{}, err
	}
	var out types.TaskInstance
	err = inTeam(ctx, s.pool, inst.TeamID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
	INSERT INTO task_instances (id, team_id, matter_id, practice_area, task_id, status, field_values, created_by, created_at, updated_at)
	VALUES ($1::uuid, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10)
	RETURNING`+instanceColumns,
			inst.ID, inst.TeamID, inst.MatterID, inst.PracticeArea, inst.TaskID, string(inst.Status), values, inst.CreatedBy, inst.CreatedAt, inst.UpdatedAt)
		var err error
		out, err = scanInstance(row)
		return err
	})
	return out, err
}

func (s *InstancePGStore) Get(ctx context.Context, teamID string, id string) (types.TaskInstance, error) {
	if err := validInstanceID(id); err != nil {
		return types.TaskInstance{}, err
	}
	var out types.TaskInstance
	err := inTeam(ctx, s.pool, teamID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
	SELECT`+instanceColumns+`
	FROM task_instances
	WHERE team_id = $1 AND id = $2::uuid
	`, teamID, id)
		var err error
		out, err = scanInstance(row)
		return err
	})
	return out, err
}

func (s *InstancePGStore) ListForMatter(ctx context.Context, teamID string, matterID string) ([]types.TaskInstance, error) {
	out := make([]types.TaskInstance, 0)
	err := inTeam(ctx, s.pool, teamID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
	SELECT`+instanceColumns+`
	FROM task_instances
	WHERE team_id = $1 AND matter_id = $2
	ORDER BY created_at ASC, id ASC
	`, teamID, matterID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			inst, err := scanInstance(rows)
			if err != nil {
				return err
			}
			out = append(out, inst)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *InstancePGStore) Update(ctx context.Context, inst types.TaskInstance) (types.TaskInstance, error) {
	if err := validInstanceID(inst.ID); err != nil {
		return types.TaskInstance{}, err
	}
	values, err := encodeValues(inst.Values)
	if err != nil {
		return types.TaskInstance{}, err
	}
	if inst.UpdatedAt.IsZero() {
		inst.UpdatedAt = time.Now().UTC()
	}
	var out types.TaskInstance
	err = inTeam(ctx, s.pool, inst.TeamID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
	UPDATE task_instances
	SET status = $3, field_values = $4::jsonb, updated_at = $5
	WHERE team_id = $1 AND id = $2::uuid
	RETURNING`+instanceColumns,
			inst.TeamID, inst.ID, string(inst.Status), values, inst.UpdatedAt)
		var err error
		out, err = scanInstance(row)
		return err
	})
	return out, err
}

func (s *InstancePGStore) Delete(ctx context.Context, teamID string, id string) error {
	if err := validInstanceID(id); err != nil {
		return err
	}
	return inTeam(ctx, s.pool, teamID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM task_instances WHERE team_id = $1 AND id = $2::uuid`, teamID, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: task instance %q", ruleerr.ErrNotFound, id)
		}
		return nil
	})
}
