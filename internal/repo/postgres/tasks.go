package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rajeshk/taskhub/internal/domain/task"
	"github.com/rajeshk/taskhub/internal/observability"
)

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const taskColumns = `id, owner_id, name, status, start_time, end_time, created_at, updated_at`

func scanTask(row pgx.Row) (task.Task, error) {
	var t task.Task

	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Name,
		&t.Status,
		&t.StartTime,
		&t.EndTime,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	return t, err
}

func (r *TasksRepo) Create(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error) {
	now := time.Now().UTC()

	status := req.Status

	if status == "" {
		status = task.StatusPending
	}

	t := task.Task{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      req.Name,
		Status:    status,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.observe("tasks.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tasks(id, owner_id, name, status, start_time, end_time, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			t.ID, t.OwnerID, t.Name, t.Status, t.StartTime, t.EndTime, t.CreatedAt, t.UpdatedAt)
		return err
	})

	if err != nil {
		return task.Task{}, err
	}

	// Return the full created record so the caller can render it
	// without a second round trip.
	return t, nil
}

func (r *TasksRepo) ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	return r.queryTasks(ctx, "tasks.list",
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE owner_id = $1
		 ORDER BY start_time DESC NULLS LAST, created_at DESC`,
		ownerID)
}

func (r *TasksRepo) SearchByOwner(ctx context.Context, ownerID, query string) ([]task.Task, error) {
	pattern := "%" + escapeLike(query) + "%"

	return r.queryTasks(ctx, "tasks.search",
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE owner_id = $1 AND name ILIKE $2
		 ORDER BY start_time DESC NULLS LAST, created_at DESC`,
		ownerID, pattern)
}

func (r *TasksRepo) queryTasks(ctx context.Context, op, query string, args ...interface{}) ([]task.Task, error) {
	output := make([]task.Task, 0)

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)

			if err != nil {
				return err
			}

			output = append(output, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

// Update applies a partial update built from the recognized field
// allow-list. Values travel as positional parameters only; the SQL text
// never contains caller input.
func (r *TasksRepo) Update(ctx context.Context, ownerID, id string, req task.UpdateTaskRequest) (task.Task, error) {
	fields := req.Fields()

	if len(fields) == 0 {
		return task.Task{}, task.ErrNoFields
	}

	var sets []string
	var args []interface{}

	argsPosition := 1

	for _, f := range fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Column, argsPosition))
		args = append(args, f.Value)
		argsPosition++
	}

	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $%d AND owner_id = $%d RETURNING `+taskColumns,
		strings.Join(sets, ", "), argsPosition, argsPosition+1,
	)

	args = append(args, id, ownerID)

	var t task.Task

	err := r.observe("tasks.update", func() error {
		var err error
		t, err = scanTask(r.pool.QueryRow(ctx, query, args...))
		return err
	})

	if err != nil {
		// missing row and row owned by someone else are the same
		// outcome from the caller's side
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, err
	}

	return t, nil
}

// Delete is idempotent: removing an id that does not exist (or is not
// owned by the caller) is a successful no-op.
func (r *TasksRepo) Delete(ctx context.Context, ownerID, id string) error {
	return r.observe("tasks.delete", func() error {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM tasks WHERE id = $1 AND owner_id = $2`,
			id, ownerID)
		return err
	})
}

// escapeLike neutralizes LIKE wildcards in user search input so a
// query string matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
