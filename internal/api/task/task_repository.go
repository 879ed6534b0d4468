package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-taskflow-api/app/observability/metrics"
	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

// PGXPool is the subset of pgxpool.Pool the repository uses. Declared here so
// tests can substitute a pgxmock pool.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Repository = (*PostgresRepository)(nil)

// Repository persists task records. List ANDs the role-derived scope with the
// caller's filters; everything else addresses a single row by id.
type Repository interface {
	Create(ctx context.Context, task *types.Task) error
	GetByID(ctx context.Context, taskID uuid.UUID) (*types.Task, error)
	List(ctx context.Context, scope types.TaskScope, filter types.TaskListFilter) ([]*types.Task, error)
	Update(ctx context.Context, task *types.Task) error
	Delete(ctx context.Context, taskID uuid.UUID) error
}

type PostgresRepository struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresRepository(pgpool PGXPool, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

// Columns whitelisted for ORDER BY. Anything else falls back to the default.
var sortColumns = map[string]string{
	"createdAt": "t.created_at",
	"updatedAt": "t.updated_at",
	"dueDate":   "t.due_date",
	"priority":  "t.priority",
	"status":    "t.status",
	"title":     "t.title",
}

const taskSelect = `
    SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status,
           t.assigned_to, t.created_by,
           a.username, a.email, c.username,
           t.created_at, t.updated_at
    FROM tasks t
    JOIN users a ON a.id = t.assigned_to
    JOIN users c ON c.id = t.created_by`

func scanTask(row pgx.Row) (*types.Task, error) {
	var t types.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Status,
		&t.AssignedTo, &t.CreatedBy,
		&t.AssigneeUsername, &t.AssigneeEmail, &t.CreatorUsername,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func observeQuery(ctx context.Context, op string, start time.Time, err error) {
	metrics.InitAppMetrics()
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("operation", op))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

// Create inserts the task and fills in the generated id and timestamps.
func (r *PostgresRepository) Create(ctx context.Context, task *types.Task) (err error) {
	start := time.Now()
	defer func() { observeQuery(ctx, "task.create", start, err) }()

	query := `
        INSERT INTO tasks (title, description, due_date, priority, status, assigned_to, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`
	err = r.pgpool.QueryRow(ctx, query,
		task.Title, task.Description, task.DueDate, task.Priority, task.Status,
		task.AssignedTo, task.CreatedBy,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create task", slog.Any("error", err))
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID loads a single task with assignee/creator identities resolved.
func (r *PostgresRepository) GetByID(ctx context.Context, taskID uuid.UUID) (task *types.Task, err error) {
	start := time.Now()
	defer func() { observeQuery(ctx, "task.get", start, err) }()

	task, err = scanTask(r.pgpool.QueryRow(ctx, taskSelect+" WHERE t.id = $1", taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", taskID, types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to get task", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// List returns every task matching scope AND filter, sorted as requested
// (created_at descending by default). No pagination: the full matching set
// is returned.
func (r *PostgresRepository) List(ctx context.Context, scope types.TaskScope, filter types.TaskListFilter) (tasks []*types.Task, err error) {
	start := time.Now()
	defer func() { observeQuery(ctx, "task.list", start, err) }()

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Role scope first, then caller filters; all ANDed.
	if scope.AssignedTo != nil {
		conds = append(conds, "t.assigned_to = "+arg(*scope.AssignedTo))
	}
	if scope.CreatedByOrAssignedTo != nil {
		p := arg(*scope.CreatedByOrAssignedTo)
		conds = append(conds, fmt.Sprintf("(t.created_by = %s OR t.assigned_to = %s)", p, p))
	}
	if filter.Status != nil {
		conds = append(conds, "t.status = "+arg(*filter.Status))
	}
	if filter.Priority != nil {
		conds = append(conds, "t.priority = "+arg(*filter.Priority))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(t.title ILIKE %s OR t.description ILIKE %s)", p, p))
	}
	if filter.DueDateFrom != nil {
		conds = append(conds, "t.due_date >= "+arg(*filter.DueDateFrom))
	}
	if filter.DueDateTo != nil {
		conds = append(conds, "t.due_date <= "+arg(*filter.DueDateTo))
	}

	query := taskSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	orderCol, ok := sortColumns[filter.SortBy]
	if !ok {
		orderCol = "t.created_at"
		filter.SortOrder = "desc"
	}
	direction := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderCol, direction)

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list tasks", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks = []*types.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan task row", slog.Any("error", err))
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating task rows", slog.Any("error", err))
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// Update persists the full record. Last write wins: there is no concurrency
// token on tasks.
func (r *PostgresRepository) Update(ctx context.Context, task *types.Task) (err error) {
	start := time.Now()
	defer func() { observeQuery(ctx, "task.update", start, err) }()

	query := `
        UPDATE tasks
        SET title = $1, description = $2, due_date = $3, priority = $4,
            status = $5, assigned_to = $6, updated_at = now()
        WHERE id = $7
        RETURNING updated_at`
	err = r.pgpool.QueryRow(ctx, query,
		task.Title, task.Description, task.DueDate, task.Priority,
		task.Status, task.AssignedTo, task.ID,
	).Scan(&task.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("task %s: %w", task.ID, types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to update task", slog.Any("error", err))
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete removes the task; deletion is terminal.
func (r *PostgresRepository) Delete(ctx context.Context, taskID uuid.UUID) (err error) {
	start := time.Now()
	defer func() { observeQuery(ctx, "task.delete", start, err) }()

	tag, err := r.pgpool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", taskID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete task", slog.Any("error", err))
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", taskID, types.ErrNotFound)
	}
	return nil
}
