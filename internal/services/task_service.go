package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/todozap/api/internal/models"
)

type taskServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewTaskService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) TaskService {
	return &taskServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

func (s *taskServiceImpl) ListByUserID(ctx context.Context, params ListTasksParams) ([]*models.Task, error) {
	query := `
SELECT id,
       title,
       description,
       completed,
       priority,
       tags,
       due_date,
       created_at,
       updated_at
FROM tasks
WHERE user_id = $1
`
	if params.PendingOnly {
		query += "  AND completed = false\n"
	}
	query += "ORDER BY created_at DESC\n"

	args := []any{params.UserID}
	if params.Limit > 0 {
		query += "LIMIT $2\n"
		args = append(args, params.Limit)
	}

	rows, err := s.pgPool.Query(ctx, query, args...)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", params.UserID).
			Msg("failed to select tasks by user id")
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task := &models.Task{UserID: params.UserID}
		err = rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.Completed,
			&task.Priority,
			&task.Tags,
			&task.DueDate,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}

	s.logger.Debug().
		Int("count", len(tasks)).
		Str("user_id", params.UserID).
		Bool("pending_only", params.PendingOnly).
		Msg("selected tasks by user id")
	return tasks, nil
}

// newTaskFromParams validates the create params and materializes a
// task with the documented defaults applied.
func newTaskFromParams(params CreateTaskParams) (*models.Task, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	priority := params.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	now := time.Now()
	return &models.Task{
		UserID:      params.UserID,
		Title:       title,
		Description: params.Description,
		Completed:   false,
		Priority:    priority,
		Tags:        tags,
		DueDate:     params.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	task, err := newTaskFromParams(params)
	if err != nil {
		return nil, err
	}

	taskUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate task uuid")
		return nil, err
	}
	task.ID = taskUUID.String()

	const insertTaskQuery = `
INSERT INTO tasks (id,
                   user_id,
                   title,
                   description,
                   completed,
                   priority,
                   tags,
                   due_date,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	_, err = s.pgPool.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Completed,
		task.Priority,
		task.Tags,
		task.DueDate,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", task.UserID).
		Msg("created task")
	return task, nil
}

// buildTaskPatch validates the sparse patch and builds the UPDATE
// statement for exactly the fields present in params. updated_at is
// always refreshed, even for an otherwise empty patch.
func buildTaskPatch(params UpdateTaskParams, now time.Time) (string, []any, error) {
	setClauses := make([]string, 0, 7)
	args := make([]any, 0, 8)

	appendSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			return "", nil, ErrEmptyTitle
		}
		appendSet("title", title)
	}
	if params.Description != nil {
		appendSet("description", *params.Description)
	}
	if params.Completed != nil {
		appendSet("completed", *params.Completed)
	}
	if params.Priority != nil {
		if !models.ValidPriority(*params.Priority) {
			return "", nil, ErrInvalidPriority
		}
		appendSet("priority", *params.Priority)
	}
	if params.Tags != nil {
		tags := *params.Tags
		if tags == nil {
			tags = []string{}
		}
		appendSet("tags", tags)
	}
	if params.DueDateSet {
		// An explicit null clears the date.
		appendSet("due_date", params.DueDate)
	}

	appendSet("updated_at", now)
	args = append(args, params.ID)

	query := fmt.Sprintf(`
UPDATE tasks
SET %s
WHERE id = $%d
RETURNING id,
          user_id,
          title,
          description,
          completed,
          priority,
          tags,
          due_date,
          created_at,
          updated_at
`, strings.Join(setClauses, ",\n    "), len(args))
	return query, args, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error) {
	query, args, err := buildTaskPatch(params, time.Now())
	if err != nil {
		return nil, err
	}

	task := new(models.Task)
	err = s.pgPool.QueryRow(ctx, query, args...).Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&task.Priority,
		&task.Tags,
		&task.DueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("task_id", params.ID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", params.ID).
			Msg("failed to update task")
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", task.UserID).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, taskID string) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
`
	tag, err := s.pgPool.Exec(ctx, deleteTaskQuery, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		s.logger.Error().
			Str("task_id", taskID).
			Msg("task not found")
		return ErrTaskNotFound
	}

	s.logger.Info().
		Str("task_id", taskID).
		Msg("deleted task")
	return nil
}
