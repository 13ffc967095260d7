package services

import (
	"context"
	"errors"
	"time"

	"github.com/todozap/api/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrEmptyTitle        = errors.New("title is required")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrMissingIdentifier = errors.New("identifier is required")
)

type UserService interface {
	// GetOrCreateByEmail looks up a user by lower-cased email and
	// inserts a fresh row when none exists. A concurrent insert of
	// the same email is resolved by re-fetching the winning row, so
	// both callers observe the same user.
	GetOrCreateByEmail(ctx context.Context, email string) (*models.User, error)

	// ResolveByIdentifier looks up a user by email (identifier
	// contains "@") or by the digit-only form of a phone number.
	// It never creates a user and returns ErrUserNotFound on a miss.
	ResolveByIdentifier(ctx context.Context, identifier string) (*models.User, error)

	// ResolveByWhatsApp extracts the phone number from a WhatsApp
	// JID and tries the full candidate chain against stored
	// whatsapp_number values. Returns ErrUserNotFound when no
	// candidate matches.
	ResolveByWhatsApp(ctx context.Context, remoteJid string) (*models.User, error)

	// SetWhatsAppNumber get-or-creates the user by email and
	// overwrites whatsapp_number with the digit-only form of number.
	SetWhatsAppNumber(ctx context.Context, email, number string) (*models.User, error)
}

type TaskService interface {
	// ListByUserID returns the user's tasks ordered by created_at
	// descending. The ordering is a fixed contract.
	ListByUserID(ctx context.Context, params ListTasksParams) ([]*models.Task, error)

	// CreateTask validates the title, applies defaults and returns
	// the fully materialized task. Returns ErrEmptyTitle when the
	// title is empty after trimming and ErrInvalidPriority for a
	// priority outside the enum.
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)

	// UpdateTask applies only the fields present in params (sparse
	// patch) and always refreshes updated_at. Returns
	// ErrTaskNotFound when no task has the given id.
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error)

	// DeleteTask hard-deletes a task. Returns ErrTaskNotFound when
	// no task has the given id.
	DeleteTask(ctx context.Context, taskID string) error
}

type ListTasksParams struct {
	UserID      string
	PendingOnly bool
	// Limit of 0 means no limit.
	Limit uint32
}

type CreateTaskParams struct {
	UserID      string
	Title       string
	Description string
	Priority    string
	Tags        []string
	DueDate     *time.Time
}

// UpdateTaskParams carries a sparse patch: a nil pointer leaves the
// field untouched. DueDate is applied only when DueDateSet is true,
// so an explicit null clears the date while an absent field keeps it.
type UpdateTaskParams struct {
	ID          string
	Title       *string
	Description *string
	Completed   *bool
	Priority    *string
	Tags        *[]string
	DueDate     *time.Time
	DueDateSet  bool
}
