package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/todozap/api/internal/models"
	"github.com/todozap/api/internal/services"
)

type taskResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Priority    string    `json:"priority"`
	Tags        []string  `json:"tags"`
	DueDate     *string   `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newTaskResponse(task *models.Task) taskResponse {
	resp := taskResponse{
		ID:          task.ID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Priority:    task.Priority,
		Tags:        task.Tags,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if task.DueDate != nil {
		formatted := task.DueDate.Format(time.DateOnly)
		resp.DueDate = &formatted
	}
	return resp
}

func newTaskListResponse(tasks []*models.Task) []taskResponse {
	response := make([]taskResponse, len(tasks))
	for i, task := range tasks {
		response[i] = newTaskResponse(task)
	}
	return response
}

// resolveUserID turns a user_key (email) into the internal user id,
// creating the user on first sight. A user_id given directly wins.
func (h *handlerImpl) resolveUserID(c *gin.Context, userID, userKey string) (string, bool) {
	if userID != "" {
		return userID, true
	}
	if userKey == "" {
		abort(c, newBadRequestError("user_key or user_id is required"))
		return "", false
	}

	user, err := h.users.GetOrCreateByEmail(c, userKey)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get or create user")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return "", false
	}
	return user.ID, true
}

func (h *handlerImpl) HandleListTasks(c *gin.Context) {
	userID, ok := h.resolveUserID(c, c.Query("user_id"), c.Query("user_key"))
	if !ok {
		return
	}

	tasks, err := h.tasks.ListByUserID(c, services.ListTasksParams{
		UserID:      userID,
		PendingOnly: c.Query("pending_only") == "true",
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to list tasks")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	h.logger.Info().
		Int("count", len(tasks)).
		Msg("fetched tasks")
	c.JSON(http.StatusOK, newTaskListResponse(tasks))
}

type createTaskRequest struct {
	UserKey     string   `json:"user_key"`
	UserID      string   `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	DueDate     *string  `json:"due_date"`
}

func parseDueDate(raw string) (*time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid due_date: %q", raw)
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	if req.Title == "" {
		abort(c, newBadRequestError("title is required"))
		return
	}

	userID, ok := h.resolveUserID(c, req.UserID, req.UserKey)
	if !ok {
		return
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		dueDate, err = parseDueDate(*req.DueDate)
		if err != nil {
			abort(c, newBadRequestError(err.Error()))
			return
		}
	}

	task, err := h.tasks.CreateTask(c, services.CreateTaskParams{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Tags:        req.Tags,
		DueDate:     dueDate,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to create task")
		switch {
		case errors.Is(err, services.ErrEmptyTitle):
			abort(c, newBadRequestError(services.ErrEmptyTitle.Error()))
		case errors.Is(err, services.ErrInvalidPriority):
			abort(c, newBadRequestError(services.ErrInvalidPriority.Error()))
		default:
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	c.JSON(http.StatusCreated, newTaskResponse(task))
}

// updateTaskRequest is a sparse patch: absent fields stay untouched.
// DueDate is kept raw so an explicit null (clear the date) can be
// told apart from an absent field.
type updateTaskRequest struct {
	ID          string          `json:"id"`
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Completed   *bool           `json:"completed"`
	Priority    *string         `json:"priority"`
	Tags        *[]string       `json:"tags"`
	DueDate     json.RawMessage `json:"due_date"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	if req.ID == "" {
		abort(c, newBadRequestError("id is required"))
		return
	}

	params := services.UpdateTaskParams{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    req.Priority,
		Tags:        req.Tags,
	}

	if len(req.DueDate) > 0 {
		params.DueDateSet = true
		if string(req.DueDate) != "null" {
			var raw string
			if err = json.Unmarshal(req.DueDate, &raw); err != nil {
				abort(c, newBadRequestError("invalid due_date"))
				return
			}
			if raw != "" {
				params.DueDate, err = parseDueDate(raw)
				if err != nil {
					abort(c, newBadRequestError(err.Error()))
					return
				}
			}
		}
	}

	task, err := h.tasks.UpdateTask(c, params)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("task_id", req.ID).
			Msg("failed to update task")
		switch {
		case errors.Is(err, services.ErrTaskNotFound):
			abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
		case errors.Is(err, services.ErrEmptyTitle):
			abort(c, newBadRequestError(services.ErrEmptyTitle.Error()))
		case errors.Is(err, services.ErrInvalidPriority):
			abort(c, newBadRequestError(services.ErrInvalidPriority.Error()))
		default:
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	taskID := c.Query("id")
	if taskID == "" {
		abort(c, newBadRequestError("id is required"))
		return
	}

	err := h.tasks.DeleteTask(c, taskID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		if errors.Is(err, services.ErrTaskNotFound) {
			abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
			return
		}
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
