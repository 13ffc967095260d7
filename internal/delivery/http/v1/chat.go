package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/todozap/api/internal/gateway"
	"github.com/todozap/api/internal/services"
)

// chatContextLimit bounds how many recent tasks are sent to the
// upstream assistant as conversation context.
const chatContextLimit = 20

type chatRequest struct {
	Message string `json:"message"`
	UserKey string `json:"user_key"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	UserEmail string `json:"user_email"`
}

func (h *handlerImpl) HandleChat(c *gin.Context) {
	var req chatRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	if req.Message == "" || req.UserKey == "" {
		abort(c, newBadRequestError("message and user_key are required"))
		return
	}

	user, err := h.users.GetOrCreateByEmail(c, req.UserKey)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get or create user")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	tasks, err := h.tasks.ListByUserID(c, services.ListTasksParams{
		UserID: user.ID,
		Limit:  chatContextLimit,
	})
	if err != nil {
		// The chat still works without task context.
		h.logger.Warn().
			Err(err).
			Str("user_id", user.ID).
			Msg("failed to load task context for chat")
		tasks = nil
	}

	reply, err := h.delegate.SendChat(c, gateway.ChatParams{
		Message:      req.Message,
		UserKey:      req.UserKey,
		UserEmail:    user.Email,
		UserWhatsApp: user.WhatsAppNumber,
		Tasks:        tasks,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to send chat message")
		if errors.Is(err, gateway.ErrNotConfigured) {
			abort(c, newInternalError("chat webhook not configured"))
			return
		}
		abort(c, newInternalError("failed to process message").withDetails(err.Error()))
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Reply:     reply.ReplyHTML,
		UserEmail: reply.UserEmail,
	})
}

type generateDescriptionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	UserKey     string `json:"user_key"`
}

func (h *handlerImpl) HandleGenerateDescription(c *gin.Context) {
	var req generateDescriptionRequest
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

	description, err := h.delegate.GenerateDescription(c, gateway.DescriptionParams{
		Title:       req.Title,
		Description: req.Description,
		UserKey:     req.UserKey,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to generate description")
		if errors.Is(err, gateway.ErrNotConfigured) {
			abort(c, newInternalError("chat webhook not configured"))
			return
		}

		// Forward the upstream status when the webhook answered
		// with a non-2xx.
		status := http.StatusInternalServerError
		var upstreamErr *gateway.UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.StatusCode != 0 {
			status = upstreamErr.StatusCode
		}
		abort(c, newAPIError(status, "failed to generate description").withDetails(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"description": description})
}
