package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/todozap/api/internal/models"
	"github.com/todozap/api/internal/services"
)

type userResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	WhatsAppNumber *string   `json:"whatsapp_number"`
	DisplayName    *string   `json:"display_name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:             user.ID,
		Email:          user.Email,
		WhatsAppNumber: user.WhatsAppNumber,
		DisplayName:    user.DisplayName,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}

func (h *handlerImpl) HandleGetUser(c *gin.Context) {
	userKey := c.Query("user_key")
	if userKey == "" {
		abort(c, newBadRequestError("user_key is required"))
		return
	}

	user, err := h.users.GetOrCreateByEmail(c, userKey)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get or create user")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

type setWhatsAppNumberRequest struct {
	UserKey        string `json:"user_key"`
	WhatsAppNumber string `json:"whatsapp_number"`
}

func (h *handlerImpl) HandleSetWhatsAppNumber(c *gin.Context) {
	var req setWhatsAppNumberRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	if req.UserKey == "" || req.WhatsAppNumber == "" {
		abort(c, newBadRequestError("user_key and whatsapp_number are required"))
		return
	}

	user, err := h.users.SetWhatsAppNumber(c, req.UserKey, req.WhatsAppNumber)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to set whatsapp number")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusCreated, newUserResponse(user))
}

type resolveUserResponse struct {
	UserID         string  `json:"user_id"`
	Email          string  `json:"email"`
	WhatsAppNumber *string `json:"whatsapp_number"`
	DisplayName    *string `json:"display_name"`
}

func (h *handlerImpl) HandleResolveUser(c *gin.Context) {
	identifier := c.Query("identifier")
	if identifier == "" {
		abort(c, newBadRequestError("identifier is required (email or whatsapp)"))
		return
	}

	user, err := h.users.ResolveByIdentifier(c, identifier)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			h.logger.Info().
				Str("identifier", identifier).
				Msg("user not found")
			abort(c, newNotFoundError(services.ErrUserNotFound.Error()).withDetails(identifier))
			return
		}

		h.logger.Error().
			Err(err).
			Msg("failed to resolve user")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, resolveUserResponse{
		UserID:         user.ID,
		Email:          user.Email,
		WhatsAppNumber: user.WhatsAppNumber,
		DisplayName:    user.DisplayName,
	})
}
