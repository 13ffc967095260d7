package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/todozap/api/internal/services"
)

// todolistCommand is the only inbound message the webhook acts on.
const todolistCommand = "#todolist"

const registerFirstMessage = "Usuário não encontrado. Por favor, cadastre-se primeiro no sistema."

type whatsAppTasksRequest struct {
	RemoteJid string `json:"remoteJid"`
}

// HandleWhatsAppTasks resolves the sender's phone number through the
// candidate chain and returns the task list in a bot-friendly shape.
// An unresolved number is not an error: the bot tells the sender to
// register first.
func (h *handlerImpl) HandleWhatsAppTasks(c *gin.Context) {
	remoteJid := c.Query("remoteJid")
	if remoteJid == "" && c.Request.Method == http.MethodPost {
		var req whatsAppTasksRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			remoteJid = req.RemoteJid
		}
	}
	if remoteJid == "" {
		abort(c, newBadRequestError("remoteJid is required"))
		return
	}

	user, err := h.users.ResolveByWhatsApp(c, remoteJid)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			h.logger.Info().
				Str("remote_jid", remoteJid).
				Msg("whatsapp number not registered")
			c.JSON(http.StatusOK, gin.H{
				"error":      registerFirstMessage,
				"user_email": nil,
				"tasks":      []taskResponse{},
				"remoteJid":  remoteJid,
			})
			return
		}

		h.logger.Error().
			Err(err).
			Msg("failed to resolve whatsapp user")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	tasks, err := h.tasks.ListByUserID(c, services.ListTasksParams{
		UserID: user.ID,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("user_id", user.ID).
			Msg("failed to list tasks for whatsapp user")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	h.logger.Info().
		Str("user_id", user.ID).
		Int("count", len(tasks)).
		Msg("fetched tasks for whatsapp user")
	c.JSON(http.StatusOK, gin.H{
		"user_key":      user.Email,
		"user_email":    user.Email,
		"user_whatsapp": user.WhatsAppNumber,
		"tasks":         newTaskListResponse(tasks),
		"remoteJid":     remoteJid,
	})
}

type webhookMessage struct {
	Conversation        string `json:"conversation"`
	ExtendedTextMessage *struct {
		Text string `json:"text"`
	} `json:"extendedTextMessage"`
}

type webhookKey struct {
	RemoteJid string `json:"remoteJid"`
}

type webhookEventData struct {
	Message *webhookMessage `json:"message"`
	Key     *webhookKey     `json:"key"`
	Body    string          `json:"body"`
	From    string          `json:"from"`
}

// webhookEvent is an inbound Evolution-style messaging event. The
// payload may or may not be wrapped in a "data" envelope.
type webhookEvent struct {
	Data *webhookEventData `json:"data"`
	webhookEventData
}

func (e *webhookEvent) messageData() *webhookEventData {
	if e.Data != nil {
		return e.Data
	}
	return &e.webhookEventData
}

func (d *webhookEventData) messageText() string {
	if d.Message != nil {
		if d.Message.Conversation != "" {
			return d.Message.Conversation
		}
		if d.Message.ExtendedTextMessage != nil {
			return d.Message.ExtendedTextMessage.Text
		}
	}
	return d.Body
}

func (d *webhookEventData) remoteJid() string {
	if d.Key != nil && d.Key.RemoteJid != "" {
		return d.Key.RemoteJid
	}
	return d.From
}

// HandleWhatsAppWebhook acknowledges every inbound event and acts
// only on the #todolist command from a non-group sender.
func (h *handlerImpl) HandleWhatsAppWebhook(c *gin.Context) {
	var event webhookEvent
	err := c.ShouldBindJSON(&event)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to parse webhook event")
		abort(c, newInternalError("failed to process webhook").withDetails(err.Error()))
		return
	}

	data := event.messageData()
	messageText := data.messageText()
	remoteJid := data.remoteJid()

	if messageText == "" || remoteJid == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "no message or sender"})
		return
	}

	if strings.Contains(remoteJid, "@g.us") {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "group message"})
		return
	}

	if strings.ToLower(strings.TrimSpace(messageText)) != todolistCommand {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "not #todolist command"})
		return
	}

	err = h.delegate.ForwardCommand(c, remoteJid, messageText)
	if err != nil {
		// The platform expects an acknowledgement either way.
		h.logger.Error().
			Err(err).
			Str("remote_jid", remoteJid).
			Msg("failed to forward todolist command")
	}

	h.logger.Info().
		Str("remote_jid", remoteJid).
		Msg("processed todolist command")
	c.JSON(http.StatusOK, gin.H{
		"status":    "processed",
		"command":   "todolist",
		"remoteJid": remoteJid,
	})
}

func (h *handlerImpl) HandleWhatsAppStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "WhatsApp webhook ativo",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
