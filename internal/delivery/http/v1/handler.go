package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/todozap/api/internal/gateway"
	"github.com/todozap/api/internal/services"
)

type Handler interface {
	HandleListTasks(c *gin.Context)
	HandleCreateTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)

	HandleGetUser(c *gin.Context)
	HandleSetWhatsAppNumber(c *gin.Context)
	HandleResolveUser(c *gin.Context)

	HandleChat(c *gin.Context)
	HandleGenerateDescription(c *gin.Context)

	HandleWhatsAppTasks(c *gin.Context)
	HandleWhatsAppWebhook(c *gin.Context)
	HandleWhatsAppStatus(c *gin.Context)
}

type handlerImpl struct {
	logger   zerolog.Logger
	users    services.UserService
	tasks    services.TaskService
	delegate gateway.Delegate
}

func New(
	logger zerolog.Logger,
	userService services.UserService,
	taskService services.TaskService,
	delegate gateway.Delegate,
) Handler {
	return &handlerImpl{
		logger:   logger,
		users:    userService,
		tasks:    taskService,
		delegate: delegate,
	}
}
