package v1_test

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	v1 "github.com/todozap/api/internal/delivery/http/v1"
	"github.com/todozap/api/internal/gateway"
	"github.com/todozap/api/internal/models"
	"github.com/todozap/api/internal/services"
)

var errFakeNotImplemented = errors.New("fake method not implemented")

type fakeUserService struct {
	getOrCreateByEmailFn  func(ctx context.Context, email string) (*models.User, error)
	resolveByIdentifierFn func(ctx context.Context, identifier string) (*models.User, error)
	resolveByWhatsAppFn   func(ctx context.Context, remoteJid string) (*models.User, error)
	setWhatsAppNumberFn   func(ctx context.Context, email, number string) (*models.User, error)
}

func (f *fakeUserService) GetOrCreateByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getOrCreateByEmailFn == nil {
		return nil, errFakeNotImplemented
	}
	return f.getOrCreateByEmailFn(ctx, email)
}

func (f *fakeUserService) ResolveByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if f.resolveByIdentifierFn == nil {
		return nil, errFakeNotImplemented
	}
	return f.resolveByIdentifierFn(ctx, identifier)
}

func (f *fakeUserService) ResolveByWhatsApp(ctx context.Context, remoteJid string) (*models.User, error) {
	if f.resolveByWhatsAppFn == nil {
		return nil, errFakeNotImplemented
	}
	return f.resolveByWhatsAppFn(ctx, remoteJid)
}

func (f *fakeUserService) SetWhatsAppNumber(ctx context.Context, email, number string) (*models.User, error) {
	if f.setWhatsAppNumberFn == nil {
		return nil, errFakeNotImplemented
	}
	return f.setWhatsAppNumberFn(ctx, email, number)
}

type fakeTaskService struct {
	listByUserIDFn func(ctx context.Context, params services.ListTasksParams) ([]*models.Task, error)
	createTaskFn   func(ctx context.Context, params services.CreateTaskParams) (*models.Task, error)
	updateTaskFn   func(ctx context.Context, params services.UpdateTaskParams) (*models.Task, error)
	deleteTaskFn   func(ctx context.Context, taskID string) error
}

func (f *fakeTaskService) ListByUserID(ctx context.Context, params services.ListTasksParams) ([]*models.Task, error) {
	if f.listByUserIDFn == nil {
		return nil, errFakeNotImplemented
	}
	return f.listByUserIDFn(ctx, params)
}

func (f *fakeTaskService) CreateTask(ctx context.Context, params services.CreateTaskParams) (*models.Task, error) {
	if f.createTaskFn == nil {
		return nil, errFakeNotImplemented
	}
	return f.createTaskFn(ctx, params)
}

func (f *fakeTaskService) UpdateTask(ctx context.Context, params services.UpdateTaskParams) (*models.Task, error) {
	if f.updateTaskFn == nil {
		return nil, errFakeNotImplemented
	}
	return f.updateTaskFn(ctx, params)
}

func (f *fakeTaskService) DeleteTask(ctx context.Context, taskID string) error {
	if f.deleteTaskFn == nil {
		return errFakeNotImplemented
	}
	return f.deleteTaskFn(ctx, taskID)
}

type fakeDelegate struct {
	sendChatFn            func(ctx context.Context, params gateway.ChatParams) (*gateway.ChatReply, error)
	generateDescriptionFn func(ctx context.Context, params gateway.DescriptionParams) (string, error)
	forwardCommandFn      func(ctx context.Context, remoteJid, message string) error
}

func (f *fakeDelegate) SendChat(ctx context.Context, params gateway.ChatParams) (*gateway.ChatReply, error) {
	if f.sendChatFn == nil {
		return nil, errFakeNotImplemented
	}
	return f.sendChatFn(ctx, params)
}

func (f *fakeDelegate) GenerateDescription(ctx context.Context, params gateway.DescriptionParams) (string, error) {
	if f.generateDescriptionFn == nil {
		return "", errFakeNotImplemented
	}
	return f.generateDescriptionFn(ctx, params)
}

func (f *fakeDelegate) ForwardCommand(ctx context.Context, remoteJid, message string) error {
	if f.forwardCommandFn == nil {
		return errFakeNotImplemented
	}
	return f.forwardCommandFn(ctx, remoteJid, message)
}

func newTestRouter(users services.UserService, tasks services.TaskService, delegate gateway.Delegate) *gin.Engine {
	gin.SetMode(gin.TestMode)

	handler := v1.New(zerolog.Nop(), users, tasks, delegate)

	router := gin.New()
	api := router.Group("/api")

	api.GET("/tasks", handler.HandleListTasks)
	api.POST("/tasks", handler.HandleCreateTask)
	api.PUT("/tasks", handler.HandleUpdateTask)
	api.DELETE("/tasks", handler.HandleDeleteTask)

	api.GET("/user", handler.HandleGetUser)
	api.POST("/user", handler.HandleSetWhatsAppNumber)
	api.GET("/user-id", handler.HandleResolveUser)

	api.POST("/chat", handler.HandleChat)
	api.POST("/generate-description", handler.HandleGenerateDescription)

	api.GET("/whatsapp/tasks", handler.HandleWhatsAppTasks)
	api.POST("/whatsapp/tasks", handler.HandleWhatsAppTasks)
	api.GET("/whatsapp/webhook", handler.HandleWhatsAppStatus)
	api.POST("/whatsapp/webhook", handler.HandleWhatsAppWebhook)

	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func userFixture() *models.User {
	number := "42991234567"
	name := "Alice"
	return &models.User{
		ID:             "0190f0a0-0000-7000-8000-000000000001",
		Email:          "a@b.com",
		WhatsAppNumber: &number,
		DisplayName:    &name,
	}
}
