package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/todozap/api/internal/config"
	v1 "github.com/todozap/api/internal/delivery/http/v1"
	"github.com/todozap/api/internal/gateway"
	"github.com/todozap/api/internal/services"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	n8nCfg := config.Global().N8N

	delegate := gateway.NewClient(
		globalLogger,
		n8nCfg.ChatURL(),
		n8nCfg.EvolutionWebhookURL,
		n8nCfg.APIKey,
		n8nCfg.Timeout,
	)
	handler := v1.New(
		globalLogger,
		services.NewUserService(globalLogger, globalPostgresPool),
		services.NewTaskService(globalLogger, globalPostgresPool),
		delegate,
	)

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

	whatsApp := api.Group("/whatsapp")
	whatsApp.GET("/tasks", handler.HandleWhatsAppTasks)
	whatsApp.POST("/tasks", handler.HandleWhatsAppTasks)
	whatsApp.GET("/webhook", handler.HandleWhatsAppStatus)
	whatsApp.POST("/webhook", v1.RateLimiter(rate.Limit(5), 10), handler.HandleWhatsAppWebhook)
}
