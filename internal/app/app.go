package app

import (
	"database/sql"
	"fmt"
	"log"

	"eagletask/internal/canvas"
	"eagletask/internal/config"
	"eagletask/internal/handlers"
	"eagletask/internal/repositories"
	"eagletask/internal/routes"
	"eagletask/internal/services"
	"eagletask/internal/todoist"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "eagletask/docs"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	subtaskRepo := repositories.NewSubTaskRepository(db)
	sharedRepo := repositories.NewSharedSubtaskRepository(db)
	invitationRepo := repositories.NewInvitationRepository(db)
	filterRepo := repositories.NewFilterRepository(db)

	// === Clients ===
	canvasClient := canvas.NewClient(cfg.Canvas.BaseURL)
	todoistClient := todoist.NewClient(cfg.Todoist.SyncURL, cfg.Todoist.RestURL)

	// === Services ===
	authService := services.NewAuthService()
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)

	var telegramToken string
	if cfg.Telegram.Enabled {
		telegramToken = cfg.Telegram.BotToken
	}
	telegramService := services.NewTelegramService(telegramToken)

	credCache := services.NewCredentialCache(cfg.Sync.SessionCacheSize)

	userService := services.NewUserService(userRepo, authService, canvasClient, credCache, emailService)
	shareService := services.NewShareService(
		subtaskRepo, sharedRepo, invitationRepo, userRepo,
		credCache, todoistClient, emailService, telegramService,
	)
	taskService := services.NewTaskService(taskRepo, subtaskRepo, sharedRepo, credCache, todoistClient, shareService)
	filterService := services.NewFilterService(filterRepo)
	syncService := services.NewSyncService(
		taskRepo, subtaskRepo, credCache, canvasClient, todoistClient, shareService,
		cfg.Sync.Timezone, cfg.Sync.CreateLimit,
	)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService, syncService)
	filterHandler := handlers.NewFilterHandler(filterService)
	shareHandler := handlers.NewShareHandler(shareService)

	// === Gin ===
	router := gin.Default()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "db unreachable"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	routes.SetupRoutes(
		router,
		authHandler,
		userHandler,
		taskHandler,
		filterHandler,
		shareHandler,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("server listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("failed to start server: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
