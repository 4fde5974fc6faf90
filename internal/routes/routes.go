package routes

import (
	"github.com/gin-gonic/gin"

	"eagletask/internal/handlers"
	"eagletask/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	taskHandler *handlers.TaskHandler,
	filterHandler *handlers.FilterHandler,
	shareHandler *handlers.ShareHandler,
) *gin.Engine {

	// ---- public
	r.POST("/login", authHandler.Login)
	r.POST("/register", authHandler.Register)

	// ---- protected
	r.Use(middleware.AuthMiddleware())

	r.POST("/logout", authHandler.Logout)

	users := r.Group("/users")
	{
		users.GET("/me", userHandler.Me)
		users.POST("/telegram", userHandler.LinkTelegram)
		users.POST("/tokens", userHandler.RotateTokens)
	}

	tasks := r.Group("/tasks")
	{
		tasks.GET("", taskHandler.List)
		tasks.POST("/update", taskHandler.Update)
		tasks.POST("/add_task", taskHandler.AddTask)
		tasks.POST("/add_subtask", taskHandler.AddSubtask)
		tasks.POST("/get_subtasks", taskHandler.GetSubtasks)
		tasks.PATCH("/:id/note", taskHandler.UpdateNote)
		tasks.POST("/:id/close", taskHandler.Close)
		tasks.POST("/:id/open", taskHandler.Open)
		tasks.POST("/:id/toggle", taskHandler.Toggle)
	}

	filters := r.Group("/filters")
	{
		filters.GET("", filterHandler.List)
		filters.POST("/new", filterHandler.Create)
		filters.DELETE("", filterHandler.Delete)
	}

	shares := r.Group("/shares")
	{
		shares.POST("/invite", shareHandler.Invite)
		shares.POST("/respond", shareHandler.Respond)
		shares.GET("/invitations", shareHandler.ListInvitations)
	}

	return r
}
