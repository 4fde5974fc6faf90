package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"eagletask/internal/models"
	"eagletask/internal/services"
)

type TaskHandler struct {
	tasks services.TaskService
	sync  services.SyncService
}

func NewTaskHandler(tasks services.TaskService, syncService services.SyncService) *TaskHandler {
	return &TaskHandler{tasks: tasks, sync: syncService}
}

// maps the service error taxonomy onto HTTP statuses
func respondServiceError(c *gin.Context, tag string, err error) {
	switch {
	case errors.Is(err, services.ErrCredentialExpired):
		log.Printf("%s[deny] %v", tag, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "credentials expired, please log in again"})
	case errors.Is(err, services.ErrRemoteUnavailable):
		log.Printf("%s[err] %v", tag, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "remote service unavailable, try again later"})
	case errors.Is(err, services.ErrNotFound):
		log.Printf("%s[404] %v", tag, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrSharedSubtaskToggleOnly):
		log.Printf("%s[deny] %v", tag, err)
		c.JSON(http.StatusConflict, gin.H{"error": "shared subtasks change status through toggle"})
	default:
		log.Printf("%s[err] %v", tag, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// @Summary      Run a full sync
// @Description  Harvests Canvas assignments, mirrors them to Todoist in one batch and reconciles completion status. Idempotent; safe to call repeatedly.
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /tasks/update [post]
func (h *TaskHandler) Update(c *gin.Context) {
	userID := currentUser(c)
	log.Printf("[task][sync] call by userID=%d", userID)

	if err := h.sync.RunFullSync(c.Request.Context(), userID); err != nil {
		respondServiceError(c, "[task][sync]", err)
		return
	}
	log.Printf("[task][sync][ok] userID=%d", userID)
	c.JSON(http.StatusOK, gin.H{"message": "sync complete"})
}

// @Summary      List tasks
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status (incomplete|completed)"
// @Success      200     {array}   models.Task
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	userID := currentUser(c)

	filter := models.TaskFilter{Owner: &userID}
	if v, ok := c.GetQuery("status"); ok {
		st := models.TaskStatus(v)
		filter.Status = &st
	}

	tasks, err := h.tasks.ListTasks(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, "[task][list]", err)
		return
	}
	log.Printf("[task][list][ok] userID=%d count=%d", userID, len(tasks))
	c.JSON(http.StatusOK, tasks)
}

// @Summary      Add a local task
// @Description  Creates a task with no Canvas linkage and mirrors it to Todoist immediately.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        task  body      object  true  "name, description, due_date (RFC3339)"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Router       /tasks/add_task [post]
func (h *TaskHandler) AddTask(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		DueDate     string `json:"due_date"` // RFC3339
	}
	userID := currentUser(c)

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][add][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	due, ok := parseOptionalTime(c, "[task][add]", req.DueDate)
	if !ok {
		return
	}

	task, err := h.tasks.CreateLocalTask(c.Request.Context(), userID, req.Name, req.Description, due)
	if err != nil {
		respondServiceError(c, "[task][add]", err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// @Summary      Add a subtask
// @Description  Attaches a subtask to a synced assignment and nests it under the parent's Todoist mirror.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        subtask  body      object  true  "canvas_id, name, description, due_date (RFC3339)"
// @Success      201      {object}  models.SubTask
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /tasks/add_subtask [post]
func (h *TaskHandler) AddSubtask(c *gin.Context) {
	var req struct {
		CanvasID    int64  `json:"canvas_id" binding:"required"`
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		DueDate     string `json:"due_date"` // RFC3339
	}
	userID := currentUser(c)

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][subtask][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	due, ok := parseOptionalTime(c, "[task][subtask]", req.DueDate)
	if !ok {
		return
	}

	subtask, err := h.tasks.CreateSubtask(c.Request.Context(), userID, req.CanvasID, req.Name, req.Description, due)
	if err != nil {
		respondServiceError(c, "[task][subtask]", err)
		return
	}
	c.JSON(http.StatusCreated, subtask)
}

// @Summary      List subtasks
// @Description  Lists the caller's subtasks, optionally restricted to a set of parent task ids.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        filter  body      object  false  "task_ids"
// @Success      200     {array}   models.SubTask
// @Router       /tasks/get_subtasks [post]
func (h *TaskHandler) GetSubtasks(c *gin.Context) {
	var req struct {
		TaskIDs []int64 `json:"task_ids"`
	}
	// The body is optional; an empty one means every subtask.
	_ = c.ShouldBindJSON(&req)

	userID := currentUser(c)
	subtasks, err := h.tasks.GetSubtasks(c.Request.Context(), userID, req.TaskIDs)
	if err != nil {
		respondServiceError(c, "[task][subtasks]", err)
		return
	}
	log.Printf("[task][subtasks][ok] userID=%d count=%d", userID, len(subtasks))
	c.JSON(http.StatusOK, subtasks)
}

// @Summary      Update a task's notes
// @Description  Replaces the task's description. The id is the task's own id when task_type is "native", or the Canvas assignment id when "canvas" (the default).
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int     true  "Task id or Canvas assignment id"
// @Param        note  body      object  true  "description, task_type (native|canvas)"
// @Success      200   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tasks/{id}/note [patch]
func (h *TaskHandler) UpdateNote(c *gin.Context) {
	var req struct {
		Description *string `json:"description"`
		TaskType    string  `json:"task_type"`
	}
	userID := currentUser(c)

	ref, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Description == nil {
		log.Printf("[task][note][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "no description provided"})
		return
	}

	byCanvasID := true
	switch req.TaskType {
	case "", "canvas":
	case "native":
		byCanvasID = false
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task_type"})
		return
	}

	task, err := h.tasks.UpdateNote(c.Request.Context(), userID, ref, byCanvasID, *req.Description)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no task with the given id exists"})
			return
		}
		log.Printf("[task][note][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary      Close an item
// @Description  Marks the item completed locally and in Todoist. The id is the Todoist id of a task or private subtask.
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Todoist id"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id}/close [post]
func (h *TaskHandler) Close(c *gin.Context) {
	h.setOpen(c, false)
}

// @Summary      Reopen an item
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Todoist id"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id}/open [post]
func (h *TaskHandler) Open(c *gin.Context) {
	h.setOpen(c, true)
}

func (h *TaskHandler) setOpen(c *gin.Context, open bool) {
	userID := currentUser(c)
	todoistID := c.Param("id")
	log.Printf("[task][setopen] userID=%d id=%s open=%v", userID, todoistID, open)

	if err := h.tasks.SetOpenState(c.Request.Context(), userID, todoistID, open); err != nil {
		respondServiceError(c, "[task][setopen]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// @Summary      Toggle an item's status
// @Description  Flips completion of whatever the Todoist id names. Shared subtasks fan the new status out to every participant's mirror; the flip only sticks if at least one mirror accepts it.
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Todoist id"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /tasks/{id}/toggle [post]
func (h *TaskHandler) Toggle(c *gin.Context) {
	userID := currentUser(c)
	todoistID := c.Param("id")
	log.Printf("[task][toggle] userID=%d id=%s", userID, todoistID)

	status, err := h.tasks.ToggleStatus(c.Request.Context(), userID, todoistID)
	if err != nil {
		respondServiceError(c, "[task][toggle]", err)
		return
	}
	log.Printf("[task][toggle][ok] userID=%d id=%s status=%s", userID, todoistID, status)
	c.JSON(http.StatusOK, gin.H{"status": string(status)})
}

func parseOptionalTime(c *gin.Context, tag, value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		log.Printf("%s[err] invalid due_date=%q: %v", tag, value, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date (RFC3339)"})
		return nil, false
	}
	return &t, true
}
