package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskhub/internal/app"
	"taskhub/internal/transport/http/response"
)

type TaskHandler struct {
	taskService *app.TaskService
}

type CreateTaskRequest struct {
	Description string `json:"description" binding:"required"`
	Completed   bool   `json:"completed"`
}

func NewTaskHandler(taskService *app.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) Create(c *gin.Context) {
	user, _, ok := authContext(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	task, err := h.taskService.Create(app.CreateTaskInput{
		OwnerID:     user.ID,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, "create task failed")
		}
		return
	}
	response.Created(c, task)
}

// List supports the filtering the classic client expects:
// GET /tasks?completed=true&limit=10&skip=10&sortBy=createdAt:desc
func (h *TaskHandler) List(c *gin.Context) {
	user, _, ok := authContext(c)
	if !ok {
		return
	}

	input := app.ListTasksInput{
		OwnerID: user.ID,
		SortBy:  c.Query("sortBy"),
	}

	if raw := c.Query("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid completed filter")
			return
		}
		input.Completed = &completed
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.Error(c, http.StatusBadRequest, "invalid limit")
			return
		}
		input.Limit = limit
	}
	if raw := c.Query("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			response.Error(c, http.StatusBadRequest, "invalid skip")
			return
		}
		input.Skip = skip
	}

	tasks, err := h.taskService.List(input)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "invalid sort expression")
		} else {
			response.Error(c, http.StatusInternalServerError, "list tasks failed")
		}
		return
	}
	response.OK(c, tasks)
}

func (h *TaskHandler) Get(c *gin.Context) {
	user, _, ok := authContext(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.taskService.Get(user.ID, taskID)
	if err != nil {
		taskError(c, err, "get task failed")
		return
	}
	response.OK(c, task)
}

func (h *TaskHandler) Update(c *gin.Context) {
	user, _, ok := authContext(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	task, err := h.taskService.Update(user.ID, taskID, updates)
	if err != nil {
		taskError(c, err, "update task failed")
		return
	}
	response.OK(c, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	user, _, ok := authContext(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.taskService.Delete(user.ID, taskID)
	if err != nil {
		taskError(c, err, "delete task failed")
		return
	}
	response.OK(c, task)
}

func taskIDParam(c *gin.Context) (uint, bool) {
	taskID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || taskID64 == 0 {
		response.Error(c, http.StatusNotFound, "task not found")
		return 0, false
	}
	return uint(taskID64), true
}

func taskError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrTaskNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrUnknownField):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, fallback)
	}
}
