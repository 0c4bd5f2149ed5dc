package controller

import (
	"strings"

	"autotask/internal/task/service"
	"autotask/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// TaskController handles the task and file endpoints.
type TaskController struct {
	dispatch *service.DispatchService
	files    *service.FileService
}

// NewTaskController creates a new TaskController.
func NewTaskController(dispatch *service.DispatchService, files *service.FileService) *TaskController {
	return &TaskController{dispatch: dispatch, files: files}
}

// RegisterRoutes mounts the controller on router.
func (h *TaskController) RegisterRoutes(router gin.IRouter) {
	router.POST("/run", h.Run)
	router.GET("/read", h.Read)
	router.GET("/healthz", h.Health)
}

// Run classifies the task and executes the matching handler.
func (h *TaskController) Run(c *gin.Context) {
	task := c.Query("task")
	if strings.TrimSpace(task) == "" && c.Request.ContentLength != 0 {
		var req RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request parameters")
			return
		}
		task = req.Task
	}

	result := h.dispatch.Dispatch(c.Request.Context(), task)
	if err := result.Error(); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, RunResponse{
		Task:     result.Entry,
		Artifact: result.Artifact,
	})
}

// Read returns a sandboxed file as plain text.
func (h *TaskController) Read(c *gin.Context) {
	path, ok := c.GetQuery("path")
	if !ok || strings.TrimSpace(path) == "" {
		response.BadRequest(c, "path is required")
		return
	}
	content, err := h.files.Read(c.Request.Context(), path)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Text(c, content)
}

// Health reports liveness.
func (h *TaskController) Health(c *gin.Context) {
	response.Success(c, nil)
}

// RunRequest is the optional JSON body of POST /run.
type RunRequest struct {
	Task string `json:"task"`
}

// RunResponse names the handler that ran and the artifact it produced.
type RunResponse struct {
	Task     string `json:"task"`
	Artifact string `json:"artifact"`
}
