package server

import (
	"time"

	"github.com/hupe1980/taskmesh/core"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CreateTaskRequest is the payload for POST /api/tasks.
type CreateTaskRequest struct {
	OwnerID  string          `json:"owner_id"`
	Goal     string          `json:"goal"`
	Config   core.TaskConfig `json:"config"`
	Priority int             `json:"priority"`
}

// CreateTaskResponse carries the id of the admitted task.
type CreateTaskResponse struct {
	TaskID string `json:"task_id"`
}

// HealthResponse is the payload of GET /api/health.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      string    `json:"uptime"`
	QueueLength int       `json:"queue_length"`
}
