package models

import "time"

// TaskInfo is the remote view of a submitted simulation.
type TaskInfo struct {
	TaskID       string     `json:"task_id"`
	TaskName     string     `json:"task_name"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message"`
	ResultURL    *string    `json:"result_url"`
	CreatedAt    *time.Time `json:"created_at"`
	FlexUnits    *float64   `json:"flex_units"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	TaskName      string `json:"task_name"`
	SchemaVersion string `json:"schema_version"`
}

// CreateTaskResponse is returned by POST /tasks.
type CreateTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// SubmitTaskResponse is returned by POST /tasks/{id}/submit.
type SubmitTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// EstimateResponse is returned by POST /tasks/{id}/estimate.
type EstimateResponse struct {
	FlexUnits float64 `json:"flex_units"`
}

// TaskListResponse is returned by GET /tasks.
type TaskListResponse struct {
	Tasks []TaskInfo `json:"tasks"`
}
