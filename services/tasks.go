// Package services provides the task service for the remote solver API.
//
// This file implements the TaskService which handles the remote side of a
// simulation's lifecycle: creating a task, uploading the simulation document,
// submitting it to the solver queue, polling its status, and downloading,
// aborting or deleting it. Every call is a single request; retries for
// transient failures happen in the client's Do.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"fdtd-sdk/models"
)

// ClientInterface defines the methods needed from the SDK client
type ClientInterface interface {
	NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error)
	// NewRawRequest builds a request for an absolute URL without credentials,
	// e.g. a presigned result download.
	NewRawRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error)
	Do(req *http.Request) (*http.Response, error)
	GetBaseURL() string
}

// StatusError is a non-success HTTP response from the API.
type StatusError struct {
	StatusCode int
	Message    string
	// RetryAfter is the Retry-After header in seconds, 0 when absent.
	RetryAfter int
	RequestID  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

type TaskService struct {
	client ClientInterface
}

func NewTaskService(client ClientInterface) *TaskService {
	return &TaskService{
		client: client,
	}
}

// Create registers a new task. The idempotency key makes retried creates
// return the same task; an empty key gets a fresh UUID.
func (s *TaskService) Create(ctx context.Context, taskName, schemaVersion, idempotencyKey string) (*models.CreateTaskResponse, error) {
	payload := map[string]interface{}{
		"task_name":      taskName,
		"schema_version": schemaVersion,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := s.client.NewRequest(ctx, "POST", "/tasks", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	req.Header.Set("Idempotency-Key", idempotencyKey)

	var createResp models.CreateTaskResponse
	if err := s.send(req, &createResp, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	if createResp.TaskID == "" {
		return nil, fmt.Errorf("failed to decode response: missing task_id")
	}
	return &createResp, nil
}

// Upload stores the simulation document for a task.
func (s *TaskService) Upload(ctx context.Context, taskID string, document []byte) error {
	req, err := s.client.NewRequest(ctx, "PUT", taskPath(taskID, "simulation"), bytes.NewReader(document))
	if err != nil {
		return err
	}
	return s.send(req, nil, http.StatusOK, http.StatusCreated, http.StatusNoContent)
}

// Submit queues an uploaded task on the solver.
func (s *TaskService) Submit(ctx context.Context, taskID string) (*models.SubmitTaskResponse, error) {
	req, err := s.client.NewRequest(ctx, "POST", taskPath(taskID, "submit"), nil)
	if err != nil {
		return nil, err
	}
	var submitResp models.SubmitTaskResponse
	if err := s.send(req, &submitResp, http.StatusOK, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &submitResp, nil
}

// Get returns the current remote view of a task.
func (s *TaskService) Get(ctx context.Context, taskID string) (*models.TaskInfo, error) {
	req, err := s.client.NewRequest(ctx, "GET", taskPath(taskID, ""), nil)
	if err != nil {
		return nil, err
	}
	var info models.TaskInfo
	if err := s.send(req, &info, http.StatusOK); err != nil {
		return nil, err
	}
	return &info, nil
}

// Abort asks the solver to stop a task.
func (s *TaskService) Abort(ctx context.Context, taskID string) error {
	req, err := s.client.NewRequest(ctx, "POST", taskPath(taskID, "abort"), nil)
	if err != nil {
		return err
	}
	return s.send(req, nil, http.StatusOK, http.StatusAccepted, http.StatusNoContent)
}

// Delete removes a task and its stored data.
func (s *TaskService) Delete(ctx context.Context, taskID string) error {
	req, err := s.client.NewRequest(ctx, "DELETE", taskPath(taskID, ""), nil)
	if err != nil {
		return err
	}
	return s.send(req, nil, http.StatusOK, http.StatusNoContent)
}

// Result downloads the result artifact. resultURL is used when the task info
// carried one, otherwise the API's result endpoint is used.
func (s *TaskService) Result(ctx context.Context, taskID, resultURL string) ([]byte, error) {
	var (
		req *http.Request
		err error
	)
	if strings.HasPrefix(resultURL, "http://") || strings.HasPrefix(resultURL, "https://") {
		req, err = s.client.NewRawRequest(ctx, "GET", resultURL, nil)
	} else {
		req, err = s.client.NewRequest(ctx, "GET", taskPath(taskID, "result"), nil)
	}
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	return body, nil
}

// Log returns the solver log of a task.
func (s *TaskService) Log(ctx context.Context, taskID string) (string, error) {
	req, err := s.client.NewRequest(ctx, "GET", taskPath(taskID, "log"), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read log: %w", err)
	}
	return string(body), nil
}

// List returns the most recent tasks, at most limit when limit > 0.
func (s *TaskService) List(ctx context.Context, limit int) ([]models.TaskInfo, error) {
	path := "/tasks"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	req, err := s.client.NewRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	var listResp models.TaskListResponse
	if err := s.send(req, &listResp, http.StatusOK); err != nil {
		return nil, err
	}
	return listResp.Tasks, nil
}

// Estimate returns the projected cost of running a task.
func (s *TaskService) Estimate(ctx context.Context, taskID string) (*models.EstimateResponse, error) {
	req, err := s.client.NewRequest(ctx, "POST", taskPath(taskID, "estimate"), nil)
	if err != nil {
		return nil, err
	}
	var est models.EstimateResponse
	if err := s.send(req, &est, http.StatusOK); err != nil {
		return nil, err
	}
	return &est, nil
}

func taskPath(taskID, action string) string {
	p := "/tasks/" + url.PathEscape(taskID)
	if action != "" {
		p += "/" + action
	}
	return p
}

// send executes req, maps unexpected status codes to *StatusError and decodes
// the JSON body into out when out is non-nil.
func (s *TaskService) send(req *http.Request, out interface{}, ok ...int) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	accepted := false
	for _, code := range ok {
		if resp.StatusCode == code {
			accepted = true
			break
		}
	}
	if !accepted {
		return decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	se := &StatusError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(bodyBytes)),
		RequestID:  resp.Header.Get("X-Request-ID"),
	}
	if ra, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		se.RetryAfter = ra
	}

	// Try to parse as JSON error response
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(bodyBytes, &errResp); err == nil {
		switch {
		case errResp.Error != "":
			se.Message = errResp.Error
		case errResp.Message != "":
			se.Message = errResp.Message
		case errResp.Detail != "":
			se.Message = errResp.Detail
		}
	}
	if se.Message == "" {
		se.Message = http.StatusText(resp.StatusCode)
	}
	return se
}
