package fdtd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fdtd-sdk/grid"
	"fdtd-sdk/models"
	"fdtd-sdk/services"
	"fdtd-sdk/simdata"
	"fdtd-sdk/simulation"
	"fdtd-sdk/store"
	"fdtd-sdk/utils"
)

// Submit creates a task for sim, uploads its document and queues it. It
// returns as soon as the API has accepted the task.
//
// The grid is derived before anything is sent, so a simulation over the cell
// ceiling fails with a grid.GridResolutionError and creates no task.
func (c *Client) Submit(ctx context.Context, sim *simulation.Simulation, taskName string) (*Job, error) {
	if taskName == "" {
		return nil, &ValidationError{Field: "task_name", Message: "must not be empty"}
	}
	if sim == nil {
		return nil, &ValidationError{Field: "simulation", Message: "must not be nil"}
	}
	g, err := sim.Grid()
	if err != nil {
		return nil, err
	}
	if c.maxGridCells > 0 && g.TotalCells() > c.maxGridCells {
		return nil, &grid.GridResolutionError{Cells: g.TotalCells(), Limit: c.maxGridCells}
	}

	job := newJob(taskName, sim.MonitorNames())
	if err := job.transition(StatusUploading); err != nil {
		return nil, err
	}
	document, err := json.Marshal(sim)
	if err != nil {
		return nil, fmt.Errorf("failed to encode simulation: %w", err)
	}

	created, err := c.Tasks.Create(ctx, taskName, simulation.SchemaVersion, "")
	if err != nil {
		return nil, submissionError("create", err)
	}
	job.setTaskID(created.TaskID)

	if err := c.Tasks.Upload(ctx, created.TaskID, document); err != nil {
		return nil, submissionError("upload", err)
	}
	submitted, err := c.Tasks.Submit(ctx, created.TaskID)
	if err != nil {
		return nil, submissionError("submit", err)
	}

	target := StatusQueued
	if s, ok := RemoteStatus(submitted.Status); ok && s != StatusCreated {
		target = s
	}
	if err := job.transition(target); err != nil {
		return nil, err
	}
	c.record(ctx, job, "")
	return job, nil
}

// Attach returns a Job for an existing task, initialised from its current
// remote state.
func (c *Client) Attach(ctx context.Context, taskID string) (*Job, error) {
	info, err := c.Tasks.Get(ctx, taskID)
	if err != nil {
		return nil, apiError(err)
	}
	job := newJob(info.TaskName, nil)
	job.setTaskID(info.TaskID)
	if _, err := job.apply(info); err != nil {
		return nil, err
	}
	return job, nil
}

// Poll queries the task once and returns the job's status. A job already in
// a terminal state is not queried.
func (c *Client) Poll(ctx context.Context, job *Job) (Status, error) {
	taskID, status, _ := job.snapshot()
	if status.IsTerminal() {
		return status, nil
	}
	info, err := c.Tasks.Get(ctx, taskID)
	if err != nil {
		return status, apiError(err)
	}
	next, err := job.apply(info)
	if err != nil {
		return next, err
	}
	if next.IsTerminal() {
		c.record(ctx, job, "")
	}
	return next, nil
}

// Wait polls until the job reaches a terminal state.
//
// Polls are spaced by the client's PollConfig backoff. Up to MaxFailures
// consecutive transient errors are tolerated. Each status request is bounded
// by the time left before the poll timeout. When it elapses a *TimeoutError
// is returned and the remote task is left running; cancelling ctx likewise
// returns without touching the task.
//
// A failed job returns *RemoteSolverError and a cancelled one ErrJobCancelled.
func (c *Client) Wait(ctx context.Context, job *Job) error {
	cfg := c.pollConfig
	backoff := utils.Backoff{Initial: cfg.Interval, Max: cfg.MaxInterval}
	start := time.Now()
	failures := 0

	for attempt := 0; ; attempt++ {
		pollCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.Timeout > 0 {
			remaining := cfg.Timeout - time.Since(start)
			if remaining <= 0 {
				return &TimeoutError{TaskID: job.TaskID(), Status: job.Status(), After: cfg.Timeout}
			}
			// a stalled status request must not outlive the poll timeout
			pollCtx, cancel = context.WithTimeout(ctx, remaining)
		}
		status, err := c.Poll(pollCtx, job)
		expired := errors.Is(pollCtx.Err(), context.DeadlineExceeded)
		cancel()

		switch {
		case err == nil:
			failures = 0
		case ctx.Err() != nil:
			return ctx.Err()
		case expired:
			return &TimeoutError{TaskID: job.TaskID(), Status: status, After: cfg.Timeout}
		case transient(err) && failures < cfg.MaxFailures:
			failures++
			utils.LogDebug("poll of task %s failed (%d/%d): %v", job.TaskID(), failures, cfg.MaxFailures, err)
		default:
			return err
		}

		if status.IsTerminal() {
			return terminalError(job)
		}

		delay := backoff.Delay(attempt)
		if cfg.Timeout > 0 {
			elapsed := time.Since(start)
			if elapsed >= cfg.Timeout {
				return &TimeoutError{TaskID: job.TaskID(), Status: status, After: cfg.Timeout}
			}
			if remaining := cfg.Timeout - elapsed; delay > remaining {
				delay = remaining
			}
		}
		if err := utils.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func terminalError(job *Job) error {
	switch job.Status() {
	case StatusError:
		return &RemoteSolverError{TaskID: job.TaskID(), RemoteStatus: job.RemoteStatus(), Message: job.ErrorMessage()}
	case StatusCancelled:
		return ErrJobCancelled
	}
	return nil
}

// Fetch downloads and decodes the result of a successful job.
func (c *Client) Fetch(ctx context.Context, job *Job) (*simdata.SimulationData, error) {
	taskID, status, resultURL := job.snapshot()
	if status != StatusSuccess {
		return nil, &NotReadyError{TaskID: taskID, Status: status}
	}

	body, err := c.Tasks.Result(ctx, taskID, resultURL)
	if err != nil {
		var se *services.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone) {
			return nil, &DataUnavailableError{TaskID: taskID, StatusCode: se.StatusCode}
		}
		return nil, apiError(err)
	}

	data, err := simdata.DecodeBytes(body)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", taskID, err)
	}
	if err := data.Covers(job.Monitors()); err != nil {
		return nil, fmt.Errorf("task %s: %w", taskID, err)
	}
	return data, nil
}

// Cancel aborts the remote task. Cancelling a cancelled job is a no-op;
// cancelling a finished one is ErrJobTerminal.
func (c *Client) Cancel(ctx context.Context, job *Job) error {
	taskID, status, _ := job.snapshot()
	if status == StatusCancelled {
		return nil
	}
	if status.IsTerminal() {
		return fmt.Errorf("%w: task %s is %s", ErrJobTerminal, taskID, status)
	}
	if taskID != "" {
		if err := c.Tasks.Abort(ctx, taskID); err != nil {
			return apiError(err)
		}
	}
	if err := job.transition(StatusCancelled); err != nil {
		return err
	}
	c.record(ctx, job, "")
	return nil
}

// Delete removes the remote task and its data.
func (c *Client) Delete(ctx context.Context, job *Job) error {
	if err := c.Tasks.Delete(ctx, job.TaskID()); err != nil {
		return apiError(err)
	}
	return nil
}

// Log returns the solver log of the job.
func (c *Client) Log(ctx context.Context, job *Job) (string, error) {
	text, err := c.Tasks.Log(ctx, job.TaskID())
	if err != nil {
		return "", apiError(err)
	}
	return text, nil
}

// Estimate returns the projected cost of the job in flex units.
func (c *Client) Estimate(ctx context.Context, job *Job) (float64, error) {
	est, err := c.Tasks.Estimate(ctx, job.TaskID())
	if err != nil {
		return 0, apiError(err)
	}
	return est.FlexUnits, nil
}

// List returns recent tasks of the account.
func (c *Client) List(ctx context.Context, limit int) ([]models.TaskInfo, error) {
	tasks, err := c.Tasks.List(ctx, limit)
	if err != nil {
		return nil, apiError(err)
	}
	return tasks, nil
}

// History returns the most recent locally recorded tasks. It returns nil
// when the configured recorder cannot be listed or no recorder is set.
func (c *Client) History(ctx context.Context, limit int) ([]store.Record, error) {
	lister, ok := c.history.(interface {
		List(ctx context.Context, limit int) ([]store.Record, error)
	})
	if !ok {
		return nil, nil
	}
	return lister.List(ctx, limit)
}

func (c *Client) record(ctx context.Context, job *Job, resultPath string) {
	if c.history == nil {
		return
	}
	rec := store.Record{
		TaskID:       job.TaskID(),
		TaskName:     job.TaskName(),
		Status:       string(job.Status()),
		ErrorMessage: job.ErrorMessage(),
		ResultPath:   resultPath,
	}
	if err := c.history.Record(ctx, rec); err != nil {
		utils.LogDebug("failed to record task %s: %v", rec.TaskID, err)
	}
}
