package fdtd

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"fdtd-sdk/models"
	"fdtd-sdk/utils"
)

// Status is the local lifecycle state of a Job.
type Status string

const (
	StatusCreated   Status = "created"
	StatusUploading Status = "uploading"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// order of the non-terminal states.
var stage = map[Status]int{
	StatusCreated:   0,
	StatusUploading: 1,
	StatusQueued:    2,
	StatusRunning:   3,
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusCancelled
}

// RemoteStatus maps a status string reported by the API to a local Status.
func RemoteStatus(remote string) (Status, bool) {
	switch strings.ToLower(remote) {
	case "draft", "created":
		return StatusCreated, true
	case "uploaded", "queued", "preprocess", "preprocessing":
		return StatusQueued, true
	case "running", "postprocess", "postprocessing":
		return StatusRunning, true
	case "success":
		return StatusSuccess, true
	case "error", "diverged", "deleted":
		return StatusError, true
	case "abort", "aborted", "cancelled", "canceled":
		return StatusCancelled, true
	}
	return "", false
}

// Job tracks one remote task. Its methods are safe for concurrent use; each
// Job has its own lock.
type Job struct {
	mu sync.Mutex

	taskID       string
	taskName     string
	status       Status
	remoteStatus string
	errorMessage string
	resultURL    string
	createdAt    time.Time
	monitors     []string
	history      []Status
}

func newJob(taskName string, monitors []string) *Job {
	return &Job{
		taskName:  taskName,
		status:    StatusCreated,
		createdAt: time.Now(),
		monitors:  monitors,
		history:   []Status{StatusCreated},
	}
}

func (j *Job) TaskID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.taskID
}

func (j *Job) TaskName() string {
	return j.taskName
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// RemoteStatus is the last raw status string seen from the API.
func (j *Job) RemoteStatus() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.remoteStatus
}

// ErrorMessage is the solver diagnostic of a failed job, verbatim.
func (j *Job) ErrorMessage() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errorMessage
}

func (j *Job) CreatedAt() time.Time {
	return j.createdAt
}

// Monitors lists the monitor names the result must contain.
func (j *Job) Monitors() []string {
	return append([]string(nil), j.monitors...)
}

// History returns every state the job has been in, in order.
func (j *Job) History() []Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Status(nil), j.history...)
}

func (j *Job) setTaskID(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.taskID = id
}

func (j *Job) snapshot() (taskID string, status Status, resultURL string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.taskID, j.status, j.resultURL
}

// transition moves the job to target.
//
// Terminal states never change: repeating the current terminal state is a
// no-op and any other target is ErrJobTerminal. Moving to an earlier
// non-terminal state is ignored. Skipped intermediate states are recorded in
// order, so a job seen as success while queued passes through running.
func (j *Job) transition(target Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(target)
}

func (j *Job) transitionLocked(target Status) error {
	cur := j.status
	if cur.IsTerminal() {
		if cur == target {
			return nil
		}
		return fmt.Errorf("%w: %s cannot become %s", ErrJobTerminal, cur, target)
	}

	switch target {
	case StatusCancelled:
		j.enter(target)
		return nil
	case StatusError:
		// preprocessing failures surface while still queued
		if stage[cur] < stage[StatusQueued] {
			j.stepTo(StatusQueued)
		}
		j.enter(target)
		return nil
	case StatusSuccess:
		j.stepTo(StatusRunning)
		j.enter(target)
		return nil
	}

	n, ok := stage[target]
	if !ok {
		return fmt.Errorf("unknown job status %q", target)
	}
	if n <= stage[cur] {
		return nil
	}
	j.stepTo(target)
	return nil
}

func (j *Job) stepTo(target Status) {
	for _, s := range []Status{StatusUploading, StatusQueued, StatusRunning} {
		if stage[s] > stage[j.status] && stage[s] <= stage[target] {
			j.enter(s)
		}
	}
}

func (j *Job) enter(s Status) {
	utils.LogDebug("job %s (%s): %s -> %s", j.taskID, j.taskName, j.status, s)
	j.status = s
	j.history = append(j.history, s)
}

// apply folds a remote task view into the job and returns the new status.
func (j *Job) apply(info *models.TaskInfo) (Status, error) {
	target, ok := RemoteStatus(info.Status)
	if !ok {
		return j.Status(), fmt.Errorf("unknown remote status %q for task %s", info.Status, info.TaskID)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.remoteStatus = info.Status
	if info.ErrorMessage != nil {
		j.errorMessage = *info.ErrorMessage
	}
	if info.ResultURL != nil {
		j.resultURL = *info.ResultURL
	}
	if err := j.transitionLocked(target); err != nil {
		return j.status, err
	}
	return j.status, nil
}
