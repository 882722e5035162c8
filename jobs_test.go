package fdtd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdtd-sdk/grid"
	"fdtd-sdk/models"
	"fdtd-sdk/simdata"
	"fdtd-sdk/simulation"
	"fdtd-sdk/store"
)

const quickstartResult = `{
  "version": "1.0",
  "task_id": "%s",
  "units": {"length": "um", "frequency": "Hz", "fields": "normalized"},
  "monitors": {
    "fields": {
      "type": "FieldMonitor",
      "freqs": [3.997e14],
      "coords": {"x": [-1, 1], "y": [0], "z": [0]},
      "fields": {"Ey": {"shape": [2, 1, 1, 1], "real": [0.5, 0.25], "imag": [0, 0.1]}}
    }
  }
}`

// fakeAPI serves the task endpoints. Each task reports the statuses in
// sequence, one per GET, repeating the last.
type fakeAPI struct {
	mu         sync.Mutex
	statuses   []string
	errorMsg   string
	failCode   map[string]int // "METHOD /path" -> status
	nextID     int
	polls      map[string]int
	uploads    map[string][]byte
	aborted    map[string]bool
	created    int
	resultGone bool
	// status requests hang until the client gives up
	stall atomic.Bool
}

func newFakeAPI(statuses ...string) *fakeAPI {
	return &fakeAPI{
		statuses: statuses,
		failCode: map[string]int{},
		polls:    map[string]int{},
		uploads:  map[string][]byte{},
		aborted:  map[string]bool{},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.stall.Load() && r.Method == "GET" && strings.Count(strings.Trim(r.URL.Path, "/"), "/") == 1 {
		<-r.Context().Done()
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if code, ok := f.failCode[r.Method+" "+r.URL.Path]; ok {
		w.WriteHeader(code)
		fmt.Fprintf(w, `{"error": "injected %d"}`, code)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == "POST" && r.URL.Path == "/tasks":
		f.nextID++
		f.created++
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"task_id": "fdve-%d", "status": "draft"}`, f.nextID)
	case r.Method == "PUT" && len(parts) == 3 && parts[2] == "simulation":
		body, _ := io.ReadAll(r.Body)
		f.uploads[parts[1]] = body
		w.WriteHeader(http.StatusNoContent)
	case r.Method == "POST" && len(parts) == 3 && parts[2] == "submit":
		fmt.Fprintf(w, `{"task_id": %q, "status": "queued"}`, parts[1])
	case r.Method == "POST" && len(parts) == 3 && parts[2] == "abort":
		f.aborted[parts[1]] = true
		w.WriteHeader(http.StatusAccepted)
	case r.Method == "GET" && len(parts) == 2:
		id := parts[1]
		i := f.polls[id]
		f.polls[id]++
		if i >= len(f.statuses) {
			i = len(f.statuses) - 1
		}
		status := f.statuses[i]
		if f.aborted[id] {
			status = "aborted"
		}
		msg := "null"
		if status == "error" || status == "diverged" {
			msg = fmt.Sprintf("%q", f.errorMsg)
		}
		fmt.Fprintf(w, `{"task_id": %q, "task_name": "t", "status": %q, "error_message": %s}`, id, status, msg)
	case r.Method == "GET" && len(parts) == 3 && parts[2] == "result":
		if f.resultGone {
			w.WriteHeader(http.StatusGone)
			return
		}
		fmt.Fprintf(w, quickstartResult, parts[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) pollCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[id]
}

func (f *fakeAPI) wasAborted(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aborted[id]
}

func (f *fakeAPI) upload(id string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[id]
}

func (f *fakeAPI) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

type memoryHistory struct {
	mu      sync.Mutex
	records []store.Record
}

func (m *memoryHistory) Record(ctx context.Context, rec store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryHistory) List(ctx context.Context, limit int) ([]store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Record, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	base := []ClientOption{
		WithBaseURL(server.URL),
		WithRetryConfig(&RetryConfig{MaxRetries: 0}),
		WithPollConfig(&PollConfig{Interval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxFailures: 3}),
	}
	return NewClient("test-key", append(base, opts...)...)
}

func quickstart(t *testing.T) *simulation.Simulation {
	t.Helper()
	freq0 := models.C0 / 0.75
	dielectric, err := models.NewMedium(2.0)
	require.NoError(t, err)
	cube, err := models.NewBox(models.Vec3{}, models.Vec3{1.5, 1.5, 1.5})
	require.NoError(t, err)
	box, err := models.NewStructure("box", cube, dielectric)
	require.NoError(t, err)
	pulse, err := models.NewGaussianPulse(freq0, freq0/10)
	require.NoError(t, err)
	src, err := models.NewUniformCurrentSource(models.Vec3{-1.5, 0, 0}, models.Vec3{0, 0.4, 0.4}, pulse, models.Ey)
	require.NoError(t, err)
	mon, err := models.NewFieldMonitor("fields", models.Vec3{}, models.Vec3{models.Inf, models.Inf, 0}, []float64{freq0})
	require.NoError(t, err)

	sim, err := simulation.New(simulation.Config{
		Name:       "quickstart",
		Size:       models.Vec3{4, 3, 3},
		Structures: []models.Structure{box},
		Sources:    []*models.Source{src},
		Monitors:   []*models.Monitor{mon},
		GridSpec:   grid.AutoSpec(10),
		RunTime:    120 / freq0,
	})
	require.NoError(t, err)
	return sim
}

func TestRun_Quickstart(t *testing.T) {
	api := newFakeAPI("queued", "running", "success")
	history := &memoryHistory{}
	client := newTestClient(t, api, WithHistory(history))
	sim := quickstart(t)

	g, err := sim.Grid()
	require.NoError(t, err)
	for _, n := range g.NumCells() {
		assert.Positive(t, n)
	}

	path := filepath.Join(t.TempDir(), "quickstart.json.gz")
	data, err := client.Run(context.Background(), sim, "quickstart", path)
	require.NoError(t, err)

	fields, err := data.Monitor("fields")
	require.NoError(t, err)
	ey, err := fields.Field(models.Ey)
	require.NoError(t, err)
	assert.Equal(t, complex(0.25, 0.1), ey.At(1, 0, 0, 0))

	onDisk, err := simdata.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	back, err := simulation.Unmarshal(api.upload("fdve-1"))
	require.NoError(t, err)
	assert.Equal(t, sim.MonitorNames(), back.MonitorNames())

	require.NotEmpty(t, history.records)
	last := history.records[len(history.records)-1]
	assert.Equal(t, "fdve-1", last.TaskID)
	assert.Equal(t, string(StatusSuccess), last.Status)
	assert.Equal(t, path, last.ResultPath)
}

func TestSubmit_ReturnsImmediately(t *testing.T) {
	api := newFakeAPI("running")
	client := newTestClient(t, api)

	job, err := client.Submit(context.Background(), quickstart(t), "q")
	require.NoError(t, err)
	assert.Equal(t, "fdve-1", job.TaskID())
	assert.Equal(t, StatusQueued, job.Status())
	assert.Equal(t, []Status{StatusCreated, StatusUploading, StatusQueued}, job.History())
	assert.Zero(t, api.pollCount("fdve-1"))

	status, err := client.Poll(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, status)
}

func TestSubmit_Errors(t *testing.T) {
	cases := []struct {
		name   string
		fail   string
		code   int
		reason SubmissionReason
		stage  string
	}{
		{"quota", "POST /tasks", http.StatusPaymentRequired, ReasonQuota, "create"},
		{"auth", "POST /tasks", http.StatusUnauthorized, ReasonAuthentication, "create"},
		{"malformed", "PUT /tasks/fdve-1/simulation", http.StatusUnprocessableEntity, ReasonMalformed, "upload"},
		{"rejected", "POST /tasks/fdve-1/submit", http.StatusConflict, ReasonRejected, "submit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI("queued")
			api.failCode[tc.fail] = tc.code
			client := newTestClient(t, api)

			_, err := client.Submit(context.Background(), quickstart(t), "q")
			var se *SubmissionError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.reason, se.Reason)
			assert.Equal(t, tc.stage, se.Stage)

			var ae *APIError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tc.code, ae.StatusCode)
		})
	}
}

func TestSubmit_LocalChecks(t *testing.T) {
	api := newFakeAPI("queued")
	client := newTestClient(t, api, WithMaxGridCells(100))

	_, err := client.Submit(context.Background(), quickstart(t), "q")
	require.ErrorIs(t, err, grid.ErrGridResolution)

	_, err = client.Submit(context.Background(), quickstart(t), "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "task_name", ve.Field)

	assert.Zero(t, api.createdCount())

	_, err = NewClient("").Submit(context.Background(), quickstart(t), "q")
	var se *SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ReasonAuthentication, se.Reason)
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestWait_TimeoutDoesNotCancel(t *testing.T) {
	api := newFakeAPI("running")
	client := newTestClient(t, api,
		WithPollConfig(&PollConfig{Interval: 5 * time.Millisecond, MaxInterval: 10 * time.Millisecond, Timeout: 60 * time.Millisecond}))

	job, err := client.Submit(context.Background(), quickstart(t), "q")
	require.NoError(t, err)

	err = client.Wait(context.Background(), job)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StatusRunning, te.Status)
	assert.Equal(t, StatusRunning, job.Status())
	assert.NotContains(t, job.History(), StatusCancelled)
	assert.False(t, api.wasAborted("fdve-1"))
	assert.Greater(t, api.pollCount("fdve-1"), 1)
}

func TestWait_TimeoutBoundsStalledPoll(t *testing.T) {
	api := newFakeAPI("running")
	client := newTestClient(t, api,
		WithPollConfig(&PollConfig{Interval: 5 * time.Millisecond, MaxInterval: 10 * time.Millisecond, Timeout: 80 * time.Millisecond, MaxFailures: 3}))

	job, err := client.Submit(context.Background(), quickstart(t), "q")
	require.NoError(t, err)
	api.stall.Store(true)

	start := time.Now()
	err = client.Wait(context.Background(), job)
	elapsed := time.Since(start)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 80*time.Millisecond, te.After)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, StatusQueued, job.Status())
	assert.False(t, api.wasAborted("fdve-1"))
}

func TestWait_ContextCancelLeavesJob(t *testing.T) {
	api := newFakeAPI("running")
	client := newTestClient(t, api)

	job, err := client.Submit(context.Background(), quickstart(t), "q")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = client.Wait(ctx, job)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusRunning, job.Status())
	assert.False(t, api.wasAborted("fdve-1"))
}

func TestWait_RemoteSolverError(t *testing.T) {
	api := newFakeAPI("queued", "running", "diverged")
	api.errorMsg = "fields diverged at step 1041: reduce courant"
	client := newTestClient(t, api)

	job, err := client.Submit(context.Background(), quickstart(t), "q")
	require.NoError(t, err)

	err = client.Wait(context.Background(), job)
	var re *RemoteSolverError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, api.errorMsg, re.Message)
	assert.Equal(t, "diverged", re.RemoteStatus)
	assert.Equal(t, StatusError, job.Status())

	_, err = client.Fetch(context.Background(), job)
	var nr *NotReadyError
	require.ErrorAs(t, err, &nr)
	assert.Equal(t, StatusError, nr.Status)
}

func TestWait_TransientFailures(t *testing.T) {
	api := newFakeAPI("running", "success")
	client := newTestClient(t, api)

	job, err := client.Submit(context.Background(), quickstart(t), "q")
	require.NoError(t, err)

	api.mu.Lock()
	api.failCode["GET /tasks/fdve-1"] = http.StatusServiceUnavailable
	api.mu.Unlock()
	go func() {
		time.Sleep(10 * time.Millisecond)
		api.mu.Lock()
		delete(api.failCode, "GET /tasks/fdve-1")
		api.mu.Unlock()
	}()

	client.pollConfig.MaxFailures = 1000
	require.NoError(t, client.Wait(context.Background(), job))
	assert.Equal(t, StatusSuccess, job.Status())
}

func TestWait_PermanentFailure(t *testing.T) {
	api := newFakeAPI("running")
	api.failCode["GET /tasks/fdve-1"] = http.StatusForbidden
	client := newTestClient(t, api)

	job, err := client.Submit(context.Background(), quickstart(t), "q")
	require.NoError(t, err)

	err = client.Wait(context.Background(), job)
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusForbidden, ae.StatusCode)
}

func TestFetch_Lifecycle(t *testing.T) {
	api := newFakeAPI("success")
	client := newTestClient(t, api)
	ctx := context.Background()

	job, err := client.Submit(ctx, quickstart(t), "q")
	require.NoError(t, err)

	_, err = client.Fetch(ctx, job)
	var nr *NotReadyError
	require.ErrorAs(t, err, &nr)
	assert.Equal(t, StatusQueued, nr.Status)

	require.NoError(t, client.Wait(ctx, job))
	assert.Equal(t, []Status{StatusCreated, StatusUploading, StatusQueued, StatusRunning, StatusSuccess}, job.History())

	api.mu.Lock()
	api.resultGone = true
	api.mu.Unlock()
	_, err = client.Fetch(ctx, job)
	var du *DataUnavailableError
	require.ErrorAs(t, err, &du)
	assert.Equal(t, http.StatusGone, du.StatusCode)
}

func TestCancel(t *testing.T) {
	api := newFakeAPI("running")
	client := newTestClient(t, api)
	ctx := context.Background()

	job, err := client.Submit(ctx, quickstart(t), "q")
	require.NoError(t, err)

	require.NoError(t, client.Cancel(ctx, job))
	assert.Equal(t, StatusCancelled, job.Status())
	assert.True(t, api.wasAborted("fdve-1"))
	require.NoError(t, client.Cancel(ctx, job))
	require.ErrorIs(t, client.Wait(ctx, job), ErrJobCancelled)

	status, err := client.Poll(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, status)
}

func TestCancel_AfterSuccess(t *testing.T) {
	api := newFakeAPI("success")
	client := newTestClient(t, api)
	ctx := context.Background()

	job, err := client.Submit(ctx, quickstart(t), "q")
	require.NoError(t, err)
	require.NoError(t, client.Wait(ctx, job))

	require.ErrorIs(t, client.Cancel(ctx, job), ErrJobTerminal)
	assert.Equal(t, StatusSuccess, job.Status())
	assert.False(t, api.wasAborted("fdve-1"))
}

func TestAttach(t *testing.T) {
	api := newFakeAPI("running")
	client := newTestClient(t, api)

	job, err := client.Attach(context.Background(), "fdve-9")
	require.NoError(t, err)
	assert.Equal(t, "fdve-9", job.TaskID())
	assert.Equal(t, StatusRunning, job.Status())
}

func TestRunBatch(t *testing.T) {
	api := newFakeAPI("running", "success")
	client := newTestClient(t, api)
	dir := t.TempDir()

	sims := map[string]*simulation.Simulation{"a": quickstart(t), "b": quickstart(t), "c": quickstart(t)}
	results, err := client.RunBatch(context.Background(), sims, dir, 2)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for name := range sims {
		_, err := simdata.ReadFile(filepath.Join(dir, name+".json"))
		require.NoError(t, err, name)
	}
	assert.Equal(t, 3, api.createdCount())
}

func TestRunBatch_FirstErrorWins(t *testing.T) {
	api := newFakeAPI("success")
	api.failCode["POST /tasks"] = http.StatusPaymentRequired
	client := newTestClient(t, api)

	_, err := client.RunBatch(context.Background(), map[string]*simulation.Simulation{"a": quickstart(t)}, "", 0)
	var se *SubmissionError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), "a: ")
}

func TestHistory(t *testing.T) {
	api := newFakeAPI("success")
	history := &memoryHistory{}
	client := newTestClient(t, api, WithHistory(history))

	_, err := client.Submit(context.Background(), quickstart(t), "quickstart")
	require.NoError(t, err)

	recs, err := client.History(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, "fdve-1", recs[0].TaskID)

	plain := newTestClient(t, newFakeAPI("success"))
	recs, err = plain.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Nil(t, recs)
}
