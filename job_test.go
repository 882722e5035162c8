package fdtd

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdtd-sdk/models"
)

func TestRemoteStatus(t *testing.T) {
	cases := map[string]Status{
		"draft":       StatusCreated,
		"uploaded":    StatusQueued,
		"queued":      StatusQueued,
		"preprocess":  StatusQueued,
		"running":     StatusRunning,
		"postprocess": StatusRunning,
		"success":     StatusSuccess,
		"error":       StatusError,
		"diverged":    StatusError,
		"deleted":     StatusError,
		"abort":       StatusCancelled,
		"Cancelled":   StatusCancelled,
	}
	for remote, want := range cases {
		got, ok := RemoteStatus(remote)
		require.True(t, ok, remote)
		assert.Equal(t, want, got, remote)
	}
	_, ok := RemoteStatus("exploded")
	assert.False(t, ok)
}

func TestJob_TerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []Status{StatusSuccess, StatusError, StatusCancelled} {
		t.Run(string(terminal), func(t *testing.T) {
			j := newJob("t", nil)
			require.NoError(t, j.transition(terminal))
			assert.Equal(t, terminal, j.Status())
			history := j.History()

			require.NoError(t, j.transition(terminal))
			for _, next := range []Status{StatusCreated, StatusUploading, StatusQueued, StatusRunning, StatusSuccess, StatusError, StatusCancelled} {
				if next == terminal {
					continue
				}
				require.ErrorIs(t, j.transition(next), ErrJobTerminal, "%s -> %s", terminal, next)
			}
			assert.Equal(t, terminal, j.Status())
			assert.Equal(t, history, j.History())
		})
	}
}

func TestJob_StepsThroughIntermediateStates(t *testing.T) {
	j := newJob("t", nil)
	require.NoError(t, j.transition(StatusSuccess))
	assert.Equal(t, []Status{StatusCreated, StatusUploading, StatusQueued, StatusRunning, StatusSuccess}, j.History())

	j = newJob("t", nil)
	require.NoError(t, j.transition(StatusQueued))
	require.NoError(t, j.transition(StatusError))
	assert.Equal(t, []Status{StatusCreated, StatusUploading, StatusQueued, StatusError}, j.History())

	j = newJob("t", nil)
	require.NoError(t, j.transition(StatusCancelled))
	assert.Equal(t, []Status{StatusCreated, StatusCancelled}, j.History())
}

func TestJob_IgnoresBackwardMoves(t *testing.T) {
	j := newJob("t", nil)
	require.NoError(t, j.transition(StatusRunning))
	require.NoError(t, j.transition(StatusQueued))
	assert.Equal(t, StatusRunning, j.Status())
	require.Error(t, j.transition(Status("paused")))
}

func TestJob_Apply(t *testing.T) {
	msg := "out of memory"
	j := newJob("t", nil)
	status, err := j.apply(&models.TaskInfo{TaskID: "x", Status: "error", ErrorMessage: &msg})
	require.NoError(t, err)
	assert.Equal(t, StatusError, status)
	assert.Equal(t, msg, j.ErrorMessage())
	assert.Equal(t, "error", j.RemoteStatus())

	_, err = j.apply(&models.TaskInfo{TaskID: "x", Status: "success"})
	require.ErrorIs(t, err, ErrJobTerminal)

	_, err = newJob("t", nil).apply(&models.TaskInfo{TaskID: "x", Status: "warping"})
	require.Error(t, err)
}

func TestJob_ConcurrentTransitions(t *testing.T) {
	j := newJob("t", nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				j.transition(StatusSuccess)
			} else {
				j.transition(StatusCancelled)
			}
		}(i)
	}
	wg.Wait()

	final := j.Status()
	require.True(t, final.IsTerminal())
	history := j.History()
	assert.Equal(t, final, history[len(history)-1])
	terminals := 0
	for _, s := range history {
		if s.IsTerminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
}
