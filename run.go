package fdtd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"fdtd-sdk/simdata"
	"fdtd-sdk/simulation"
)

// Run submits sim, waits for it to finish and returns the decoded result.
// When path is not empty the result is also written there (gzipped for .gz).
func (c *Client) Run(ctx context.Context, sim *simulation.Simulation, taskName, path string) (*simdata.SimulationData, error) {
	job, err := c.Submit(ctx, sim, taskName)
	if err != nil {
		return nil, err
	}
	if err := c.Wait(ctx, job); err != nil {
		return nil, err
	}
	data, err := c.Fetch(ctx, job)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := simdata.WriteFile(path, data); err != nil {
			return nil, err
		}
		c.record(ctx, job, path)
	}
	return data, nil
}

// RunBatch runs several simulations concurrently, at most limit at a time
// (unbounded when limit <= 0). Task names are the map keys. When dir is not
// empty each result is written to dir/<name>.json.
//
// The first failure cancels the runs that have not finished; their remote
// tasks are not aborted.
func (c *Client) RunBatch(ctx context.Context, sims map[string]*simulation.Simulation, dir string, limit int) (map[string]*simdata.SimulationData, error) {
	names := make([]string, 0, len(sims))
	for name := range sims {
		names = append(names, name)
	}
	sort.Strings(names)

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	var mu sync.Mutex
	results := make(map[string]*simdata.SimulationData, len(sims))
	for _, name := range names {
		name := name
		g.Go(func() error {
			path := ""
			if dir != "" {
				path = filepath.Join(dir, name+".json")
			}
			data, err := c.Run(ctx, sims[name], name, path)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			mu.Lock()
			results[name] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
