package analytics

import (
	"context"
	"sync"
)

// Dashboard fans out the five independent project analytics concurrently
// and joins before responding. There are no partial results: the first
// failure wins and the whole dashboard errors.
func (e *Engine) Dashboard(ctx context.Context, projectID string, sprintCount int) (*Dashboard, error) {
	start := e.now()
	d, err := e.dashboard(ctx, projectID, sprintCount)
	e.observe("dashboard", start, err)
	return d, err
}

func (e *Engine) dashboard(ctx context.Context, projectID string, sprintCount int) (*Dashboard, error) {
	d := &Dashboard{ProjectID: projectID}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	run := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	run(func() (err error) {
		d.VelocityTrends, err = e.velocityTrends(ctx, projectID)
		return err
	})
	run(func() (err error) {
		d.Forecast, err = e.velocityForecast(ctx, projectID, ForecastInput{})
		return err
	})
	run(func() (err error) {
		d.TeamComparison, err = e.teamComparison(ctx, projectID, sprintCount)
		return err
	})
	run(func() (err error) {
		d.CycleTime, err = e.cycleTimeMetrics(ctx, projectID, sprintCount)
		return err
	})
	run(func() (err error) {
		d.Throughput, err = e.throughputMetrics(ctx, projectID, sprintCount)
		return err
	})

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	d.LastUpdated = e.now()
	return d, nil
}
