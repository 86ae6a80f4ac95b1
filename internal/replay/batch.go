package replay

import (
	"context"
	"sync"

	"github.com/plife507/TRADE-sub002/internal/models"
	"github.com/plife507/TRADE-sub002/internal/pool"
)

// SeriesJob is one independent series to replay: its bars plus a factory
// for a fresh runner. Runners hold detector state, so each job must build
// its own.
type SeriesJob struct {
	Symbol    string
	Bars      []models.Bar
	NewRunner func() (*Runner, error)
}

// SeriesResult pairs a job's symbol with its outcome.
type SeriesResult struct {
	Symbol  string
	Samples []Sample
	Err     error
}

// RunBatch replays independent series concurrently on a worker pool and
// returns results in job order. One failed series does not stop the rest.
func RunBatch(ctx context.Context, jobs []SeriesJob, workers int) []SeriesResult {
	results := make([]SeriesResult, len(jobs))

	p := pool.NewWorkerPool(workers)
	p.Start()
	defer p.Stop()

	var wg sync.WaitGroup
	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)
		ok := p.Submit(func() {
			defer wg.Done()
			results[i] = runSeries(ctx, job)
		})
		if !ok {
			wg.Done()
			results[i] = SeriesResult{Symbol: job.Symbol, Err: context.Canceled}
		}
	}
	wg.Wait()

	return results
}

func runSeries(ctx context.Context, job SeriesJob) SeriesResult {
	runner, err := job.NewRunner()
	if err != nil {
		return SeriesResult{Symbol: job.Symbol, Err: err}
	}
	samples, err := runner.Run(ctx, job.Bars)
	return SeriesResult{Symbol: job.Symbol, Samples: samples, Err: err}
}
