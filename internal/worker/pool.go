// Package worker provides background feature enrichment for local-store
// tracks.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
	"github.com/soundslike-labs/moodqueue/internal/core/ports"
)

// Job asks for one track's features to be estimated and stored.
type Job struct {
	Track domain.Track
}

// Pool runs enrichment jobs on a bounded queue. Jobs are best-effort:
// failures are logged and dropped, never re-queued.
type Pool struct {
	library   ports.LocalLibrary
	estimator ports.FeatureEstimator
	logger    *slog.Logger
	jobs      chan Job
	wg        sync.WaitGroup
}

// NewPool creates a pool with the given queue size.
func NewPool(library ports.LocalLibrary, estimator ports.FeatureEstimator, logger *slog.Logger, queueSize int) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		library:   library,
		estimator: estimator,
		logger:    logger,
		jobs:      make(chan Job, queueSize),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Submit queues a job without blocking; when the queue is full the job is
// dropped and logged.
func (p *Pool) Submit(job Job) {
	select {
	case p.jobs <- job:
	default:
		p.logger.Warn("worker: queue full, dropping job", "track", job.Track.ID)
	}
}

func (p *Pool) processJob(job Job) {
	ctx := context.Background()
	track := job.Track

	features := track.Features
	if features.IsZero() && p.estimator != nil {
		estimated := map[string]domain.AudioFeatures{}
		p.estimator.Estimate(ctx, []domain.Track{track}, estimated)
		if f, ok := estimated[track.ID]; ok {
			features = f
		}
	}
	if features.IsZero() {
		p.logger.Warn("worker: no features estimated, skipping", "track", track.ID)
		return
	}

	// A preview clip gives a measured energy value that beats the estimate.
	if track.PreviewURL != "" {
		if energy, err := AnalyzePreviewFunc(track.PreviewURL); err != nil {
			p.logger.Warn("worker: preview analysis failed", "track", track.ID, "error", err)
		} else {
			features.Energy = energy
		}
	}

	if err := p.library.UpdateFeatures(ctx, track.ID, features); err != nil {
		p.logger.Warn("worker: failed to store features", "track", track.ID, "error", err)
		return
	}
	p.logger.Debug("worker: enriched track", "track", track.ID)
}
