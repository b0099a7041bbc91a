package cron

import (
	"context"
	"time"
)

// Job represents a scheduled task that runs inside the notification worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Periodic is implemented by jobs that should run less often than the
// service tick. Jobs without it run on every tick.
type Periodic interface {
	Every() time.Duration
}

type entry struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry tracks registered jobs and when each last ran.
type Registry struct {
	entries []*entry
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job to the registry.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	e := &entry{job: job}
	if p, ok := job.(Periodic); ok {
		e.every = p.Every()
	}
	r.entries = append(r.entries, e)
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		jobs = append(jobs, e.job)
	}
	return jobs
}

// due returns the jobs whose cadence has elapsed at now and stamps them as run.
func (r *Registry) due(now time.Time) []Job {
	var jobs []Job
	for _, e := range r.entries {
		if e.every > 0 && !e.lastRun.IsZero() && now.Sub(e.lastRun) < e.every {
			continue
		}
		e.lastRun = now
		jobs = append(jobs, e.job)
	}
	return jobs
}
