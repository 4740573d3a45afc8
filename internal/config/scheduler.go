package config

import "time"

// Scheduler defines config settings for gofer scheduler. The scheduler is the backend for how containers are run.
type Scheduler struct {
	// The engine used by the scheduler
	// possible values are: docker
	Engine string  `hcl:"engine,optional"`
	Docker *Docker `hcl:"docker,block"`
}

func DefaultSchedulerConfig() *Scheduler {
	return &Scheduler{
		Engine: "docker",
		Docker: DefaultDockerConfig(),
	}
}

type Docker struct {
	// Prune runs a reoccurring `docker system prune` job to avoid filling the local disk with docker images.
	Prune bool `hcl:"prune,optional"`

	// The period of time in between runs of `docker system prune`.
	PruneIntervalSeconds int64 `split_words:"true" hcl:"prune_interval_seconds,optional"`
}

func DefaultDockerConfig() *Docker {
	return &Docker{
		Prune:                false,
		PruneIntervalSeconds: 86400,
	}
}

// PruneInterval is the configured prune period as a time.Duration.
func (c *Docker) PruneInterval() time.Duration {
	return time.Duration(c.PruneIntervalSeconds) * time.Second
}
