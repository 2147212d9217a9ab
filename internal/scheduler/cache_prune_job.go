package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/modules/simulation"
)

// CachePruneJob removes stale simulation results from the cache.
type CachePruneJob struct {
	cache  *simulation.ResultCache
	maxAge time.Duration
	log    zerolog.Logger
}

// NewCachePruneJob creates a new cache prune job
func NewCachePruneJob(cache *simulation.ResultCache, maxAge time.Duration, log zerolog.Logger) *CachePruneJob {
	return &CachePruneJob{
		cache:  cache,
		maxAge: maxAge,
		log:    log.With().Str("job", "cache_prune").Logger(),
	}
}

// Name returns the job name
func (j *CachePruneJob) Name() string {
	return "cache_prune"
}

// Run prunes expired cache entries
func (j *CachePruneJob) Run() error {
	pruned, err := j.cache.Prune(j.maxAge)
	if err != nil {
		return err
	}

	j.log.Info().Int("pruned", pruned).Msg("Result cache pruned")
	return nil
}
