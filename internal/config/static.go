package config

// Static is a Provider backed by a fixed Config value. The host can replace
// the whole Config between decisions; individual reads are cheap value copies
// so there is no per-field locking.
type Static struct {
	Cfg Config

	backfilled map[int64]bool
	killswitch map[int64]bool
}

// NewStatic creates a Static provider from a loaded Config.
func NewStatic(cfg Config) *Static {
	s := &Static{Cfg: cfg}
	if len(cfg.BackfilledProjects) > 0 {
		s.backfilled = make(map[int64]bool, len(cfg.BackfilledProjects))
		for _, id := range cfg.BackfilledProjects {
			s.backfilled[id] = true
		}
	}
	if len(cfg.KillswitchProjects) > 0 {
		s.killswitch = make(map[int64]bool, len(cfg.KillswitchProjects))
		for _, id := range cfg.KillswitchProjects {
			s.killswitch[id] = true
		}
	}
	return s
}

func (s *Static) GlobalRateLimit() RateLimit  { return s.Cfg.Limits.Global }
func (s *Static) ProjectRateLimit() RateLimit { return s.Cfg.Limits.PerProject }
func (s *Static) BreakerConfig() Breaker      { return s.Cfg.Limits.Breaker }
func (s *Static) UseReranking() bool          { return s.Cfg.Similarity.UseReranking }
func (s *Static) MetricsSampleRate() float64  { return s.Cfg.Limits.MetricsSampleRate }
func (s *Static) MaxContributingFrames() int  { return s.Cfg.Limits.MaxFrames }
func (s *Static) NeighborCount() int          { return s.Cfg.Similarity.Neighbors }

func (s *Static) ProjectBackfilled(projectID int64) bool { return s.backfilled[projectID] }

// KillswitchActive reports whether the ingest killswitch is on for a project.
// Satisfies the gate's killswitch evaluator interface.
func (s *Static) KillswitchActive(projectID int64, referrer string, eventID string) bool {
	return s.killswitch[projectID]
}
