package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper drops in-process state whose lifetime has ended.
type Sweeper interface {
	Sweep(now time.Time) int
}

type Scheduler struct {
	cron     *cron.Cron
	sweepers map[string]Sweeper
	log      zerolog.Logger
	now      func() time.Time
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sweepers: make(map[string]Sweeper),
		log:      log,
		now:      time.Now,
	}
}

// AddSweeper registers s under name. Nil sweepers are ignored so callers can
// pass stores that are only in-memory in some deployments.
func (s *Scheduler) AddSweeper(name string, sw Sweeper) {
	if sw == nil {
		return
	}
	s.sweepers[name] = sw
}

func (s *Scheduler) Start() error {
	if len(s.sweepers) == 0 {
		return nil
	}

	if _, err := s.cron.AddFunc("0 * * * * *", s.SweepAll); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits up to five seconds for a running sweep.
func (s *Scheduler) Stop() {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(5 * time.Second):
	}
}

// SweepAll runs every registered sweeper once.
func (s *Scheduler) SweepAll() {
	now := s.now()
	for name, sw := range s.sweepers {
		if removed := sw.Sweep(now); removed > 0 {
			s.log.Debug().Str("store", name).Int("removed", removed).Msg("swept expired entries")
		}
	}
}
