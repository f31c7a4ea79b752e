package session

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/erazemk/vitrina/internal/metrics"
)

// Sweeper periodically removes expired sessions.
type Sweeper struct {
	sched *cron.Cron
	store Store
	log   zerolog.Logger
}

// NewSweeper schedules a sweep every interval. Call Start to run it.
func NewSweeper(store Store, interval time.Duration, log zerolog.Logger) (*Sweeper, error) {
	s := &Sweeper{sched: cron.New(), store: store, log: log}
	if _, err := s.sched.AddFunc(fmt.Sprintf("@every %s", interval), s.Sweep); err != nil {
		return nil, fmt.Errorf("scheduling session sweep: %w", err)
	}
	return s, nil
}

// Sweep runs one pass.
func (s *Sweeper) Sweep() {
	n, err := s.store.Sweep()
	if n > 0 {
		metrics.SessionsSweptTotal.Add(float64(n))
		s.log.Info().Int("removed", n).Msg("expired sessions swept")
	}
	if err != nil {
		s.log.Error().Err(err).Msg("session sweep failed")
	}
}

func (s *Sweeper) Start() {
	s.sched.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.sched.Stop().Done()
}
