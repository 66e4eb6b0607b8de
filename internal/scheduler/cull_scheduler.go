// Package scheduler periodically kicks a cull cycle, grounded on
// frnd1406-NasServer's scheduler/cron.go (robfig/cron/v3 parser configured
// for minute/hour/dom/month/dow, stop-then-restart-on-reconfigure pattern),
// generalized from a backup-creation job to a cull.Engine.Kick job.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/kenneth/cyphertite-go/internal/cull"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CullScheduler runs cull.Engine.Kick on a cron schedule. An empty schedule
// disables periodic culling entirely; Start then does nothing but is still
// safe to call.
type CullScheduler struct {
	mu     sync.Mutex
	engine *cull.Engine
	log    *logrus.Entry
	runner *cron.Cron
}

// NewCullScheduler constructs a scheduler for engine.
func NewCullScheduler(engine *cull.Engine, log *logrus.Entry) *CullScheduler {
	return &CullScheduler{engine: engine, log: log}
}

// Start parses schedule and begins running cull cycles on it. Calling Start
// again with a new schedule stops the previous cron runner first, the same
// way RestartScheduler/startLocked do in the teacher.
func (s *CullScheduler) Start(schedule string) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil
	}
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cull schedule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runner != nil {
		ctx := s.runner.Stop()
		<-ctx.Done()
	}

	s.runner = cron.New(cron.WithParser(cronParser))
	engine := s.engine
	log := s.log

	if _, err := s.runner.AddFunc(schedule, func() {
		runCullJob(engine, log)
	}); err != nil {
		return fmt.Errorf("register cull job: %w", err)
	}

	s.runner.Start()
	if log != nil {
		log.WithField("schedule", schedule).Info("cull scheduler started")
	}
	return nil
}

// Stop halts the cron runner, if any, waiting for any in-flight cull cycle
// to finish.
func (s *CullScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return
	}
	ctx := s.runner.Stop()
	<-ctx.Done()
	s.runner = nil
}

func runCullJob(engine *cull.Engine, log *logrus.Entry) {
	if engine == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if log != nil {
		log.Info("running scheduled cull cycle")
	}
	if err := engine.Kick(ctx); err != nil {
		if log != nil {
			log.WithError(err).Error("scheduled cull cycle failed")
		}
		return
	}
	if log != nil {
		log.Info("scheduled cull cycle complete")
	}
}
