package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/omarwh/finsent/internal/analysis"
	"github.com/omarwh/finsent/internal/domain"
	"github.com/omarwh/finsent/internal/logger"
	"github.com/omarwh/finsent/internal/repository"
	"github.com/omarwh/finsent/internal/source"
)

// scheduleTimePattern matches a 24-hour "HH:MM" wall clock time.
var scheduleTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// ValidScheduleTime reports whether value is a well-formed "HH:MM" time.
func ValidScheduleTime(value string) bool {
	return scheduleTimePattern.MatchString(value)
}

// parseScheduleTime splits a validated "HH:MM" string.
func parseScheduleTime(value string) (hour, minute int, err error) {
	if !ValidScheduleTime(value) {
		return 0, 0, fmt.Errorf("invalid time format %q, use 'HH:MM'", value)
	}
	parts := strings.SplitN(value, ":", 2)
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	return hour, minute, nil
}

// Scheduler fires one pipeline run per day at a configurable UTC time.
// The active schedule can be changed while the timer is pending.
type Scheduler struct {
	runner      *Runner
	registry    *source.Registry
	config      *repository.ConfigRepository
	defaultCfg  analysis.Config
	defaultTime string
	log         *logger.Logger

	reschedule chan string
	now        func() time.Time
}

// NewScheduler creates a Scheduler.
// Parameters:
//   - runner: job controller the scheduler triggers.
//   - registry: source registry; scheduled runs use every source.
//   - config: persistent store for the schedule time.
//   - defaultCfg: LLM configuration for scheduled runs.
//   - defaultTime: "HH:MM" used when no schedule is persisted yet.
//   - log: structured logger.
// Returns:
//   - *Scheduler: configured scheduler; call Start to arm it.
func NewScheduler(
	runner *Runner,
	registry *source.Registry,
	config *repository.ConfigRepository,
	defaultCfg analysis.Config,
	defaultTime string,
	log *logger.Logger,
) *Scheduler {
	if !ValidScheduleTime(defaultTime) {
		defaultTime = "01:00"
	}
	return &Scheduler{
		runner:      runner,
		registry:    registry,
		config:      config,
		defaultCfg:  defaultCfg,
		defaultTime: defaultTime,
		log:         log,
		reschedule:  make(chan string, 1),
		now:         time.Now,
	}
}

// Start loads the persisted schedule time and runs the timer loop until
// ctx is canceled.
// Parameters:
//   - ctx: lifetime of the scheduler goroutine.
// Returns:
//   - error: non-nil when the persisted schedule cannot be loaded.
func (s *Scheduler) Start(ctx context.Context) error {
	stored, err := s.config.Get(ctx, domain.ConfigKeyScheduleTime, s.defaultTime)
	if err != nil {
		return fmt.Errorf("failed to load schedule time: %w", err)
	}
	hour, minute, err := parseScheduleTime(stored)
	if err != nil {
		// A corrupt stored value falls back to the default rather than
		// leaving the daily run unscheduled.
		s.log.WithError(err).Warnf("Stored schedule time is invalid, using %s", s.defaultTime)
		stored = s.defaultTime
		hour, minute, _ = parseScheduleTime(stored)
	}

	// Seed app_config so the effective schedule survives restarts and is
	// visible to operators even before the first update request.
	if err := s.config.Set(ctx, domain.ConfigKeyScheduleTime, stored); err != nil {
		s.log.WithError(err).Warn("Failed to persist schedule time")
	}

	s.log.Infof("Pipeline scheduler started, next run scheduled for %s UTC daily", stored)
	go s.loop(ctx, hour, minute)
	return nil
}

// SetScheduleTime validates, persists and applies a new daily time.
// Parameters:
//   - ctx: context for the persistence write.
//   - value: new "HH:MM" UTC time.
// Returns:
//   - error: non-nil when the value is malformed or persistence fails.
func (s *Scheduler) SetScheduleTime(ctx context.Context, value string) error {
	if _, _, err := parseScheduleTime(value); err != nil {
		return err
	}
	if err := s.config.Set(ctx, domain.ConfigKeyScheduleTime, value); err != nil {
		return fmt.Errorf("failed to persist schedule time: %w", err)
	}

	// Replace any pending reschedule; only the latest value matters.
	select {
	case <-s.reschedule:
	default:
	}
	s.reschedule <- value
	return nil
}

func (s *Scheduler) loop(ctx context.Context, hour, minute int) {
	for {
		fireAt := nextFireTime(s.now().UTC(), hour, minute)
		timer := time.NewTimer(fireAt.Sub(s.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case value := <-s.reschedule:
			timer.Stop()
			if h, m, err := parseScheduleTime(value); err == nil {
				hour, minute = h, m
				s.log.Infof("Pipeline schedule updated to %s UTC", value)
			}

		case <-timer.C:
			s.fire()
		}
	}
}

// fire triggers a scheduled run over every registered source. An
// already-running pipeline wins; the scheduled run is skipped, not
// queued.
func (s *Scheduler) fire() {
	sources := s.registry.All()
	if len(sources) == 0 {
		s.log.Warn("Scheduled run aborted: no sources registered")
		return
	}
	if err := s.runner.Trigger(sources, s.defaultCfg); err != nil {
		s.log.WithError(err).Info("Scheduled run skipped")
		return
	}
	s.log.Info("Scheduled pipeline run started")
}

// nextFireTime computes the next daily occurrence of hour:minute after
// now. A fire time equal to now schedules for tomorrow.
func nextFireTime(now time.Time, hour, minute int) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}
