// Package scheduler runs the library scanner on a wall-clock schedule:
// sleep until the next minute boundary, test the configured
// minute/hour/day-of-week sets, and launch a scan in the background on
// a match. Grounded on the sleep-until-boundary loop
// banux-nxt-opds/main.go uses for its own nightly backup goroutine,
// generalized from a fixed daily trigger to spec.md §4.D's three
// independent schedule sets.
package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/errcodes"
)

// Service runs Scan on the schedule described by cfg.
type Service struct {
	cfg  config.ScannerConfig
	scan func(ctx context.Context) error
	log  logger.Logger
}

// Validate checks a ScannerConfig's schedule sets against spec.md
// §4.D's bounds: minutes in [0,59], hours in [0,23], days in [1,7]
// (Monday=1..Sunday=7). An empty set means "every value", so only
// present entries are range-checked.
func Validate(cfg config.ScannerConfig) error {
	for _, m := range cfg.ScheduleMinutes {
		if m < 0 || m > 59 {
			return errors.Errorf("scheduler: invalid schedule minute %d", m)
		}
	}
	for _, h := range cfg.ScheduleHours {
		if h < 0 || h > 23 {
			return errors.Errorf("scheduler: invalid schedule hour %d", h)
		}
	}
	for _, d := range cfg.ScheduleDayOfWeek {
		if d < 1 || d > 7 {
			return errors.Errorf("scheduler: invalid schedule day_of_week %d", d)
		}
	}
	return nil
}

// NewService validates cfg and builds a Service that drives scan on a
// match. scan is usually (*scanner.Service).Run wrapped to discard its
// stats, since the scheduler only cares whether it ran.
func NewService(cfg config.ScannerConfig, scan func(ctx context.Context) error, log logger.Logger) (*Service, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, scan: scan, log: log}, nil
}

// Run blocks, firing a scan in a background goroutine each time the
// wall clock crosses a configured minute/hour/day-of-week, until ctx
// is canceled.
func (svc *Service) Run(ctx context.Context) {
	log := svc.log.Root(logger.Data{"component": "scheduler"})
	for {
		next := nextMinuteBoundary(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}

		now := time.Now()
		if !matches(svc.cfg, now) {
			continue
		}

		go func() {
			if err := svc.scan(ctx); err != nil {
				if isAlreadyRunning(err) {
					log.Info("scheduled scan skipped: already running")
					return
				}
				log.Err(err).Error("scheduled scan failed")
			}
		}()
	}
}

func nextMinuteBoundary(t time.Time) time.Time {
	return t.Truncate(time.Minute).Add(time.Minute)
}

func matches(cfg config.ScannerConfig, t time.Time) bool {
	return matchSet(cfg.ScheduleMinutes, t.Minute()) &&
		matchSet(cfg.ScheduleHours, t.Hour()) &&
		matchSet(cfg.ScheduleDayOfWeek, isoWeekday(t))
}

func matchSet(set []int, v int) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// isoWeekday converts time.Weekday (Sunday=0) to spec.md §4.D's
// Monday=1..Sunday=7 numbering.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func isAlreadyRunning(err error) bool {
	var ce *errcodes.Error
	return errors.As(err, &ce) && ce.Code == "already_running"
}
