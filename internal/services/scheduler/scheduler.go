package schedulerservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
)

type Capturer interface {
	Start(devices []models.Device, interval time.Duration) (models.Session, error)
	Stop(ctx context.Context) (models.Session, error)
	State() models.CaptureState
}

type DeviceProvider interface {
	Selected() []models.Device
}

type IntervalProvider interface {
	Interval() time.Duration
}

// Scheduler drives the capturer from a daily time-of-day window. A manual
// stop inside the window suppresses automatic restarts until the window is
// left and entered again.
type Scheduler struct {
	log      *slog.Logger
	capturer Capturer
	devices  DeviceProvider
	settings IntervalProvider
	cadence  time.Duration
	now      func() time.Time

	mu         sync.Mutex
	window     models.ScheduleWindow
	engaged    bool
	manualStop bool
	wasInside  bool
	cancel     context.CancelFunc
	done       chan struct{}
}

func New(
	log *slog.Logger,
	capturer Capturer,
	devices DeviceProvider,
	settings IntervalProvider,
	window models.ScheduleWindow,
	cadence time.Duration,
) *Scheduler {
	return &Scheduler{
		log:      log,
		capturer: capturer,
		devices:  devices,
		settings: settings,
		cadence:  cadence,
		now:      time.Now,
		window:   window,
	}
}

// Check evaluates the window once against now.
func (s *Scheduler) Check(ctx context.Context, now time.Time) {
	const op = "service.scheduler.Check"

	log := s.log.With(
		slog.String("op", op),
		slog.String("now", models.TimeOfDayOf(now).String()),
	)

	s.mu.Lock()
	if !s.engaged {
		s.mu.Unlock()
		return
	}

	inside := s.window.Contains(models.TimeOfDayOf(now))
	if inside && !s.wasInside {
		s.manualStop = false
	}
	s.wasInside = inside
	suppressed := s.manualStop
	s.mu.Unlock()

	state := s.capturer.State()

	switch {
	case inside && state == models.Idle && !suppressed:
		log.Info("window opened, start capture")

		if _, err := s.capturer.Start(s.devices.Selected(), s.settings.Interval()); err != nil {
			log.Error("failed to start capture", sl.Err(err))
		}
	case !inside && state == models.Capturing:
		log.Info("window closed, stop capture")

		if _, err := s.capturer.Stop(ctx); err != nil && !errors.Is(err, errs.ErrNotCapturing) {
			log.Error("failed to stop capture", sl.Err(err))
		}
	}
}

// Toggle engages the schedule with the operator's 12-hour window, or
// disengages it when already engaged.
func (s *Scheduler) Toggle(ctx context.Context, start, end models.ClockInput) (models.ScheduleStatus, error) {
	const op = "service.scheduler.Toggle"

	if s.Engaged() {
		s.Disengage(ctx)

		return s.Status(), nil
	}

	from, err := start.TimeOfDay()
	if err != nil {
		return s.Status(), fmt.Errorf("%s: %w: %w", op, errs.ErrInvalidConfiguration, err)
	}

	to, err := end.TimeOfDay()
	if err != nil {
		return s.Status(), fmt.Errorf("%s: %w: %w", op, errs.ErrInvalidConfiguration, err)
	}

	if err := s.Engage(models.ScheduleWindow{Start: from, End: to}); err != nil {
		return s.Status(), fmt.Errorf("%s: %w", op, err)
	}

	return s.Status(), nil
}

// Engage arms the periodic check. It does not start capture by itself.
func (s *Scheduler) Engage(window models.ScheduleWindow) error {
	const op = "service.scheduler.Engage"

	log := s.log.With(
		slog.String("op", op),
		slog.String("start", window.Start.String()),
		slog.String("end", window.End.String()),
	)

	if window.Overnight() {
		log.Warn("overnight windows are not supported")

		return fmt.Errorf("%s: %w", op, errs.ErrOvernightWindow)
	}

	s.mu.Lock()
	if s.engaged {
		s.mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.window = window
	s.engaged = true
	s.manualStop = false
	s.wasInside = false
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	log.Info("schedule engaged")

	ready := make(chan struct{})
	go s.run(ctx, ready, done)
	<-ready

	return nil
}

// Disengage cancels the periodic check and stops an active capture.
func (s *Scheduler) Disengage(ctx context.Context) {
	const op = "service.scheduler.Disengage"

	log := s.log.With(
		slog.String("op", op),
	)

	s.mu.Lock()
	if !s.engaged {
		s.mu.Unlock()
		return
	}

	s.engaged = false
	s.manualStop = false
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	cancel()
	<-done

	if s.capturer.State() == models.Capturing {
		if _, err := s.capturer.Stop(ctx); err != nil && !errors.Is(err, errs.ErrNotCapturing) {
			log.Error("failed to stop capture", sl.Err(err))
		}
	}

	log.Info("schedule disengaged")
}

// ManualStart is rejected while the schedule is engaged.
func (s *Scheduler) ManualStart() (models.Session, error) {
	const op = "service.scheduler.ManualStart"

	if s.Engaged() {
		return models.Session{}, fmt.Errorf("%s: %w", op, errs.ErrScheduleEngaged)
	}

	session, err := s.capturer.Start(s.devices.Selected(), s.settings.Interval())
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return session, nil
}

// ManualStop stops capture; while engaged it also suppresses the automatic
// restart for the rest of the current window.
func (s *Scheduler) ManualStop(ctx context.Context) (models.Session, error) {
	const op = "service.scheduler.ManualStop"

	s.mu.Lock()
	previous := s.manualStop
	if s.engaged {
		s.manualStop = true
	}
	s.mu.Unlock()

	session, err := s.capturer.Stop(ctx)
	if errors.Is(err, errs.ErrNotCapturing) {
		s.mu.Lock()
		s.manualStop = previous
		s.mu.Unlock()
	}
	if err != nil {
		return session, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("capture stopped manually", slog.String("op", op), slog.String("session_id", session.SessionID))

	return session, nil
}

func (s *Scheduler) Engaged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.engaged
}

func (s *Scheduler) Status() models.ScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.ScheduleStatus{
		Window:     s.window,
		Engaged:    s.engaged,
		ManualStop: s.manualStop,
		Inside:     s.window.Contains(models.TimeOfDayOf(s.now())),
	}
}

// run owns every check of one engagement, the first included, so that
// Disengage waiting on done also waits for a start racing with it.
func (s *Scheduler) run(ctx context.Context, ready, done chan struct{}) {
	defer close(done)

	// Stops must finish assembling even after the schedule is disengaged.
	stopCtx := context.WithoutCancel(ctx)

	s.Check(stopCtx, s.now())
	close(ready)

	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(stopCtx, s.now())
		}
	}
}
