package settingsservice

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zanzhit/timelapse_recorder/internal/domain/constants"
	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
)

// Settings holds the operator-editable capture parameters. Invalid input
// never fails a session; it falls back to the documented defaults.
type Settings struct {
	log *slog.Logger

	mu        sync.RWMutex
	interval  int
	framerate int
}

type Values struct {
	IntervalSeconds int `json:"interval_seconds"`
	Framerate       int `json:"framerate"`
}

func New(log *slog.Logger, interval, framerate int) *Settings {
	s := &Settings{log: log}
	s.interval, _ = positive(strconv.Itoa(interval), constants.DefaultInterval, constants.MaxInterval)
	s.framerate, _ = positive(strconv.Itoa(framerate), constants.DefaultFramerate, constants.MaxFramerate)

	return s
}

// SetInterval parses a snapshot interval in seconds.
func (s *Settings) SetInterval(raw string) error {
	const op = "service.settings.SetInterval"

	v, err := positive(raw, constants.DefaultInterval, constants.MaxInterval)

	s.mu.Lock()
	s.interval = v
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("invalid interval, using default", slog.String("op", op), slog.String("input", raw), slog.Int("default", v))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SetFramerate parses the output video framerate.
func (s *Settings) SetFramerate(raw string) error {
	const op = "service.settings.SetFramerate"

	v, err := positive(raw, constants.DefaultFramerate, constants.MaxFramerate)

	s.mu.Lock()
	s.framerate = v
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("invalid framerate, using default", slog.String("op", op), slog.String("input", raw), slog.Int("default", v))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Settings) Interval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return time.Duration(s.interval) * time.Second
}

func (s *Settings) Framerate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.framerate
}

func (s *Settings) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Values{IntervalSeconds: s.interval, Framerate: s.framerate}
}

// positive accepts whole numbers in [1, limit].
func positive(raw string, fallback, limit int) (int, error) {
	raw = strings.TrimSpace(raw)

	v, err := strconv.Atoi(raw)
	if err != nil {
		// Accept "5.0" the way an operator would type it.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != math.Trunc(f) || math.Abs(f) > float64(limit) {
			return fallback, fmt.Errorf("%w: %q is not a whole number up to %d", errs.ErrInvalidConfiguration, raw, limit)
		}
		v = int(f)
	}

	if v <= 0 {
		return fallback, fmt.Errorf("%w: %d must be positive", errs.ErrInvalidConfiguration, v)
	}

	if v > limit {
		return fallback, fmt.Errorf("%w: %d exceeds %d", errs.ErrInvalidConfiguration, v, limit)
	}

	return v, nil
}
