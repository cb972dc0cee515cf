package captureservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
)

type target struct {
	index    int
	deviceID string
	address  string
	dir      string
}

// captureLoop fetches one frame per target per tick until stop is closed.
// Cancellation is only observed between passes, never during a fetch.
type captureLoop struct {
	log      *slog.Logger
	fetcher  FrameFetcher
	store    SessionStore
	targets  []target
	interval time.Duration
	record   func(index int, frame models.Frame, err error)
	stop     chan struct{}
	done     chan struct{}
}

func (l *captureLoop) run() {
	defer close(l.done)

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		l.pass()

		timer := time.NewTimer(l.interval)
		select {
		case <-l.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (l *captureLoop) pass() {
	for _, t := range l.targets {
		data, err := l.fetcher.Fetch(context.Background(), t.address)
		if err != nil {
			l.log.Warn("skip device for this tick", slog.String("device_id", t.deviceID), sl.Err(err))

			l.record(t.index, models.Frame{}, err)

			continue
		}

		frame, err := l.store.Write(t.dir, data)
		if err != nil {
			l.log.Error("failed to write frame", slog.String("device_id", t.deviceID), sl.Err(err))

			l.record(t.index, models.Frame{}, err)

			continue
		}

		l.log.Debug("frame captured", slog.String("device_id", t.deviceID), slog.String("frame", frame.Name), slog.Int64("size", frame.Size))

		l.record(t.index, frame, nil)
	}
}
