package metricsservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
)

type SessionSource interface {
	State() models.CaptureState
	Session() (models.Session, bool)
}

type StoreReader interface {
	Enumerate(sessionPath string) ([]string, error)
	TotalSize(sessionPath string) (int64, error)
}

type DeviceMetrics struct {
	DeviceID   string `json:"device_id"`
	Captures   int    `json:"captures"`
	TotalBytes int64  `json:"total_bytes"`
}

type Snapshot struct {
	State      models.CaptureState `json:"state"`
	SessionID  string              `json:"session_id,omitempty"`
	StartedAt  time.Time           `json:"started_at,omitempty"`
	Elapsed    string              `json:"elapsed"`
	Captures   int                 `json:"captures"`
	TotalBytes int64               `json:"total_bytes"`
	TotalSize  string              `json:"total_size"`
	Devices    []DeviceMetrics     `json:"devices,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Reporter refreshes a Snapshot at a fixed cadence and fans it out to subscribers.
type Reporter struct {
	log     *slog.Logger
	source  SessionSource
	store   StoreReader
	refresh time.Duration

	mu     sync.RWMutex
	latest Snapshot
	subs   map[chan Snapshot]struct{}
}

func New(log *slog.Logger, source SessionSource, store StoreReader, refresh time.Duration) *Reporter {
	return &Reporter{
		log:     log,
		source:  source,
		store:   store,
		refresh: refresh,
		subs:    make(map[chan Snapshot]struct{}),
	}
}

// Run blocks until ctx is done.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.refresh)
	defer ticker.Stop()

	r.publish(r.Collect(time.Now()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			r.publish(r.Collect(now))
		}
	}
}

func (r *Reporter) Collect(now time.Time) Snapshot {
	const op = "service.metrics.Collect"

	snap := Snapshot{
		State:     r.source.State(),
		Elapsed:   formatElapsed(0),
		TotalSize: humanize.Bytes(0),
		UpdatedAt: now,
	}

	session, ok := r.source.Session()
	if !ok {
		return snap
	}

	snap.SessionID = session.SessionID
	snap.StartedAt = session.StartTime
	snap.Elapsed = formatElapsed(now.Sub(session.StartTime))

	for _, c := range session.Captures {
		dm := DeviceMetrics{DeviceID: c.DeviceID}

		frames, err := r.store.Enumerate(c.Dir)
		if err != nil {
			r.log.Warn("failed to enumerate frames", slog.String("op", op), slog.String("device_id", c.DeviceID), sl.Err(err))
		}
		dm.Captures = len(frames)

		size, err := r.store.TotalSize(c.Dir)
		if err != nil {
			r.log.Warn("failed to compute size", slog.String("op", op), slog.String("device_id", c.DeviceID), sl.Err(err))
		}
		dm.TotalBytes = size

		snap.Captures += dm.Captures
		snap.TotalBytes += dm.TotalBytes
		snap.Devices = append(snap.Devices, dm)
	}

	snap.TotalSize = humanize.Bytes(uint64(snap.TotalBytes))

	return snap
}

func (r *Reporter) Latest() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.latest
}

// Subscribe returns a channel receiving every refreshed snapshot. Slow
// subscribers miss snapshots rather than block the reporter.
func (r *Reporter) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, ch)
			r.mu.Unlock()
		})
	}

	return ch, cancel
}

func (r *Reporter) publish(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.latest = snap
	for ch := range r.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
