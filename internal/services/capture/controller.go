package captureservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v3"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
	fsstorage "github.com/zanzhit/timelapse_recorder/internal/storage/fs"
)

type FrameFetcher interface {
	Fetch(ctx context.Context, address string) ([]byte, error)
}

type SessionStore interface {
	Open(root, deviceID string, startedAt time.Time) (string, error)
	Write(sessionPath string, data []byte) (models.Frame, error)
	FramePaths(sessionPath string) ([]string, error)
}

type VideoAssembler interface {
	Assemble(ctx context.Context, frames []string, framerate int, output string) error
}

type SessionSaver interface {
	SaveSession(rec models.SessionRecord) error
}

type FramerateProvider interface {
	Framerate() int
}

// Controller owns the capture state and the active session. Start and Stop
// are serialized; readers go through State and Session.
type Controller struct {
	log       *slog.Logger
	fetcher   FrameFetcher
	store     SessionStore
	assembler VideoAssembler
	saver     SessionSaver
	settings  FramerateProvider
	root      string

	transition sync.Mutex

	mu      sync.RWMutex
	state   models.CaptureState
	session *models.Session
	loop    *captureLoop

	lastStart time.Time
}

func New(
	log *slog.Logger,
	fetcher FrameFetcher,
	store SessionStore,
	assembler VideoAssembler,
	saver SessionSaver,
	settings FramerateProvider,
	root string,
) *Controller {
	return &Controller{
		log:       log,
		fetcher:   fetcher,
		store:     store,
		assembler: assembler,
		saver:     saver,
		settings:  settings,
		root:      root,
		state:     models.Idle,
	}
}

func (c *Controller) Start(devices []models.Device, interval time.Duration) (models.Session, error) {
	const op = "service.capture.Start"

	log := c.log.With(
		slog.String("op", op),
		slog.Int("devices", len(devices)),
		slog.Duration("interval", interval),
	)

	c.transition.Lock()
	defer c.transition.Unlock()

	if c.State() == models.Capturing {
		log.Warn("capture is already running")

		return models.Session{}, fmt.Errorf("%s: %w", op, errs.ErrAlreadyCapturing)
	}

	if len(devices) == 0 {
		return models.Session{}, fmt.Errorf("%s: %w", op, errs.ErrNoDevicesSelected)
	}

	if interval <= 0 {
		return models.Session{}, fmt.Errorf("%s: %w", op, errs.ErrInvalidInterval)
	}

	// Session directories have second resolution; never reuse one.
	startedAt := time.Now()
	if last := c.lastStart.Truncate(time.Second); !startedAt.Truncate(time.Second).After(last) {
		startedAt = last.Add(time.Second)
	}

	session := &models.Session{
		SessionID: shortuuid.New(),
		StartTime: startedAt,
		Interval:  interval,
		Devices:   append([]models.Device(nil), devices...),
	}

	targets := make([]target, 0, len(devices))
	for i, d := range devices {
		dir, err := c.store.Open(c.root, d.DeviceID, startedAt)
		if err != nil {
			log.Error("failed to open session directory", slog.String("device_id", d.DeviceID), sl.Err(err))

			return models.Session{}, fmt.Errorf("%s: %w", op, err)
		}

		session.Captures = append(session.Captures, models.Capture{
			DeviceID: d.DeviceID,
			Address:  d.Address,
			Dir:      dir,
		})
		targets = append(targets, target{index: i, deviceID: d.DeviceID, address: d.Address, dir: dir})
	}

	loop := &captureLoop{
		log:      c.log.With(slog.String("session_id", session.SessionID)),
		fetcher:  c.fetcher,
		store:    c.store,
		targets:  targets,
		interval: interval,
		record:   c.recordFrame,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	c.mu.Lock()
	c.state = models.Capturing
	c.session = session
	c.loop = loop
	c.lastStart = startedAt
	snapshot := session.Clone()
	c.mu.Unlock()

	go loop.run()

	log.Info("capture started", slog.String("session_id", session.SessionID))

	return snapshot, nil
}

// Stop ends the active session and blocks until every device with frames has
// been assembled. The closed session is returned even when assembly fails.
func (c *Controller) Stop(ctx context.Context) (models.Session, error) {
	const op = "service.capture.Stop"

	log := c.log.With(
		slog.String("op", op),
	)

	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.RLock()
	state, loop := c.state, c.loop
	c.mu.RUnlock()

	if state != models.Capturing {
		return models.Session{}, fmt.Errorf("%s: %w", op, errs.ErrNotCapturing)
	}

	close(loop.stop)
	<-loop.done

	c.mu.Lock()
	c.session.StopTime = time.Now()
	closed := c.session.Clone()
	c.state = models.Idle
	c.session = nil
	c.loop = nil
	c.mu.Unlock()

	log = log.With(slog.String("session_id", closed.SessionID))
	log.Info("capture stopped", slog.Int("frames", closed.FrameCount()))

	var failures []error

	framerate := c.settings.Framerate()
	for i, capture := range closed.Captures {
		if len(capture.Frames) == 0 {
			log.Warn("no frames captured, skip assembly", slog.String("device_id", capture.DeviceID))

			continue
		}

		frames, err := c.store.FramePaths(capture.Dir)
		if err != nil {
			log.Error("failed to enumerate frames", slog.String("device_id", capture.DeviceID), sl.Err(err))

			failures = append(failures, fmt.Errorf("%s: %s: %w", op, capture.DeviceID, err))

			continue
		}

		output := filepath.Join(capture.Dir, VideoName(capture.DeviceID, closed.StartTime))
		if err := c.assembler.Assemble(ctx, frames, framerate, output); err != nil {
			log.Error("failed to assemble video", slog.String("device_id", capture.DeviceID), sl.Err(err))

			failures = append(failures, fmt.Errorf("%s: %s: %w", op, capture.DeviceID, err))

			continue
		}

		closed.Captures[i].VideoPath = output
	}

	if c.saver != nil {
		if err := c.saver.SaveSession(Record(closed)); err != nil {
			log.Error("failed to write session data", sl.Err(err))

			failures = append(failures, fmt.Errorf("%s: %w", op, errs.ErrWriteToDB))
		}
	}

	return closed, errors.Join(failures...)
}

// Close stops an active capture, if any.
func (c *Controller) Close(ctx context.Context) error {
	if _, err := c.Stop(ctx); err != nil && !errors.Is(err, errs.ErrNotCapturing) {
		return err
	}

	return nil
}

func (c *Controller) State() models.CaptureState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// Session returns a copy of the active session.
func (c *Controller) Session() (models.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return models.Session{}, false
	}

	return c.session.Clone(), true
}

func (c *Controller) recordFrame(index int, frame models.Frame, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return
	}

	capture := &c.session.Captures[index]
	if err != nil {
		capture.Failures++
		capture.LastError = err.Error()

		return
	}

	capture.Frames = append(capture.Frames, frame)
}

func VideoName(deviceID string, startedAt time.Time) string {
	return fmt.Sprintf("%s-%s.mp4", deviceID, startedAt.Format(fsstorage.SessionLayout))
}

func Record(s models.Session) models.SessionRecord {
	rec := models.SessionRecord{
		SessionID:       s.SessionID,
		StartTime:       s.StartTime,
		StopTime:        s.StopTime,
		IntervalSeconds: int(s.Interval / time.Second),
	}

	for _, c := range s.Captures {
		rec.Captures = append(rec.Captures, models.CaptureRecord{
			SessionID:  s.SessionID,
			DeviceID:   c.DeviceID,
			Dir:        c.Dir,
			FrameCount: len(c.Frames),
			TotalBytes: c.Bytes(),
			VideoPath:  c.VideoPath,
			StartTime:  s.StartTime,
			StopTime:   s.StopTime,
		})
	}

	return rec
}
