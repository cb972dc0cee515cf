package fsstorage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
)

const (
	SessionLayout = "2006-01-02_15-04-05"
	frameLayout   = "2006-01-02_15-04-05.000"
	FrameExt      = ".jpeg"
)

// SessionStore keeps frames under <root>/<device-id>/<session-timestamp>/.
type SessionStore struct {
	mu    sync.Mutex
	seq   map[string]int
	epoch time.Time
}

func New() *SessionStore {
	return &SessionStore{
		seq:   make(map[string]int),
		epoch: time.Now(),
	}
}

func (s *SessionStore) Open(root, deviceID string, startedAt time.Time) (string, error) {
	const op = "storage.fs.Open"

	sessionPath := filepath.Join(root, deviceID, startedAt.Format(SessionLayout))

	if err := os.MkdirAll(sessionPath, os.ModePerm); err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
	}

	frames, err := s.Enumerate(sessionPath)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	if s.seq[sessionPath] < len(frames) {
		s.seq[sessionPath] = len(frames)
	}
	s.mu.Unlock()

	return sessionPath, nil
}

func (s *SessionStore) Write(sessionPath string, data []byte) (models.Frame, error) {
	const op = "storage.fs.Write"

	deviceID := filepath.Base(filepath.Dir(sessionPath))
	capturedAt := s.now()

	s.mu.Lock()
	s.seq[sessionPath]++
	seq := s.seq[sessionPath]
	s.mu.Unlock()

	name := frameName(deviceID, capturedAt, seq)
	framePath := filepath.Join(sessionPath, name)

	tmp := framePath + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return models.Frame{}, fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
	}

	if err := os.Rename(tmp, framePath); err != nil {
		os.Remove(tmp)

		return models.Frame{}, fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
	}

	return models.Frame{
		DeviceID:   deviceID,
		Name:       name,
		Path:       framePath,
		CapturedAt: capturedAt,
		Size:       int64(len(data)),
	}, nil
}

// Enumerate lists frame names in capture order.
func (s *SessionStore) Enumerate(sessionPath string) ([]string, error) {
	const op = "storage.fs.Enumerate"

	entries, err := os.ReadDir(sessionPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
	}

	frames := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FrameExt) {
			continue
		}
		frames = append(frames, e.Name())
	}

	sort.Strings(frames)

	return frames, nil
}

func (s *SessionStore) TotalSize(sessionPath string) (int64, error) {
	const op = "storage.fs.TotalSize"

	frames, err := s.Enumerate(sessionPath)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var total int64
	for _, name := range frames {
		info, err := os.Stat(filepath.Join(sessionPath, name))
		if err != nil {
			return 0, fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
		}
		total += info.Size()
	}

	return total, nil
}

// FramePaths resolves frame names to full paths in capture order.
func (s *SessionStore) FramePaths(sessionPath string) ([]string, error) {
	frames, err := s.Enumerate(sessionPath)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(frames))
	for i, name := range frames {
		paths[i] = filepath.Join(sessionPath, name)
	}

	return paths, nil
}

// frameName stamps frames in UTC so lexical order matches capture order
// across DST changes.
func frameName(deviceID string, capturedAt time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%06d%s", deviceID, capturedAt.UTC().Format(frameLayout), seq, FrameExt)
}

// now reads the wall clock through the monotonic clock so frame names never run backwards.
func (s *SessionStore) now() time.Time {
	return s.epoch.Add(time.Since(s.epoch))
}
