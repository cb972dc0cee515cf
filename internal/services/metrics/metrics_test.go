package metricsservice

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	fsstorage "github.com/zanzhit/timelapse_recorder/internal/storage/fs"
)

type mockSource struct {
	session *models.Session
}

func (s *mockSource) State() models.CaptureState {
	if s.session == nil {
		return models.Idle
	}
	return models.Capturing
}

func (s *mockSource) Session() (models.Session, bool) {
	if s.session == nil {
		return models.Session{}, false
	}
	return *s.session, true
}

func TestCollect_Idle(t *testing.T) {
	r := New(slog.New(slog.NewTextHandler(io.Discard, nil)), &mockSource{}, fsstorage.New(), time.Second)

	snap := r.Collect(time.Now())
	assert.Equal(t, models.Idle, snap.State)
	assert.Equal(t, "00:00:00", snap.Elapsed)
	assert.Equal(t, "0 B", snap.TotalSize)
	assert.Empty(t, snap.Devices)
}

func TestCollect_ActiveSession(t *testing.T) {
	store := fsstorage.New()
	root := t.TempDir()
	startedAt := time.Date(2024, 6, 3, 10, 0, 0, 0, time.Local)

	session := &models.Session{SessionID: "abc", StartTime: startedAt}
	for id, sizes := range map[string][]int{"cam_a": {1000, 500}, "cam_b": {250}} {
		dir, err := store.Open(root, id, startedAt)
		require.NoError(t, err)
		for _, size := range sizes {
			_, err := store.Write(dir, make([]byte, size))
			require.NoError(t, err)
		}
		session.Captures = append(session.Captures, models.Capture{DeviceID: id, Dir: dir})
	}

	r := New(slog.New(slog.NewTextHandler(io.Discard, nil)), &mockSource{session: session}, store, time.Second)

	snap := r.Collect(startedAt.Add(time.Hour + 2*time.Minute + 3*time.Second + 400*time.Millisecond))
	assert.Equal(t, models.Capturing, snap.State)
	assert.Equal(t, "abc", snap.SessionID)
	assert.Equal(t, "01:02:03", snap.Elapsed)
	assert.Equal(t, 3, snap.Captures)
	assert.Equal(t, int64(1750), snap.TotalBytes)
	assert.Equal(t, "1.8 kB", snap.TotalSize)
	assert.Len(t, snap.Devices, 2)
}

func TestRun_PublishesToSubscribers(t *testing.T) {
	r := New(slog.New(slog.NewTextHandler(io.Discard, nil)), &mockSource{}, fsstorage.New(), 10*time.Millisecond)

	ch, cancel := r.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go r.Run(ctx)

	select {
	case snap := <-ch:
		assert.Equal(t, models.Idle, snap.State)
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}

	assert.False(t, r.Latest().UpdatedAt.IsZero())
}
