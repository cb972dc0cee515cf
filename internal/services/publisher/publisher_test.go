package publisherservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
)

type memCaptures struct {
	captures []models.CaptureRecord
}

func (m *memCaptures) Captures(sessionID string) ([]models.CaptureRecord, error) {
	var out []models.CaptureRecord
	for _, c := range m.captures {
		if c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, errs.ErrSessionNotFound
	}
	return out, nil
}

func (m *memCaptures) MarkPublished(sessionID, deviceID string) error {
	for i := range m.captures {
		if m.captures[i].SessionID == sessionID && m.captures[i].DeviceID == deviceID {
			m.captures[i].IsPublished = true
			return nil
		}
	}
	return errs.ErrSessionNotFound
}

type fakePublisher struct {
	calls []string
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, c models.CaptureRecord) error {
	f.calls = append(f.calls, c.DeviceID)
	return f.err
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestPublish(t *testing.T) {
	store := &memCaptures{captures: []models.CaptureRecord{
		{SessionID: "s1", DeviceID: "cam_a", VideoPath: "a.mp4"},
		{SessionID: "s1", DeviceID: "cam_b"},
		{SessionID: "s1", DeviceID: "cam_c", VideoPath: "c.mp4", IsPublished: true},
	}}
	pub := &fakePublisher{}

	s := New(discard, store, pub)

	published, err := s.Publish(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cam_a"}, published)
	assert.Equal(t, []string{"cam_a"}, pub.calls)
	assert.True(t, store.captures[0].IsPublished)

	_, err = s.Publish(context.Background(), "s1")
	assert.ErrorIs(t, err, errs.ErrNoVideo)

	_, err = s.Publish(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func TestPublish_Failure(t *testing.T) {
	store := &memCaptures{captures: []models.CaptureRecord{{SessionID: "s1", DeviceID: "cam_a", VideoPath: "a.mp4"}}}
	boom := errors.New("boom")

	_, err := New(discard, store, &fakePublisher{err: boom}).Publish(context.Background(), "s1")
	assert.ErrorIs(t, err, boom)
	assert.False(t, store.captures[0].IsPublished)

	_, err = New(discard, store, nil).Publish(context.Background(), "s1")
	assert.ErrorIs(t, err, errs.ErrPublisherDisabled)
}
