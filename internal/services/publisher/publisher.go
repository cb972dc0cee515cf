package publisherservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
)

type Service struct {
	log       *slog.Logger
	captures  CaptureStorage
	publisher VideoPublisher
}

type CaptureStorage interface {
	Captures(sessionID string) ([]models.CaptureRecord, error)
	MarkPublished(sessionID, deviceID string) error
}

type VideoPublisher interface {
	Publish(ctx context.Context, capture models.CaptureRecord) error
}

// New returns a Service. A nil publisher makes every Publish call fail with
// ErrPublisherDisabled.
func New(log *slog.Logger, captures CaptureStorage, publisher VideoPublisher) *Service {
	return &Service{
		log:       log,
		captures:  captures,
		publisher: publisher,
	}
}

// Publish uploads every unpublished, assembled capture of a session and
// returns the device IDs that were published.
func (s *Service) Publish(ctx context.Context, sessionID string) ([]string, error) {
	const op = "service.publisher.Publish"

	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID),
	)

	if s.publisher == nil {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrPublisherDisabled)
	}

	captures, err := s.captures.Captures(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	published := make([]string, 0, len(captures))
	for _, c := range captures {
		if c.IsPublished {
			continue
		}
		if c.VideoPath == "" {
			log.Info("capture has no video, skipping", slog.String("device_id", c.DeviceID))
			continue
		}

		if err := s.publisher.Publish(ctx, c); err != nil {
			log.Error("failed to publish capture", slog.String("device_id", c.DeviceID), sl.Err(err))

			return published, fmt.Errorf("%s: %w", op, err)
		}

		if err := s.captures.MarkPublished(sessionID, c.DeviceID); err != nil {
			log.Error("failed to mark capture published", slog.String("device_id", c.DeviceID), sl.Err(err))

			return published, fmt.Errorf("%s: %w", op, err)
		}

		log.Info("capture published", slog.String("device_id", c.DeviceID))
		published = append(published, c.DeviceID)
	}

	if len(published) == 0 {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrNoVideo)
	}

	return published, nil
}
