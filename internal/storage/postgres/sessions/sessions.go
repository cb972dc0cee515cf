package sessionstorage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/storage/postgres"
)

type SessionStorage struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *SessionStorage {
	return &SessionStorage{
		db: db,
	}
}

const captureColumns = `c.session_id, c.device_id, c.dir_path, c.frame_count, c.total_bytes, c.video_path, c.is_published, s.start_time, s.stop_time`

func (s *SessionStorage) SaveSession(rec models.SessionRecord) (err error) {
	const op = "storage.postgres.sessions.SaveSession"

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := tx.Rebind(fmt.Sprintf(`INSERT INTO %s (session_id, start_time, stop_time, interval_seconds) VALUES (?, ?, ?, ?)`, postgres.SessionsTable))

	if _, err = tx.Exec(query, rec.SessionID, rec.StartTime, rec.StopTime, rec.IntervalSeconds); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query = tx.Rebind(fmt.Sprintf(`INSERT INTO %s (session_id, device_id, dir_path, frame_count, total_bytes, video_path, is_published)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, postgres.CapturesTable))

	for _, c := range rec.Captures {
		if _, err = tx.Exec(query, rec.SessionID, c.DeviceID, c.Dir, c.FrameCount, c.TotalBytes, c.VideoPath, false); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Sessions returns the most recent sessions with their captures.
func (s *SessionStorage) Sessions(limit int) ([]models.SessionRecord, error) {
	const op = "storage.postgres.sessions.Sessions"

	var sessions []models.SessionRecord
	query := s.db.Rebind(fmt.Sprintf(`SELECT session_id, start_time, stop_time, interval_seconds FROM %s
		ORDER BY start_time DESC LIMIT ?`, postgres.SessionsTable))

	if err := s.db.Select(&sessions, query, limit); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(sessions) == 0 {
		return sessions, nil
	}

	ids := make([]string, len(sessions))
	index := make(map[string]int, len(sessions))
	for i, rec := range sessions {
		ids[i] = rec.SessionID
		index[rec.SessionID] = i
	}

	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM %s c JOIN %s s ON s.session_id = c.session_id
		WHERE c.session_id IN (?) ORDER BY c.device_id`, captureColumns, postgres.CapturesTable, postgres.SessionsTable), ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var captures []models.CaptureRecord
	if err := s.db.Select(&captures, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, c := range captures {
		i := index[c.SessionID]
		sessions[i].Captures = append(sessions[i].Captures, c)
	}

	return sessions, nil
}

func (s *SessionStorage) Captures(sessionID string) ([]models.CaptureRecord, error) {
	const op = "storage.postgres.sessions.Captures"

	var captures []models.CaptureRecord
	query := s.db.Rebind(fmt.Sprintf(`SELECT %s FROM %s c JOIN %s s ON s.session_id = c.session_id
		WHERE c.session_id = ? ORDER BY c.device_id`, captureColumns, postgres.CapturesTable, postgres.SessionsTable))

	if err := s.db.Select(&captures, query, sessionID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(captures) == 0 {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrSessionNotFound)
	}

	return captures, nil
}

func (s *SessionStorage) Capture(sessionID, deviceID string) (models.CaptureRecord, error) {
	const op = "storage.postgres.sessions.Capture"

	var capture models.CaptureRecord
	query := s.db.Rebind(fmt.Sprintf(`SELECT %s FROM %s c JOIN %s s ON s.session_id = c.session_id
		WHERE c.session_id = ? AND c.device_id = ?`, captureColumns, postgres.CapturesTable, postgres.SessionsTable))

	if err := s.db.Get(&capture, query, sessionID, deviceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CaptureRecord{}, fmt.Errorf("%s: %w", op, errs.ErrSessionNotFound)
		}

		return models.CaptureRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	return capture, nil
}

func (s *SessionStorage) MarkPublished(sessionID, deviceID string) error {
	const op = "storage.postgres.sessions.MarkPublished"

	query := s.db.Rebind(fmt.Sprintf(`UPDATE %s SET is_published = ? WHERE session_id = ? AND device_id = ?`, postgres.CapturesTable))

	result, err := s.db.Exec(query, true, sessionID, deviceID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrSessionNotFound)
	}

	return nil
}
