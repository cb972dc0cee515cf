package capturehandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
)

type fakeManual struct {
	session models.Session
	err     error

	// onStop runs inside ManualStop, while the request is being served.
	onStop  func()
	stopCtx context.Context
}

func (f *fakeManual) ManualStart() (models.Session, error) { return f.session, f.err }

func (f *fakeManual) ManualStop(ctx context.Context) (models.Session, error) {
	if f.onStop != nil {
		f.onStop()
	}
	f.stopCtx = ctx
	return f.session, f.err
}

type fakeState struct {
	session *models.Session
}

func (f fakeState) State() models.CaptureState {
	if f.session != nil {
		return models.Capturing
	}
	return models.Idle
}

func (f fakeState) Session() (models.Session, bool) {
	if f.session == nil {
		return models.Session{}, false
	}
	return *f.session, true
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestStart(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "ok", want: http.StatusCreated},
		{name: "already capturing", err: fmt.Errorf("x: %w", errs.ErrAlreadyCapturing), want: http.StatusConflict},
		{name: "engaged", err: errs.ErrScheduleEngaged, want: http.StatusConflict},
		{name: "no devices", err: errs.ErrNoDevicesSelected, want: http.StatusBadRequest},
		{name: "interval", err: errs.ErrInvalidInterval, want: http.StatusBadRequest},
		{name: "storage", err: errs.ErrStorage, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(discard, &fakeManual{session: models.Session{SessionID: "s1"}, err: tt.err}, fakeState{})

			rec := httptest.NewRecorder()
			h.Start(rec, httptest.NewRequest(http.MethodPost, "/capture/start", nil))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestStop(t *testing.T) {
	h := New(discard, &fakeManual{err: errs.ErrNotCapturing}, fakeState{})
	rec := httptest.NewRecorder()
	h.Stop(rec, httptest.NewRequest(http.MethodPost, "/capture/stop", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	encodeErr := errors.Join(&errs.EncodingFailedError{ExitCode: 1})
	h = New(discard, &fakeManual{session: models.Session{SessionID: "s1"}, err: encodeErr}, fakeState{})
	rec = httptest.NewRecorder()
	h.Stop(rec, httptest.NewRequest(http.MethodPost, "/capture/stop", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StopResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.Session.SessionID)
	assert.Contains(t, resp.Error, "exit code 1")
}

func TestStop_ClientDisconnectDoesNotCancelAssembly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manual := &fakeManual{session: models.Session{SessionID: "s1"}, onStop: cancel}
	h := New(discard, manual, fakeState{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/capture/stop", nil).WithContext(ctx)
	h.Stop(rec, req)

	require.Error(t, req.Context().Err())
	require.NotNil(t, manual.stopCtx)
	assert.NoError(t, manual.stopCtx.Err())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatus(t *testing.T) {
	h := New(discard, &fakeManual{}, fakeState{session: &models.Session{SessionID: "s1"}})
	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/capture/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "capturing", body["state"])
	assert.Equal(t, "s1", body["session"].(map[string]interface{})["session_id"])
}
