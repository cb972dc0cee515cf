package capturehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/http-server/handlers"
	"github.com/zanzhit/timelapse_recorder/internal/lib/api/response"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
)

type Manual interface {
	ManualStart() (models.Session, error)
	ManualStop(ctx context.Context) (models.Session, error)
}

type StateProvider interface {
	State() models.CaptureState
	Session() (models.Session, bool)
}

type CaptureHandler struct {
	log    *slog.Logger
	manual Manual
	state  StateProvider
}

func New(log *slog.Logger, manual Manual, state StateProvider) *CaptureHandler {
	return &CaptureHandler{
		log:    log,
		manual: manual,
		state:  state,
	}
}

type StatusResponse struct {
	State   models.CaptureState `json:"state"`
	Session *models.Session     `json:"session,omitempty"`
}

type StopResponse struct {
	Session models.Session `json:"session"`
	response.Response
}

func (h *CaptureHandler) Start(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.capture.Start"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	session, err := h.manual.ManualStart()
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrAlreadyCapturing):
			handlers.Error(w, r, http.StatusConflict, response.Error("capture is already running", ""))
		case errors.Is(err, errs.ErrScheduleEngaged):
			handlers.Error(w, r, http.StatusConflict, response.Error("manual control is disabled while schedule is engaged", ""))
		case errors.Is(err, errs.ErrNoDevicesSelected):
			handlers.Error(w, r, http.StatusBadRequest, response.Error("no devices selected", ""))
		case errors.Is(err, errs.ErrInvalidInterval):
			handlers.Error(w, r, http.StatusBadRequest, response.Error("invalid capture interval", ""))
		default:
			log.Error("failed to start capture", sl.Err(err))

			handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to start capture", middleware.GetReqID(r.Context())))
		}

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, session)
}

// Stop blocks until the session's videos are assembled. Assembly failures
// still return the closed session, with the error attached. A client that
// disconnects mid-assembly does not abort the encoder.
func (h *CaptureHandler) Stop(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.capture.Stop"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	session, err := h.manual.ManualStop(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, errs.ErrNotCapturing) {
			handlers.Error(w, r, http.StatusConflict, response.Error("capture is not running", ""))

			return
		}

		log.Error("capture stopped with errors", sl.Err(err))

		if session.SessionID == "" {
			handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to stop capture", middleware.GetReqID(r.Context())))

			return
		}

		render.JSON(w, r, StopResponse{
			Session:  session,
			Response: response.Error(err.Error(), middleware.GetReqID(r.Context())),
		})

		return
	}

	render.JSON(w, r, StopResponse{Session: session})
}

func (h *CaptureHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{State: h.state.State()}
	if session, ok := h.state.Session(); ok {
		resp.Session = &session
	}

	render.JSON(w, r, resp)
}
