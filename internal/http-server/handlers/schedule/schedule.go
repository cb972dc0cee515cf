package schedulehandler

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

type Scheduler interface {
	Toggle(ctx context.Context, start, end models.ClockInput) (models.ScheduleStatus, error)
	Engaged() bool
	Status() models.ScheduleStatus
}

type ScheduleHandler struct {
	log       *slog.Logger
	scheduler Scheduler
}

func New(log *slog.Logger, scheduler Scheduler) *ScheduleHandler {
	return &ScheduleHandler{
		log:       log,
		scheduler: scheduler,
	}
}

type ToggleRequest struct {
	Start models.ClockInput `json:"start"`
	End   models.ClockInput `json:"end"`
}

func (h *ScheduleHandler) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.scheduler.Status())
}

// Toggle engages the schedule with the window from the body, or disengages
// it when already engaged. Disengaging needs no body.
func (h *ScheduleHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.schedule.Toggle"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req ToggleRequest
	if !h.scheduler.Engaged() {
		if !handlers.DecodeAndValidate(log, w, r, &req) {
			return
		}
	}

	// Disengaging waits for assembly of the active session.
	status, err := h.scheduler.Toggle(context.WithoutCancel(r.Context()), req.Start, req.End)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrOvernightWindow):
			handlers.Error(w, r, http.StatusBadRequest, response.Error("schedule end must not be before start", ""))
		case errors.Is(err, errs.ErrInvalidConfiguration):
			handlers.Error(w, r, http.StatusBadRequest, response.Error("invalid schedule time", ""))
		default:
			log.Error("failed to toggle schedule", sl.Err(err))

			handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to toggle schedule", middleware.GetReqID(r.Context())))
		}

		return
	}

	log.Info("schedule toggled", slog.Bool("engaged", status.Engaged))

	render.JSON(w, r, status)
}
