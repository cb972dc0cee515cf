package deviceshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/http-server/handlers"
	"github.com/zanzhit/timelapse_recorder/internal/lib/api/response"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
	deviceservice "github.com/zanzhit/timelapse_recorder/internal/services/devices"
)

type Registry interface {
	Devices() []models.Device
	Add(address string) (models.Device, error)
	Select(deviceID string, selected bool) (models.Device, error)
	Probe(ctx context.Context, timeout time.Duration) []deviceservice.Availability
}

type DevicesHandler struct {
	log          *slog.Logger
	registry     Registry
	probeTimeout time.Duration
}

func New(log *slog.Logger, registry Registry, probeTimeout time.Duration) *DevicesHandler {
	return &DevicesHandler{
		log:          log,
		registry:     registry,
		probeTimeout: probeTimeout,
	}
}

type AddRequest struct {
	Address string `json:"address" validate:"required"`
}

type SelectionRequest struct {
	Selected *bool `json:"selected" validate:"required"`
}

func (h *DevicesHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.registry.Devices())
}

func (h *DevicesHandler) Add(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.devices.Add"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req AddRequest
	if !handlers.DecodeAndValidate(log, w, r, &req) {
		return
	}

	dev, err := h.registry.Add(req.Address)
	if err != nil {
		if errors.Is(err, errs.ErrDeviceAlreadyExists) {
			handlers.Error(w, r, http.StatusConflict, response.Error("device already exists", ""))

			return
		}
		if errors.Is(err, errs.ErrInvalidConfiguration) {
			handlers.Error(w, r, http.StatusBadRequest, response.Error("invalid device address", ""))

			return
		}

		log.Error("failed to add device", sl.Err(err))

		handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to add device", middleware.GetReqID(r.Context())))

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, dev)
}

func (h *DevicesHandler) Select(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.devices.Select"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req SelectionRequest
	if !handlers.DecodeAndValidate(log, w, r, &req) {
		return
	}

	dev, err := h.registry.Select(chi.URLParam(r, "id"), *req.Selected)
	if err != nil {
		if errors.Is(err, errs.ErrDeviceNotFound) {
			handlers.Error(w, r, http.StatusNotFound, response.Error("device not found", ""))

			return
		}

		log.Error("failed to update selection", sl.Err(err))

		handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to update selection", middleware.GetReqID(r.Context())))

		return
	}

	render.JSON(w, r, dev)
}

func (h *DevicesHandler) Availability(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.registry.Probe(r.Context(), h.probeTimeout))
}
