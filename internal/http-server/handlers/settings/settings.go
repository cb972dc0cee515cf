package settingshandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/http-server/handlers"
	"github.com/zanzhit/timelapse_recorder/internal/lib/api/response"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
	settingsservice "github.com/zanzhit/timelapse_recorder/internal/services/settings"
)

type Settings interface {
	SetInterval(raw string) error
	SetFramerate(raw string) error
	Values() settingsservice.Values
}

type SettingsHandler struct {
	log      *slog.Logger
	settings Settings
}

func New(log *slog.Logger, settings Settings) *SettingsHandler {
	return &SettingsHandler{
		log:      log,
		settings: settings,
	}
}

// Input is raw operator input. Both "5" and 5 decode to the same text;
// parsing is left to the settings service.
type Input string

func (in *Input) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*in = Input(s)
		return nil
	}

	*in = Input(bytes.TrimSpace(data))

	return nil
}

type Request struct {
	Interval  *Input `json:"interval"`
	Framerate *Input `json:"framerate"`
}

type Response struct {
	settingsservice.Values
	Warnings []string `json:"warnings,omitempty"`
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{Values: h.settings.Values()})
}

// Update never rejects bad values: they fall back to defaults and are
// reported as warnings.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.settings.Update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if !handlers.DecodeAndValidate(log, w, r, &req) {
		return
	}

	var warnings []string
	apply := func(raw *Input, set func(string) error) bool {
		if raw == nil {
			return true
		}
		err := set(string(*raw))
		if err == nil {
			return true
		}
		if errors.Is(err, errs.ErrInvalidConfiguration) {
			warnings = append(warnings, err.Error())
			return true
		}

		log.Error("failed to update settings", sl.Err(err))

		handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to update settings", middleware.GetReqID(r.Context())))

		return false
	}

	if !apply(req.Interval, h.settings.SetInterval) || !apply(req.Framerate, h.settings.SetFramerate) {
		return
	}

	render.JSON(w, r, Response{Values: h.settings.Values(), Warnings: warnings})
}
