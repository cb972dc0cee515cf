package sessionshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/http-server/handlers"
	"github.com/zanzhit/timelapse_recorder/internal/lib/api/response"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

type SessionProvider interface {
	Sessions(limit int) ([]models.SessionRecord, error)
}

type Publisher interface {
	Publish(ctx context.Context, sessionID string) ([]string, error)
}

type SessionsHandler struct {
	log       *slog.Logger
	sessions  SessionProvider
	publisher Publisher
}

func New(log *slog.Logger, sessions SessionProvider, publisher Publisher) *SessionsHandler {
	return &SessionsHandler{
		log:       log,
		sessions:  sessions,
		publisher: publisher,
	}
}

type PublishResponse struct {
	Published []string `json:"published"`
	response.Response
}

func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.sessions.List"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			handlers.Error(w, r, http.StatusBadRequest, response.Error("limit must be a positive integer", ""))

			return
		}
		limit = min(v, maxLimit)
	}

	sessions, err := h.sessions.Sessions(limit)
	if err != nil {
		log.Error("failed to list sessions", sl.Err(err))

		handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to list sessions", middleware.GetReqID(r.Context())))

		return
	}

	if sessions == nil {
		sessions = []models.SessionRecord{}
	}

	render.JSON(w, r, sessions)
}

func (h *SessionsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.sessions.Publish"

	sessionID := chi.URLParam(r, "id")

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("session_id", sessionID),
	)

	published, err := h.publisher.Publish(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrSessionNotFound):
			handlers.Error(w, r, http.StatusNotFound, response.Error("session not found", ""))
		case errors.Is(err, errs.ErrNoVideo):
			handlers.Error(w, r, http.StatusConflict, response.Error("session has no unpublished videos", ""))
		case errors.Is(err, errs.ErrPublisherDisabled):
			handlers.Error(w, r, http.StatusServiceUnavailable, response.Error("publisher is not configured", ""))
		default:
			log.Error("failed to publish session", sl.Err(err))

			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, PublishResponse{
				Published: published,
				Response:  response.Error("failed to publish session", middleware.GetReqID(r.Context())),
			})
		}

		return
	}

	render.JSON(w, r, PublishResponse{Published: published})
}
