package authhandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/http-server/handlers"
	"github.com/zanzhit/timelapse_recorder/internal/lib/api/response"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=admin operator"`
}

type AuthHandler struct {
	log  *slog.Logger
	auth Auth
}

type Auth interface {
	Login(email, password string) (string, error)
	RegisterOperator(email, password, role string) (string, error)
}

func New(log *slog.Logger, auth Auth) *AuthHandler {
	return &AuthHandler{
		log:  log,
		auth: auth,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req RegisterRequest
	if !handlers.DecodeAndValidate(log, w, r, &req) {
		return
	}

	id, err := h.auth.RegisterOperator(req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, errs.ErrOperatorExists) {
			handlers.Error(w, r, http.StatusConflict, response.Error("operator with this email already exists", ""))

			return
		}
		if errors.Is(err, errs.ErrRole) {
			handlers.Error(w, r, http.StatusBadRequest, response.Error("invalid role", ""))

			return
		}

		log.Error("failed to register operator", sl.Err(err))

		handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to register operator", middleware.GetReqID(r.Context())))

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"id": id})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req LoginRequest
	if !handlers.DecodeAndValidate(log, w, r, &req) {
		return
	}

	token, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			handlers.Error(w, r, http.StatusUnauthorized, response.Error("invalid credentials", ""))

			return
		}

		log.Error("failed to login", sl.Err(err))

		handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to login", middleware.GetReqID(r.Context())))

		return
	}

	render.JSON(w, r, map[string]string{"token": token})
}
