package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/zanzhit/timelapse_recorder/internal/lib/api/response"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
)

var validate = validator.New()

func Error(w http.ResponseWriter, r *http.Request, statusCode int, err response.Response) {
	render.Status(r, statusCode)
	render.JSON(w, r, err)
}

// DecodeAndValidate reads a JSON body into req and validates it. On failure
// the error response is already written and false is returned.
func DecodeAndValidate(log *slog.Logger, w http.ResponseWriter, r *http.Request, req interface{}) bool {
	err := render.DecodeJSON(r.Body, req)
	if err != nil {
		if errors.Is(err, io.EOF) {
			log.Error("request body is empty")

			Error(w, r, http.StatusBadRequest, response.Error("empty request", ""))

			return false
		}

		log.Error("failed to decode request body", sl.Err(err))

		Error(w, r, http.StatusBadRequest, response.Error("failed to decode request", middleware.GetReqID(r.Context())))

		return false
	}

	log.Debug("request body decoded", slog.Any("request", req))

	if err := validate.Struct(req); err != nil {
		var validateErr validator.ValidationErrors
		if !errors.As(err, &validateErr) {
			log.Error("failed to validate request", sl.Err(err))

			Error(w, r, http.StatusBadRequest, response.Error("invalid request", ""))

			return false
		}

		log.Error("invalid request", sl.Err(err))

		Error(w, r, http.StatusBadRequest, response.ValidationError(validateErr))

		return false
	}

	return true
}
