package authmiddleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zanzhit/timelapse_recorder/internal/domain/constants"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/http-server/handlers"
	"github.com/zanzhit/timelapse_recorder/internal/lib/api/response"
	jwtlib "github.com/zanzhit/timelapse_recorder/internal/lib/jwt"
)

type contextKey string

const (
	OperatorContextKey contextKey = "operator"
)

func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				handlers.Error(w, r, http.StatusUnauthorized, response.Error("unauthorized", ""))
				return
			}

			operator, err := jwtlib.ParseToken(strings.TrimPrefix(authHeader, "Bearer "), secret)
			if err != nil {
				handlers.Error(w, r, http.StatusUnauthorized, response.Error("unauthorized", ""))
				return
			}

			ctx := context.WithValue(r.Context(), OperatorContextKey, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AdminRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operator, ok := FromContext(r.Context())
		if !ok || operator.Role != constants.Admin {
			handlers.Error(w, r, http.StatusForbidden, response.Error("forbidden", ""))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func FromContext(ctx context.Context) (models.Operator, bool) {
	operator, ok := ctx.Value(OperatorContextKey).(models.Operator)
	return operator, ok
}
