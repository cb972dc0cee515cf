package authmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/timelapse_recorder/internal/domain/constants"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	jwtlib "github.com/zanzhit/timelapse_recorder/internal/lib/jwt"
)

func TestJWTAuth(t *testing.T) {
	var seen models.Operator
	h := JWTAuth("secret")(AdminRequired(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	admin, err := jwtlib.NewToken(models.Operator{OperatorID: "a", Role: constants.Admin}, time.Hour, "secret")
	require.NoError(t, err)
	operator, err := jwtlib.NewToken(models.Operator{OperatorID: "o", Role: constants.Operator}, time.Hour, "secret")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "no header", header: "", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "not admin", header: "Bearer " + operator, want: http.StatusForbidden},
		{name: "admin", header: "Bearer " + admin, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}

	assert.Equal(t, "a", seen.OperatorID)
}
