package settingshandler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settingsservice "github.com/zanzhit/timelapse_recorder/internal/services/settings"
)

func TestUpdate(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(log, settingsservice.New(log, 5, 60))

	tests := []struct {
		name     string
		body     string
		want     settingsservice.Values
		warnings int
	}{
		{name: "string values", body: `{"interval":"10","framerate":"30"}`, want: settingsservice.Values{IntervalSeconds: 10, Framerate: 30}},
		{name: "numbers", body: `{"interval":3,"framerate":24}`, want: settingsservice.Values{IntervalSeconds: 3, Framerate: 24}},
		{name: "partial", body: `{"framerate":"12"}`, want: settingsservice.Values{IntervalSeconds: 3, Framerate: 12}},
		{name: "fallbacks", body: `{"interval":"abc","framerate":"-1"}`, want: settingsservice.Values{IntervalSeconds: 5, Framerate: 60}, warnings: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Update(rec, httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(tt.body)))

			require.Equal(t, http.StatusOK, rec.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Values)
			assert.Len(t, resp.Warnings, tt.warnings)
		})
	}
}
