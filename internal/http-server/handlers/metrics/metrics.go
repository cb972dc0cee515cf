package metricshandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
	metricsservice "github.com/zanzhit/timelapse_recorder/internal/services/metrics"
)

const writeWait = 5 * time.Second

type Reporter interface {
	Latest() metricsservice.Snapshot
	Subscribe() (<-chan metricsservice.Snapshot, func())
}

type MetricsHandler struct {
	log      *slog.Logger
	reporter Reporter
	upgrader websocket.Upgrader
}

func New(log *slog.Logger, reporter Reporter) *MetricsHandler {
	return &MetricsHandler{
		log:      log,
		reporter: reporter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *MetricsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.reporter.Latest())
}

// Stream pushes every refreshed snapshot over a websocket until the client
// goes away.
func (h *MetricsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.metrics.Stream"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", sl.Err(err))
		return
	}
	defer conn.Close()

	snapshots, cancel := h.reporter.Subscribe()
	defer cancel()

	// Reads only detect the close; clients send nothing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := write(conn, h.reporter.Latest()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			log.Debug("client disconnected")
			return
		case <-r.Context().Done():
			return
		case snap := <-snapshots:
			if err := write(conn, snap); err != nil {
				log.Debug("failed to write snapshot", sl.Err(err))
				return
			}
		}
	}
}

func write(conn *websocket.Conn, snap metricsservice.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}
