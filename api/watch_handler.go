package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// watch upgrades to a websocket and pushes task.Stats snapshots of the job
// every watch interval. The feed ends with a normal closure once no task of
// the job is open, or when the client goes away.
func (a *API) watch(w http.ResponseWriter, r *http.Request) {
	jobID, err := jobIDParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	ctx := r.Context()
	if _, err := a.mgr.Stats(ctx, jobID); err != nil {
		a.writeError(w, err)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// Drain client frames so close frames and disconnects are noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(a.watchInterval)
	defer ticker.Stop()

	for {
		st, err := a.mgr.Stats(ctx, jobID)
		if err != nil {
			a.logger.Error("watch stats failed",
				slog.Int64("job_id", jobID),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "stats unavailable"))
			return
		}
		if err := conn.WriteJSON(st); err != nil {
			return
		}
		if st.Open() == 0 {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "all tasks closed"))
			return
		}

		select {
		case <-gone:
			return
		case <-ticker.C:
		}
	}
}
