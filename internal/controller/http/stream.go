package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/atlasov/club_portal/internal/app"
)

// Broadcaster раздаёт уведомления об изменениях в базе
type Broadcaster interface {
	Subscribe() (<-chan app.Change, func())
}

// Пустой комментарий раз в полминуты держит соединение живым
// сквозь прокси с таймаутом простоя
const streamPingInterval = 25 * time.Second

// handleStream отдаёт изменения портала потоком server-sent events.
// Имя события совпадает с топиком изменения, клиент подписывается
// только на нужные.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.stream == nil {
		writeError(w, http.StatusServiceUnavailable, "live stream is not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	changes, cancel := s.stream.Subscribe()
	defer cancel()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case change, open := <-changes:
			if !open {
				return
			}
			payload, err := json.Marshal(change)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Topic, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
