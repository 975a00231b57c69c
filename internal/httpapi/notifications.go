package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/taskdesk/internal/protocol"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	wsPingInterval = 30 * time.Second
)

func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": s.notifications.Active(),
	})
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if !s.notifications.Dismiss(id) {
		respondError(w, http.StatusNotFound, "notification_not_found", "notification not found or already dismissed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotificationsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.logger.Debug("notification stream connected", "remote", r.RemoteAddr)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snapshot, events, unsubscribe := s.notifications.SubscribeWithSnapshot()
	defer unsubscribe()

	outbound := make(chan any, 64)
	for _, n := range snapshot {
		select {
		case outbound <- protocol.Shown(n):
		default:
		}
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		write := func(msg any) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				s.observeWSWriteError("write_json")
				cancel()
				return false
			}
			s.observeWSMessage("outbound", msg)
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				if !write(msg) {
					return
				}
			case evt, ok := <-events:
				if !ok {
					cancel()
					return
				}
				if !write(protocol.FromEvent(evt)) {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					s.observeWSWriteError("ping")
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.queue(outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}
		s.observeWSMessage("inbound", parsed)

		if msg, ok := parsed.(protocol.DismissNotification); ok {
			if !s.notifications.Dismiss(msg.NotificationID) {
				s.queue(outbound, protocol.ErrorEvent{
					Type:   protocol.TypeErrorEvent,
					Code:   "notification_not_found",
					Detail: msg.NotificationID,
				})
			}
		}
	}

	cancel()
	<-writerDone
	s.logger.Debug("notification stream disconnected", "remote", r.RemoteAddr)
}

// queue hands msg to the single websocket writer, dropping it when the
// outbound buffer is saturated.
func (s *Server) queue(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
		s.observeWSWriteError("drop_full")
	}
}

func (s *Server) observeWSMessage(direction string, msg any) {
	if s.metrics == nil {
		return
	}
	if t, ok := protocol.TypeOf(msg); ok {
		s.metrics.WSMessages.WithLabelValues(direction, string(t)).Inc()
	}
}

func (s *Server) observeWSWriteError(stage string) {
	if s.metrics == nil {
		return
	}
	s.metrics.WSWriteErrors.WithLabelValues(stage).Inc()
}
