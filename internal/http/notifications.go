package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type notificationResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt int64  `json:"created_at"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	notifications, err := s.store.ListNotifications(r.Context(), claims.UserID)
	if err != nil {
		s.logger.Error("list notifications failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	out := make([]notificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		out = append(out, notificationResponse{
			ID:        notification.ID,
			UserID:    notification.UserID,
			Title:     notification.Title,
			Message:   notification.Message,
			Read:      notification.Read,
			CreatedAt: notification.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]notificationResponse{"notifications": out})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	notificationID, err := parseID(chi.URLParam(r, "notificationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	changed, err := s.store.MarkNotificationRead(r.Context(), notificationID, claims.UserID)
	if err != nil {
		s.logger.Error("mark notification read failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !changed {
		writeError(w, http.StatusNotFound, "notification_not_found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
