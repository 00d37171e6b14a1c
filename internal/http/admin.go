package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"achievehub/internal/model"
)

type userResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at"`
}

type pendingAchievementResponse struct {
	achievementResponse
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

type activityResponse struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	UserName  string `json:"user_name"`
	CreatedAt int64  `json:"created_at"`
}

type statsResponse struct {
	TotalUsers           int64              `json:"total_users"`
	TotalAchievements    int64              `json:"total_achievements"`
	PendingVerifications int64              `json:"pending_verifications"`
	RecentActivities     []activityResponse `json:"recent_activities"`
}

func (s *Server) handleListPendingAchievements(w http.ResponseWriter, r *http.Request) {
	pending, err := s.store.ListPendingAchievements(r.Context())
	if err != nil {
		s.logger.Error("list pending achievements failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	out := make([]pendingAchievementResponse, 0, len(pending))
	for _, entry := range pending {
		out = append(out, pendingAchievementResponse{
			achievementResponse: toAchievementResponse(entry.Achievement),
			UserName:            entry.UserName,
			UserEmail:           entry.UserEmail,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]pendingAchievementResponse{"achievements": out})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, userResponse{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			Role:      user.Role,
			CreatedAt: user.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]userResponse{"users": out})
}

func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	role := strings.TrimSpace(req.Role)
	if !model.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	changed, err := s.store.UpdateUserRole(r.Context(), userID, role)
	if err != nil {
		s.logger.Error("update user role failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !changed {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}

	// Outstanding tokens keep their issued role snapshot until the holder
	// re-authenticates, unless ROLE_RECHECK is on.
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := statsResponse{
		TotalUsers:           stats.TotalUsers,
		TotalAchievements:    stats.TotalAchievements,
		PendingVerifications: stats.PendingVerifications,
		RecentActivities:     make([]activityResponse, 0, len(stats.RecentActivities)),
	}
	for _, activity := range stats.RecentActivities {
		resp.RecentActivities = append(resp.RecentActivities, activityResponse{
			Type:      activity.Type,
			Title:     activity.Title,
			UserName:  activity.UserName,
			CreatedAt: activity.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]statsResponse{"stats": resp})
}
