package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"achievehub/internal/model"
	"achievehub/internal/repository"
)

type achievementRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type achievementResponse struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	VerifiedBy  *int64 `json:"verified_by,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

func toAchievementResponse(achievement model.Achievement) achievementResponse {
	return achievementResponse{
		ID:          achievement.ID,
		UserID:      achievement.UserID,
		Title:       achievement.Title,
		Description: achievement.Description,
		Category:    achievement.Category,
		Status:      achievement.Status,
		VerifiedBy:  achievement.VerifiedBy,
		CreatedAt:   achievement.CreatedAt.Unix(),
	}
}

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	achievements, err := s.store.ListAchievements(r.Context(), claims.UserID)
	if err != nil {
		s.logger.Error("list achievements failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	out := make([]achievementResponse, 0, len(achievements))
	for _, achievement := range achievements {
		out = append(out, toAchievementResponse(achievement))
	}
	writeJSON(w, http.StatusOK, map[string][]achievementResponse{"achievements": out})
}

func (s *Server) handleCreateAchievement(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req achievementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if req.Title == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	achievement, err := s.store.CreateAchievement(r.Context(), claims.UserID, req.Title, req.Description, req.Category)
	if err != nil {
		s.logger.Error("create achievement failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]achievementResponse{"achievement": toAchievementResponse(achievement)})
}

func (s *Server) handleUpdateAchievement(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	achievementID, err := parseID(chi.URLParam(r, "achievementID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	var req achievementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if req.Title == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	changed, err := s.store.UpdateAchievement(r.Context(), achievementID, claims.UserID, req.Title, req.Description, req.Category)
	if err != nil {
		s.logger.Error("update achievement failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !changed {
		writeError(w, http.StatusNotFound, "achievement_not_found")
		return
	}

	s.invalidatePortfolioCache(r.Context(), claims.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteAchievement(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	achievementID, err := parseID(chi.URLParam(r, "achievementID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	deleted, err := s.store.DeleteAchievement(r.Context(), achievementID, claims.UserID)
	if err != nil {
		s.logger.Error("delete achievement failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "achievement_not_found")
		return
	}

	s.invalidatePortfolioCache(r.Context(), claims.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleVerifyAchievement(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	achievementID, err := parseID(chi.URLParam(r, "achievementID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	ownerID, err := s.store.VerifyAchievement(r.Context(), achievementID, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "achievement_not_found")
			return
		}
		s.logger.Error("verify achievement failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	s.invalidatePortfolioCache(r.Context(), ownerID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

var errInvalidID = errors.New("invalid id")

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
