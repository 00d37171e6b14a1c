package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"achievehub/internal/model"
	"achievehub/internal/repository"
)

type skillEntry struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

type skillResponse struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Level  int    `json:"level"`
}

type portfolioUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type portfolioResponse struct {
	User         portfolioUser         `json:"user"`
	Achievements []achievementResponse `json:"achievements"`
	Skills       []skillResponse       `json:"skills"`
}

// handleGetPortfolio is the public profile page feed: user summary plus
// verified achievements and skills. Responses are cached briefly in redis
// when a client is configured.
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	if cached, ok := s.cachedPortfolio(r.Context(), userID); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		s.logger.Error("portfolio user lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	achievements, err := s.store.ListVerifiedAchievements(r.Context(), userID)
	if err != nil {
		s.logger.Error("portfolio achievements failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	skills, err := s.store.ListSkills(r.Context(), userID)
	if err != nil {
		s.logger.Error("portfolio skills failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := portfolioResponse{
		User:         portfolioUser{ID: user.ID, Name: user.Name, Email: user.Email},
		Achievements: make([]achievementResponse, 0, len(achievements)),
		Skills:       make([]skillResponse, 0, len(skills)),
	}
	for _, achievement := range achievements {
		resp.Achievements = append(resp.Achievements, toAchievementResponse(achievement))
	}
	for _, skill := range skills {
		resp.Skills = append(resp.Skills, skillResponse{
			ID:     skill.ID,
			UserID: skill.UserID,
			Name:   skill.Name,
			Level:  skill.Level,
		})
	}

	payload := map[string]portfolioResponse{"portfolio": resp}
	s.storePortfolioCache(r.Context(), userID, payload)
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleReplaceSkills(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req struct {
		Skills []skillEntry `json:"skills"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	// A missing skills key is not an empty list; only an explicit
	// "skills": [] may clear the stored rows.
	if req.Skills == nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	skills := make([]model.Skill, 0, len(req.Skills))
	for _, entry := range req.Skills {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "invalid_skill")
			return
		}
		level := entry.Level
		if level < 1 {
			level = 1
		}
		skills = append(skills, model.Skill{Name: name, Level: level})
	}

	if err := s.store.ReplaceSkills(r.Context(), claims.UserID, skills); err != nil {
		s.logger.Error("replace skills failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	s.invalidatePortfolioCache(r.Context(), claims.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Portfolio cache. All operations are best effort: a cache outage must
// never fail the request.

func portfolioCacheKey(userID int64) string {
	return "portfolio:" + strconv.FormatInt(userID, 10)
}

func (s *Server) cachedPortfolio(ctx context.Context, userID int64) ([]byte, bool) {
	if s.redis == nil {
		return nil, false
	}
	value, err := s.redis.Get(ctx, portfolioCacheKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("portfolio cache read failed", zap.Error(err))
		return nil, false
	}
	return value, true
}

func (s *Server) storePortfolioCache(ctx context.Context, userID int64, payload interface{}) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, portfolioCacheKey(userID), data, s.cfg.PortfolioCacheTTL).Err(); err != nil {
		s.logger.Warn("portfolio cache write failed", zap.Error(err))
	}
}

func (s *Server) invalidatePortfolioCache(ctx context.Context, userID int64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, portfolioCacheKey(userID)).Err(); err != nil {
		s.logger.Warn("portfolio cache invalidation failed", zap.Error(err))
	}
}
