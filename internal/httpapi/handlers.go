package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/rankvault/leaderboard-service/internal/apierrors"
	"github.com/rankvault/leaderboard-service/internal/domain"
	"github.com/rankvault/leaderboard-service/internal/rankservice"
)

// RankHandler adapts HTTP requests into rankservice.Service calls.
type RankHandler struct {
	service   *rankservice.Service
	validator *validator.Validate
	logger    *slog.Logger
}

func NewRankHandler(service *rankservice.Service, logger *slog.Logger) *RankHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RankHandler{service: service, validator: validator.New(), logger: logger}
}

func (h *RankHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, apierrors.RequestJSON("request body is not valid JSON"))
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		writeError(w, apierrors.RequestValidation(err.Error()))
		return false
	}
	return true
}

func (h *RankHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var req UpdateScoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.UpdateScore(r.Context(), req.AppID, req.RankKey, req.OpenID, req.NickName, req.Score); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

func (h *RankHandler) GetUserRank(w http.ResponseWriter, r *http.Request) {
	var req GetUserRankRequest
	if !h.decode(w, r, &req) {
		return
	}
	rank, err := h.service.GetRank(r.Context(), req.AppID, req.OpenID, req.RankKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]int64{"ranking": rank})
}

func (h *RankHandler) GetUserScore(w http.ResponseWriter, r *http.Request) {
	var req GetUserScoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	score, err := h.service.GetScore(r.Context(), req.AppID, req.OpenID, req.RankKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]int64{"score": score})
}

type topUserRankEntry struct {
	OpenID   string `json:"openid"`
	NickName string `json:"nick_name"`
	Score    int64  `json:"score"`
	Ranking  int64  `json:"ranking"`
}

func (h *RankHandler) GetTopUserRank(w http.ResponseWriter, r *http.Request) {
	var req GetTopUserRankRequest
	if !h.decode(w, r, &req) {
		return
	}
	top, err := h.service.GetTop(r.Context(), req.AppID, req.RankKey, req.TopN)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]topUserRankEntry, len(top))
	for i, e := range top {
		out[i] = topUserRankEntry{OpenID: e.OpenID, NickName: e.NickName, Score: e.Score, Ranking: e.Ranking}
	}
	writeOK(w, out)
}

// AdminService is the subset of controlplane.Master the admin handlers call.
type AdminService interface {
	AddLeaderboard(ctx context.Context, cfg domain.LeaderboardConfig) error
	DeleteLeaderboard(ctx context.Context, appID, rankKey string) error
}

// AdminHandler adapts HTTP requests into controlplane.Master admin calls.
// Routes are mounted only on the master; callers gate access with bearer
// token middleware.
type AdminHandler struct {
	service   AdminService
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAdminHandler(service AdminService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{service: service, validator: validator.New(), logger: logger}
}

func (h *AdminHandler) AddRankConfig(w http.ResponseWriter, r *http.Request) {
	var req AddRankConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierrors.RequestJSON("request body is not valid JSON"))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		writeError(w, apierrors.RequestValidation(err.Error()))
		return
	}

	cfg := domain.LeaderboardConfig{
		AppID: req.AppID, RankKey: req.RankKey, AppSecret: req.AppSecret,
		CronExpression: req.CronExpression, Remark: req.Remark,
	}
	if err := h.service.AddLeaderboard(r.Context(), cfg); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

func (h *AdminHandler) DeleteRankConfig(w http.ResponseWriter, r *http.Request) {
	appID := r.URL.Query().Get("appid")
	rankKey := r.URL.Query().Get("rank_key")
	if appID == "" || rankKey == "" {
		writeError(w, apierrors.RequestValidation("appid and rank_key query parameters are required"))
		return
	}
	if err := h.service.DeleteLeaderboard(r.Context(), appID, rankKey); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Healthy..."))
}
