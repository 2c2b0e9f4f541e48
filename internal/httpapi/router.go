package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rankvault/leaderboard-service/internal/apierrors"
	"github.com/rankvault/leaderboard-service/internal/registry"
	"github.com/rankvault/leaderboard-service/internal/signature"
)

// AdminRateLimit configures the token bucket guarding the admin surface.
// A zero value disables rate limiting.
type AdminRateLimit struct {
	PerMinute int
	Burst     int
}

// NewRouter builds the full /api route tree. admin is nil on a replica: its
// routes are simply not mounted, since only the master accepts mutations.
// configHandler may be nil; when set it mounts a bearer-gated config export
// endpoint for operator inspection.
func NewRouter(rank *RankHandler, admin *AdminHandler, reg *registry.Registry, bearerToken string, limit AdminRateLimit, configHandler *ConfigHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	signed := api.PathPrefix("/rank").Subrouter()
	signed.Use(func(next http.Handler) http.Handler {
		return signature.Middleware(reg.GetSecret, next)
	})
	signed.HandleFunc("/update_score", rank.UpdateScore).Methods(http.MethodPost)
	signed.HandleFunc("/get_user_rank", rank.GetUserRank).Methods(http.MethodPost)
	signed.HandleFunc("/get_user_score", rank.GetUserScore).Methods(http.MethodPost)
	signed.HandleFunc("/get_top_user_rank", rank.GetTopUserRank).Methods(http.MethodPost)

	if admin != nil {
		adminRoutes := api.PathPrefix("/rank").Subrouter()
		if limit.PerMinute > 0 {
			adminRoutes.Use(rateLimitMiddleware(limit.PerMinute, limit.Burst))
		}
		adminRoutes.Use(bearerTokenMiddleware(bearerToken))
		adminRoutes.HandleFunc("/add_rank_config", admin.AddRankConfig).Methods(http.MethodPost)
		adminRoutes.HandleFunc("/delete_rank_config", admin.DeleteRankConfig).Methods(http.MethodDelete)
		if configHandler != nil {
			adminRoutes.HandleFunc("/config", configHandler.GetConfig).Methods(http.MethodGet)
		}
	}

	return router
}

// bearerTokenMiddleware gates the admin surface. User registration and the
// bearer-token scheme itself are external collaborators; this only checks
// the header against the configured token.
func bearerTokenMiddleware(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || strings.TrimPrefix(auth, prefix) != token {
				writeError(w, apierrors.Token("missing or invalid bearer token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
