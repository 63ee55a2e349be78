// Package handler exposes the prize pool over JSON/HTTP and over the
// Telegram admin bot.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"prize-pool/internal/metrics"
	"prize-pool/internal/model"
	"prize-pool/internal/prizepool"
	"prize-pool/internal/service"
)

// APIHandler serves the prize pool API.
type APIHandler struct {
	pool    *service.PoolService
	spins   *service.SpinService
	metrics *metrics.Metrics
	health  func(ctx context.Context) error
}

// RouterConfig holds transport settings for the API router.
type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// Health is checked by /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(pool *service.PoolService, spins *service.SpinService, m *metrics.Metrics) *APIHandler {
	return &APIHandler{pool: pool, spins: spins, metrics: m}
}

// Router builds the HTTP routes and middleware chain.
func (h *APIHandler) Router(cfg RouterConfig) http.Handler {
	h.health = cfg.Health
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	router := mux.NewRouter()
	router.Use(RequestLogMiddleware(h.metrics))
	router.Use(MaxBodyMiddleware(cfg.MaxBodyBytes))
	router.Use(TimeoutMiddleware(cfg.RequestTimeout))

	router.Handle("/healthz", http.HandlerFunc(h.Health)).Methods(http.MethodGet)
	router.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Rewards
	api.Handle("/rewards", http.HandlerFunc(h.ListRewards)).Methods(http.MethodGet)
	api.Handle("/rewards", http.HandlerFunc(h.CreateReward)).Methods(http.MethodPost)
	api.Handle("/rewards/budget", http.HandlerFunc(h.GetBudget)).Methods(http.MethodGet)
	api.Handle("/rewards/reorder", http.HandlerFunc(h.ReorderRewards)).Methods(http.MethodPost)
	api.Handle("/rewards/{id:[0-9]+}", http.HandlerFunc(h.GetReward)).Methods(http.MethodGet)
	api.Handle("/rewards/{id:[0-9]+}", http.HandlerFunc(h.UpdateReward)).Methods(http.MethodPut)
	api.Handle("/rewards/{id:[0-9]+}", http.HandlerFunc(h.DeleteReward)).Methods(http.MethodDelete)
	api.Handle("/rewards/{id:[0-9]+}/active", http.HandlerFunc(h.SetActive)).Methods(http.MethodPut)

	// Settings
	api.Handle("/settings", http.HandlerFunc(h.GetSettings)).Methods(http.MethodGet)
	api.Handle("/settings", http.HandlerFunc(h.UpdateSettings)).Methods(http.MethodPut)

	// Spins
	api.Handle("/spins", http.HandlerFunc(h.Spin)).Methods(http.MethodPost)
	api.Handle("/spins/stats", http.HandlerFunc(h.SpinStats)).Methods(http.MethodGet)
	api.Handle("/spins/users/{userID:[0-9]+}", http.HandlerFunc(h.SpinHistory)).Methods(http.MethodGet)

	return RequestIDMiddleware(RecoveryMiddleware(router))
}

// ReorderRequest moves one entry of the filtered view.
type ReorderRequest struct {
	Filter prizepool.Filter `json:"filter"`
	From   int              `json:"from"`
	To     int              `json:"to"`
}

// ActiveRequest toggles a reward's status.
type ActiveRequest struct {
	Active bool `json:"active"`
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, badRequest(name, "invalid id")
	}
	return id, nil
}

func filterFromQuery(r *http.Request) prizepool.Filter {
	q := r.URL.Query()
	return prizepool.Filter{
		Search: q.Get("search"),
		Status: prizepool.StatusFilter(q.Get("status")),
		Type:   q.Get("type"),
	}
}

// Health reports whether the store is reachable.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, APIResponse{
				Success: false,
				Message: "store unavailable",
				Error:   &ErrorBody{Kind: KindBusy},
			})
			return
		}
	}
	writeOK(w, http.StatusOK, "ok", nil)
}

// ListRewards handles GET /rewards?search=&status=&type=.
func (h *APIHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.pool.ListRewards(r.Context(), filterFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeOK(w, http.StatusOK, "rewards", rewards)
}

// GetReward handles GET /rewards/{id}.
func (h *APIHandler) GetReward(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	reward, err := h.pool.GetReward(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "reward", reward)
}

// CreateReward handles POST /rewards.
func (h *APIHandler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var in model.RewardInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	reward, err := h.pool.CreateReward(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "reward created", reward)
}

// UpdateReward handles PUT /rewards/{id} with a partial body.
func (h *APIHandler) UpdateReward(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.RewardPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	reward, err := h.pool.UpdateReward(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "reward updated", reward)
}

// SetActive handles PUT /rewards/{id}/active.
func (h *APIHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reward, err := h.pool.SetActive(r.Context(), id, req.Active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "reward status updated", reward)
}

// DeleteReward handles DELETE /rewards/{id}.
func (h *APIHandler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.pool.DeleteReward(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "reward deleted", nil)
}

// ReorderRewards handles POST /rewards/reorder.
func (h *APIHandler) ReorderRewards(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rewards, err := h.pool.ReorderRewards(r.Context(), req.Filter, req.From, req.To)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "rewards reordered", rewards)
}

// GetBudget handles GET /rewards/budget.
func (h *APIHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	summary, err := h.pool.Budget(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "budget", summary)
}

// GetSettings handles GET /settings.
func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.pool.GetSettings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "settings", settings)
}

// UpdateSettings handles PUT /settings with a partial body.
func (h *APIHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch model.SpinSettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	settings, err := h.pool.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "settings updated", settings)
}

// Spin handles POST /spins.
func (h *APIHandler) Spin(w http.ResponseWriter, r *http.Request) {
	var req service.SpinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.UserID <= 0 {
		writeError(w, r, badRequest("userId", "userId is required"))
		return
	}
	rec, err := h.spins.Spin(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	message := "no prize"
	if rec.Won() {
		message = "you won " + rec.Label
	}
	writeOK(w, http.StatusCreated, message, rec)
}

// SpinHistory handles GET /spins/users/{userID}?limit=.
func (h *APIHandler) SpinHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			writeError(w, r, badRequest("limit", "limit must be a non-negative integer"))
			return
		}
	}
	records, err := h.spins.History(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []model.SpinRecord{}
	}
	writeOK(w, http.StatusOK, "spin history", records)
}

// SpinStats handles GET /spins/stats?since=RFC3339. Without since, every
// recorded spin counts.
func (h *APIHandler) SpinStats(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := parseTime("since", s)
		if err != nil {
			writeError(w, r, err)
			return
		}
		since = t
	}
	stats, err := h.spins.Stats(r.Context(), since)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if stats == nil {
		stats = []model.RewardStat{}
	}
	writeOK(w, http.StatusOK, "spin stats", stats)
}
