// Package httpapi exposes the gateway REST API. Handlers translate between
// transport shapes and the services; the error taxonomy maps to status
// codes here and nowhere else.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/blade-dance/gateway/internal/app"
	"github.com/blade-dance/gateway/internal/app/domain/identity"
	"github.com/blade-dance/gateway/internal/app/services/trading"
	"github.com/blade-dance/gateway/internal/errors"
	"github.com/blade-dance/gateway/internal/middleware"
	"github.com/blade-dance/gateway/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app        *app.Application
	log        *logger.Logger
	production bool
}

// RouterConfig adjusts router construction.
type RouterConfig struct {
	// Production suppresses internal detail in 5xx responses.
	Production bool
	// DefaultRateLimitRPM applies to unauthenticated requests.
	DefaultRateLimitRPM int
	// Metrics, when set, is served on /metrics without authentication.
	Metrics http.Handler
}

// NewRouter builds the REST API router with auth and rate limiting applied
// to everything except login and health.
func NewRouter(application *app.Application, log *logger.Logger, cfg RouterConfig) *mux.Router {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log, production: cfg.Production}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	authMW := middleware.NewAuth(application.Auth, log, nil)
	limiter := middleware.NewRateLimiter(cfg.DefaultRateLimitRPM, log)

	protected := r.PathPrefix("/").Subrouter()
	protected.Use(mux.MiddlewareFunc(authMW.Handler), mux.MiddlewareFunc(limiter.Handler))

	protected.HandleFunc("/auth/profile", h.profile).Methods(http.MethodGet)
	protected.HandleFunc("/auth/feed/{type}", h.personalizedFeed).Methods(http.MethodGet)

	protected.HandleFunc("/markets", h.markets).Methods(http.MethodGet)
	protected.HandleFunc("/markets/{marketId}/liquidity", h.liquidity).Methods(http.MethodGet)

	protected.HandleFunc("/social/posts", h.createPost).Methods(http.MethodPost)
	protected.HandleFunc("/social/posts/user/{userId}", h.userPosts).Methods(http.MethodGet)
	protected.HandleFunc("/social/feed", h.socialFeed).Methods(http.MethodGet)
	protected.HandleFunc("/social/follow/{userId}", h.follow).Methods(http.MethodPost)
	protected.HandleFunc("/social/follow/{userId}", h.unfollow).Methods(http.MethodDelete)
	protected.HandleFunc("/social/posts/{postId}/like", h.likePost).Methods(http.MethodPost)
	protected.HandleFunc("/social/posts/{postId}/comment", h.commentOnPost).Methods(http.MethodPost)
	protected.HandleFunc("/social/portfolio/share", h.sharePortfolio).Methods(http.MethodPost)
	protected.HandleFunc("/social/portfolio/{userId}", h.sharedPortfolio).Methods(http.MethodGet)
	protected.HandleFunc("/social/ideas", h.createIdea).Methods(http.MethodPost)
	protected.HandleFunc("/social/ideas/popular", h.popularIdeas).Methods(http.MethodGet)
	protected.HandleFunc("/social/ideas/{ideaId}/follow", h.followIdea).Methods(http.MethodPost)
	protected.HandleFunc("/social/top-traders", h.topTraders).Methods(http.MethodGet)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "gateway"})
}

// Auth -------------------------------------------------------------------------

type identitySummary struct {
	WalletAddress string          `json:"wallet_address"`
	IsHolder      bool            `json:"is_holder"`
	Tier          string          `json:"tier"`
	TierName      string          `json:"tier_name"`
	Points        int             `json:"points"`
	Permissions   []string        `json:"permissions"`
	Limits        identity.Limits `json:"limits"`
}

func summarize(record identity.Record) identitySummary {
	return identitySummary{
		WalletAddress: record.WalletAddress,
		IsHolder:      record.IsHolder,
		Tier:          record.Tier.String(),
		TierName:      record.TierDetails.DisplayName,
		Points:        record.Points,
		Permissions:   record.TierDetails.Permissions,
		Limits:        record.TierDetails.Limits,
	}
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		WalletAddress string `json:"wallet_address"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, errors.Validation("invalid request body"))
		return
	}
	if err := validateWalletAddress(payload.WalletAddress); err != nil {
		h.writeError(w, err)
		return
	}

	record, token, err := h.app.Auth.Login(r.Context(), payload.WalletAddress)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  summarize(record),
	})
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	record, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, errors.InvalidCredential(nil))
		return
	}

	// Re-resolve so the profile reflects current registry state, not the
	// issuance-time snapshot.
	fresh, err := h.app.Auth.Resolve(r.Context(), record.WalletAddress)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"user": summarize(fresh)})
}

func (h *handler) personalizedFeed(w http.ResponseWriter, r *http.Request) {
	record, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, errors.InvalidCredential(nil))
		return
	}
	feedType := mux.Vars(r)["type"]
	h.writeJSON(w, http.StatusOK, h.app.Auth.PersonalizedFeed(record, feedType))
}

// Markets ----------------------------------------------------------------------

func (h *handler) markets(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.app.Market.MarketSummaries(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

func (h *handler) liquidity(w http.ResponseWriter, r *http.Request) {
	liq, err := h.app.Market.LiquidityAnalytics(r.Context(), mux.Vars(r)["marketId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, liq)
}

// Social -----------------------------------------------------------------------

func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	record, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, errors.InvalidCredential(nil))
		return
	}

	var payload struct {
		Content      string   `json:"content"`
		MarketID     string   `json:"market_id"`
		PositionType string   `json:"position_type"`
		EntryPrice   float64  `json:"entry_price"`
		StopLoss     *float64 `json:"stop_loss"`
		TakeProfit   *float64 `json:"take_profit"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, errors.Validation("invalid request body"))
		return
	}

	post, err := h.app.Trading.CreatePost(r.Context(), record.WalletAddress, trading.PostInput{
		Content:      payload.Content,
		MarketID:     payload.MarketID,
		PositionType: payload.PositionType,
		EntryPrice:   payload.EntryPrice,
		StopLoss:     payload.StopLoss,
		TakeProfit:   payload.TakeProfit,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, post)
}

func (h *handler) userPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.app.Trading.UserPosts(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, posts)
}

func (h *handler) socialFeed(w http.ResponseWriter, r *http.Request) {
	record, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, errors.InvalidCredential(nil))
		return
	}
	posts, err := h.app.Trading.SocialFeed(r.Context(), record.WalletAddress, queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, posts)
}

func (h *handler) follow(w http.ResponseWriter, r *http.Request) {
	record, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, errors.InvalidCredential(nil))
		return
	}
	target := mux.Vars(r)["userId"]

	created, err := h.app.Trading.Follow(r.Context(), record.WalletAddress, target)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if !created {
		status = http.StatusConflict
	}
	h.writeJSON(w, status, map[string]bool{"created": created})
}

func (h *handler) unfollow(w http.ResponseWriter, r *http.Request) {
	record, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, errors.InvalidCredential(nil))
		return
	}
	target := mux.Vars(r)["userId"]

	removed, err := h.app.Trading.Unfollow(r.Context(), record.WalletAddress, target)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if !removed {
		status = http.StatusNotFound
	}
	h.writeJSON(w, status, map[string]bool{"removed": removed})
}

func (h *handler) likePost(w http.ResponseWriter, r *http.Request) {
	record, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, errors.InvalidCredential(nil))
		return
	}
	postID := mux.Vars(r)["postId"]

	count, err := h.app.Trading.LikePost(r.Context(), record.WalletAddress, postID)
	if err != nil {
		if errors.IsCode(err, errors.CodeAlreadyActed) {
			h.writeJSON(w, http.StatusConflict, map[string]interface{}{
				"liked":      false,
				"like_count": count,
			})
			return
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"liked":      true,
		"like_count": count,
	})
}

func (h *handler) commentOnPost(w http.ResponseWriter, r *http.Request) {
	record, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, errors.InvalidCredential(nil))
		return
	}
	postID := mux.Vars(r)["postId"]

	var payload struct {
		Comment string `json:"comment"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, errors.Validation("invalid request body"))
		return
	}
	if strings.TrimSpace(payload.Comment) == "" {
		h.writeError(w, errors.Validation("comment is required"))
		return
	}

	comment, err := h.app.Trading.CommentOnPost(r.Context(), record.WalletAddress, postID, payload.Comment)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, comment)
}

func (h *handler) sharePortfolio(w http.ResponseWriter, r *http.Request) {
	record, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, errors.InvalidCredential(nil))
		return
	}

	var payload struct {
		Portfolio map[string]interface{} `json:"portfolio"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, errors.Validation("invalid request body"))
		return
	}

	share, err := h.app.Trading.SharePortfolio(r.Context(), record.WalletAddress, payload.Portfolio)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, share)
}

func (h *handler) sharedPortfolio(w http.ResponseWriter, r *http.Request) {
	share, err := h.app.Trading.SharedPortfolio(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, share)
}

func (h *handler) createIdea(w http.ResponseWriter, r *http.Request) {
	record, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, errors.InvalidCredential(nil))
		return
	}

	var payload struct {
		MarketID     string  `json:"market_id"`
		Thesis       string  `json:"thesis"`
		PositionType string  `json:"position_type"`
		TargetPrice  float64 `json:"target_price"`
		TimeFrame    string  `json:"time_frame"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, errors.Validation("invalid request body"))
		return
	}

	idea, err := h.app.Trading.CreateIdea(r.Context(), record, trading.IdeaInput{
		MarketID:     payload.MarketID,
		Thesis:       payload.Thesis,
		PositionType: payload.PositionType,
		TargetPrice:  payload.TargetPrice,
		TimeFrame:    payload.TimeFrame,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, idea)
}

func (h *handler) popularIdeas(w http.ResponseWriter, r *http.Request) {
	ideas, err := h.app.Trading.PopularIdeas(r.Context(), queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ideas)
}

func (h *handler) followIdea(w http.ResponseWriter, r *http.Request) {
	record, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, errors.InvalidCredential(nil))
		return
	}
	ideaID := mux.Vars(r)["ideaId"]

	count, err := h.app.Trading.FollowIdea(r.Context(), record.WalletAddress, ideaID)
	if err != nil {
		if errors.IsCode(err, errors.CodeAlreadyActed) {
			h.writeJSON(w, http.StatusConflict, map[string]interface{}{
				"following":      false,
				"follower_count": count,
			})
			return
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"following":      true,
		"follower_count": count,
	})
}

func (h *handler) topTraders(w http.ResponseWriter, r *http.Request) {
	traders, err := h.app.Trading.TopTraders(r.Context(), queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, traders)
}

// Helpers ----------------------------------------------------------------------

// validateWalletAddress checks the Injective address prefix. Length is not
// enforced so short local registry entries keep working in development.
func validateWalletAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return errors.Validation("wallet_address is required")
	}
	if !strings.HasPrefix(address, "inj1") {
		return errors.Validation("wallet_address must start with inj1")
	}
	return nil
}

func queryInt(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		se = errors.Internal("unexpected error", err)
	}

	message := se.Message
	if se.HTTPStatus >= http.StatusInternalServerError {
		h.log.WithError(se).Error("request failed")
		if h.production {
			message = "internal error"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(se.HTTPStatus)
	response := map[string]interface{}{
		"error": message,
		"code":  se.Code,
	}
	if len(se.Details) > 0 && !h.production {
		response["details"] = se.Details
	}
	_ = json.NewEncoder(w).Encode(response)
}
