// Package trading implements the social-trading operations: posts, the
// follow graph, likes, comments, trade ideas, rankings, and portfolio
// sharing. Every gated operation checks the caller's credential snapshot
// before touching the store.
package trading

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/blade-dance/gateway/internal/app/domain/identity"
	"github.com/blade-dance/gateway/internal/app/domain/social"
	"github.com/blade-dance/gateway/internal/app/storage"
	"github.com/blade-dance/gateway/internal/errors"
	"github.com/blade-dance/gateway/internal/market"
	"github.com/blade-dance/gateway/pkg/logger"
)

// PermissionChecker enforces capability checks against a credential's
// embedded permission snapshot.
type PermissionChecker interface {
	RequirePermission(record identity.Record, permission string) error
}

// IdentityResolver resolves a wallet to its current identity record.
type IdentityResolver interface {
	Resolve(ctx context.Context, walletAddress string) (identity.Record, error)
}

// PortfolioFetcher corroborates that a wallet holds some portfolio with the
// market-data collaborator.
type PortfolioFetcher interface {
	AccountPortfolio(ctx context.Context, walletAddress string) (market.Portfolio, error)
}

// PostInput carries the fields of a new trading post.
type PostInput struct {
	Content      string
	MarketID     string
	PositionType string
	EntryPrice   float64
	StopLoss     *float64
	TakeProfit   *float64
}

// IdeaInput carries the fields of a new trade idea.
type IdeaInput struct {
	MarketID     string
	Thesis       string
	PositionType string
	TargetPrice  float64
	TimeFrame    string
}

// TopTrader is a ranking entry annotated with the author's live identity.
type TopTrader struct {
	UserID    string        `json:"user_id"`
	PostCount int           `json:"post_count"`
	Tier      identity.Tier `json:"tier"`
	TierName  string        `json:"tier_name"`
}

// Service owns the social-trading state machine.
type Service struct {
	store      storage.SocialStore
	guard      PermissionChecker
	resolver   IdentityResolver
	portfolios PortfolioFetcher
	log        *logger.Logger
}

// New constructs the service. A nil store defaults to the in-memory
// implementation.
func New(store storage.SocialStore, guard PermissionChecker, resolver IdentityResolver, portfolios PortfolioFetcher, log *logger.Logger) *Service {
	if store == nil {
		store = storage.NewMemory()
	}
	if log == nil {
		log = logger.NewDefault("trading")
	}
	return &Service{
		store:      store,
		guard:      guard,
		resolver:   resolver,
		portfolios: portfolios,
		log:        log,
	}
}

// CreatePost validates and stores a new trading post.
func (s *Service) CreatePost(ctx context.Context, authorID string, input PostInput) (social.Post, error) {
	if strings.TrimSpace(input.Content) == "" || strings.TrimSpace(input.MarketID) == "" {
		return social.Post{}, errors.Validation("content and market_id are required")
	}
	position, ok := social.ParsePositionType(input.PositionType)
	if !ok {
		return social.Post{}, errors.Validation("position_type must be long or short")
	}
	if input.EntryPrice <= 0 {
		return social.Post{}, errors.Validation("entry_price must be positive")
	}

	post := social.Post{
		ID:         uuid.NewString(),
		AuthorID:   authorID,
		Content:    input.Content,
		MarketID:   input.MarketID,
		Position:   position,
		EntryPrice: input.EntryPrice,
		StopLoss:   input.StopLoss,
		TakeProfit: input.TakeProfit,
	}
	created, err := s.store.CreatePost(ctx, post)
	if err != nil {
		return social.Post{}, err
	}
	s.log.WithField("post_id", created.ID).
		WithField("author", authorID).
		WithField("market_id", created.MarketID).
		Info("trading post created")
	return created, nil
}

// UserPosts lists posts authored by a user, newest first.
func (s *Service) UserPosts(ctx context.Context, userID string) ([]social.Post, error) {
	return s.store.ListPostsByAuthor(ctx, userID)
}

// SocialFeed returns the caller's feed: own posts plus followed authors'.
func (s *Service) SocialFeed(ctx context.Context, userID string, limit int) ([]social.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.FeedFor(ctx, userID, limit)
}

// Follow adds a follow edge. The returned bool is false when the edge
// already existed.
func (s *Service) Follow(ctx context.Context, followerID, followedID string) (bool, error) {
	if followerID == followedID {
		return false, errors.Validation("cannot follow yourself")
	}
	return s.store.Follow(ctx, followerID, followedID)
}

// Unfollow removes a follow edge. The returned bool is false when the edge
// was absent.
func (s *Service) Unfollow(ctx context.Context, followerID, followedID string) (bool, error) {
	return s.store.Unfollow(ctx, followerID, followedID)
}

// LikePost records a like. A repeated like is an idempotent no-op reported
// as AlreadyActed with the unchanged count.
func (s *Service) LikePost(ctx context.Context, userID, postID string) (int, error) {
	count, err := s.store.LikePost(ctx, userID, postID)
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return 0, errors.NotFound("post", postID)
	case stderrors.Is(err, storage.ErrAlreadyActed):
		return count, errors.AlreadyActed("post already liked")
	case err != nil:
		return 0, err
	}
	return count, nil
}

// CommentOnPost appends a comment to a post.
func (s *Service) CommentOnPost(ctx context.Context, userID, postID, body string) (social.Comment, error) {
	comment := social.Comment{
		ID:       uuid.NewString(),
		AuthorID: userID,
		Body:     body,
	}
	created, err := s.store.AddComment(ctx, postID, comment)
	if stderrors.Is(err, storage.ErrNotFound) {
		return social.Comment{}, errors.NotFound("post", postID)
	}
	return created, err
}

// CreateIdea stores a trade idea. The exclusive-data permission is a hard
// precondition checked against the caller's credential before any mutation.
func (s *Service) CreateIdea(ctx context.Context, record identity.Record, input IdeaInput) (social.TradeIdea, error) {
	if err := s.guard.RequirePermission(record, identity.PermExclusiveData); err != nil {
		return social.TradeIdea{}, err
	}

	if strings.TrimSpace(input.MarketID) == "" || strings.TrimSpace(input.Thesis) == "" {
		return social.TradeIdea{}, errors.Validation("market_id and thesis are required")
	}
	position, ok := social.ParsePositionType(input.PositionType)
	if !ok {
		return social.TradeIdea{}, errors.Validation("position_type must be long or short")
	}
	if input.TargetPrice <= 0 {
		return social.TradeIdea{}, errors.Validation("target_price must be positive")
	}

	idea := social.TradeIdea{
		ID:          uuid.NewString(),
		AuthorID:    record.WalletAddress,
		MarketID:    input.MarketID,
		Thesis:      input.Thesis,
		Position:    position,
		TargetPrice: input.TargetPrice,
		TimeFrame:   input.TimeFrame,
		Status:      social.IdeaActive,
	}
	created, err := s.store.CreateIdea(ctx, idea)
	if err != nil {
		return social.TradeIdea{}, err
	}
	s.log.WithField("idea_id", created.ID).
		WithField("author", record.WalletAddress).
		WithField("market_id", created.MarketID).
		Info("trade idea created")
	return created, nil
}

// FollowIdea records an idea follower with the same idempotency contract as
// post likes.
func (s *Service) FollowIdea(ctx context.Context, userID, ideaID string) (int, error) {
	count, err := s.store.FollowIdea(ctx, userID, ideaID)
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return 0, errors.NotFound("trade idea", ideaID)
	case stderrors.Is(err, storage.ErrAlreadyActed):
		return count, errors.AlreadyActed("already following this trade idea")
	case err != nil:
		return 0, err
	}
	return count, nil
}

// PopularIdeas ranks ideas by followers plus conviction.
func (s *Service) PopularIdeas(ctx context.Context, limit int) ([]social.TradeIdea, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.PopularIdeas(ctx, limit)
}

// TopTraders ranks authors by post count and annotates each with the
// author's current tier.
func (s *Service) TopTraders(ctx context.Context, limit int) ([]TopTrader, error) {
	if limit <= 0 {
		limit = 10
	}
	ranks, err := s.store.TopTraders(ctx, limit)
	if err != nil {
		return nil, err
	}

	traders := make([]TopTrader, 0, len(ranks))
	for _, rank := range ranks {
		trader := TopTrader{UserID: rank.UserID, PostCount: rank.PostCount}
		if s.resolver != nil {
			record, err := s.resolver.Resolve(ctx, rank.UserID)
			if err != nil {
				return nil, err
			}
			trader.Tier = record.Tier
			trader.TierName = record.TierDetails.DisplayName
		}
		traders = append(traders, trader)
	}
	return traders, nil
}

// SharePortfolio publishes a portfolio snapshot. The store only corroborates
// that the upstream can return *a* portfolio for the user; the shared
// payload is stored as given and never checked against the fetched one.
func (s *Service) SharePortfolio(ctx context.Context, userID string, payload map[string]interface{}) (social.PortfolioShare, error) {
	if len(payload) == 0 {
		return social.PortfolioShare{}, errors.Validation("portfolio payload is required")
	}
	if s.portfolios != nil {
		if _, err := s.portfolios.AccountPortfolio(ctx, userID); err != nil {
			if se := errors.GetServiceError(err); se != nil {
				return social.PortfolioShare{}, se
			}
			return social.PortfolioShare{}, errors.UpstreamUnavailable(
				fmt.Sprintf("could not verify portfolio for %s", userID), err)
		}
	}

	share := social.PortfolioShare{UserID: userID, Payload: payload}
	stored, err := s.store.SetPortfolioShare(ctx, share)
	if err != nil {
		return social.PortfolioShare{}, err
	}
	s.log.WithField("user", userID).Info("portfolio shared")
	return stored, nil
}

// SharedPortfolio returns a user's published portfolio.
func (s *Service) SharedPortfolio(ctx context.Context, userID string) (social.PortfolioShare, error) {
	share, err := s.store.GetPortfolioShare(ctx, userID)
	if stderrors.Is(err, storage.ErrNotFound) {
		return social.PortfolioShare{}, errors.NotFound("portfolio share", userID)
	}
	return share, err
}
