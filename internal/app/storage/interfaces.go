package storage

import (
	"context"
	"errors"

	"github.com/blade-dance/gateway/internal/app/domain/social"
)

// Sentinel errors. Services translate these into the boundary taxonomy.
var (
	// ErrNotFound reports a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyActed reports an idempotent no-op: the caller already
	// performed this action and no state changed.
	ErrAlreadyActed = errors.New("already acted")
)

// TraderRank is one entry of the top-traders ranking.
type TraderRank struct {
	UserID    string `json:"user_id"`
	PostCount int    `json:"post_count"`
}

// PostStore persists trading posts and their likes and comments.
type PostStore interface {
	CreatePost(ctx context.Context, post social.Post) (social.Post, error)
	GetPost(ctx context.Context, id string) (social.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]social.Post, error)

	// LikePost records a like and returns the new like count. A repeated
	// like by the same user returns ErrAlreadyActed and leaves the count
	// unchanged; an unknown post returns ErrNotFound.
	LikePost(ctx context.Context, userID, postID string) (int, error)
	AddComment(ctx context.Context, postID string, comment social.Comment) (social.Comment, error)
}

// FollowStore persists the directed follow graph.
type FollowStore interface {
	// Follow returns false when the edge already exists.
	Follow(ctx context.Context, followerID, followedID string) (bool, error)
	// Unfollow returns false when the edge is absent.
	Unfollow(ctx context.Context, followerID, followedID string) (bool, error)
	ListFollowing(ctx context.Context, followerID string) ([]string, error)
}

// FeedStore derives post feeds and rankings.
type FeedStore interface {
	// FeedFor returns posts authored by userID or anyone userID follows,
	// newest first, insertion sequence breaking timestamp ties.
	FeedFor(ctx context.Context, userID string, limit int) ([]social.Post, error)
	// TopTraders ranks authors by post count descending; equal counts are
	// ordered by earliest first post.
	TopTraders(ctx context.Context, limit int) ([]TraderRank, error)
}

// IdeaStore persists trade ideas and their follower sets.
type IdeaStore interface {
	CreateIdea(ctx context.Context, idea social.TradeIdea) (social.TradeIdea, error)
	GetIdea(ctx context.Context, id string) (social.TradeIdea, error)

	// FollowIdea records a follower and returns the new follower count,
	// with the same idempotency contract as PostStore.LikePost.
	FollowIdea(ctx context.Context, userID, ideaID string) (int, error)
	// PopularIdeas ranks by followers+conviction descending, ties broken by
	// earliest creation.
	PopularIdeas(ctx context.Context, limit int) ([]social.TradeIdea, error)
}

// PortfolioShareStore persists published portfolio snapshots.
type PortfolioShareStore interface {
	// SetPortfolioShare stores the share, replacing any previous one for
	// the same user.
	SetPortfolioShare(ctx context.Context, share social.PortfolioShare) (social.PortfolioShare, error)
	GetPortfolioShare(ctx context.Context, userID string) (social.PortfolioShare, error)
}

// SocialStore is the full social-graph persistence surface.
type SocialStore interface {
	PostStore
	FollowStore
	FeedStore
	IdeaStore
	PortfolioShareStore
}
