// Package social defines the social-trading entities: posts, comments,
// follow edges, trade ideas, and portfolio shares.
package social

import "time"

// PositionType is the direction of a shared position.
type PositionType string

const (
	PositionLong  PositionType = "long"
	PositionShort PositionType = "short"
)

// ParsePositionType converts a string to a PositionType.
func ParsePositionType(s string) (PositionType, bool) {
	switch PositionType(s) {
	case PositionLong, PositionShort:
		return PositionType(s), true
	default:
		return "", false
	}
}

// Comment is an append-only child of exactly one post.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a shared trading position. Posts are never deleted.
type Post struct {
	ID         string       `json:"id"`
	AuthorID   string       `json:"author_id"`
	Content    string       `json:"content"`
	MarketID   string       `json:"market_id"`
	Position   PositionType `json:"position_type"`
	EntryPrice float64      `json:"entry_price"`
	StopLoss   *float64     `json:"stop_loss,omitempty"`
	TakeProfit *float64     `json:"take_profit,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	LikeCount  int          `json:"like_count"`
	Comments   []Comment    `json:"comments"`
	ShareCount int          `json:"share_count"`
}

// IdeaStatus is the lifecycle state of a trade idea.
type IdeaStatus string

const (
	IdeaActive   IdeaStatus = "active"
	IdeaExecuted IdeaStatus = "executed"
	IdeaClosed   IdeaStatus = "closed"
)

// TradeIdea is a premium-tier directional market thesis. FollowerCount is
// always the cardinality of the dedup follower set, never an independent
// counter.
type TradeIdea struct {
	ID            string       `json:"id"`
	AuthorID      string       `json:"author_id"`
	MarketID      string       `json:"market_id"`
	Thesis        string       `json:"thesis"`
	Position      PositionType `json:"position_type"`
	TargetPrice   float64      `json:"target_price"`
	TimeFrame     string       `json:"time_frame"`
	CreatedAt     time.Time    `json:"created_at"`
	Status        IdeaStatus   `json:"status"`
	FollowerCount int          `json:"follower_count"`
	Conviction    int          `json:"conviction"`
}

// Score is the popularity ranking key: followers plus conviction.
func (i TradeIdea) Score() int { return i.FollowerCount + i.Conviction }

// PortfolioShare is a user's published portfolio snapshot. At most one per
// user; last write wins.
type PortfolioShare struct {
	UserID   string                 `json:"user_id"`
	Payload  map[string]interface{} `json:"payload"`
	SharedAt time.Time              `json:"shared_at"`
}
