package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/blade-dance/gateway/internal/app/domain/social"
)

// Memory is a thread-safe in-memory implementation of SocialStore. It is
// the single owner of social-graph state in a process: every mutation runs
// under the write lock, and reads copy under the read lock so callers never
// observe a partially applied mutation.
type Memory struct {
	mu      sync.RWMutex
	nextSeq int64

	posts     map[string]*postRecord
	postOrder []string // insertion order, oldest first

	following map[string]map[string]struct{}

	ideas     map[string]*ideaRecord
	ideaOrder []string

	portfolios map[string]social.PortfolioShare
}

type postRecord struct {
	post    social.Post
	likedBy map[string]struct{}
	seq     int64
}

type ideaRecord struct {
	idea       social.TradeIdea
	followedBy map[string]struct{}
	seq        int64
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		nextSeq:    1,
		posts:      make(map[string]*postRecord),
		following:  make(map[string]map[string]struct{}),
		ideas:      make(map[string]*ideaRecord),
		portfolios: make(map[string]social.PortfolioShare),
	}
}

func (m *Memory) nextSeqLocked() int64 {
	seq := m.nextSeq
	m.nextSeq++
	return seq
}

// PostStore implementation ----------------------------------------------------

func (m *Memory) CreatePost(_ context.Context, post social.Post) (social.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.LikeCount = 0
	post.Comments = nil
	post.ShareCount = 0

	m.posts[post.ID] = &postRecord{
		post:    post,
		likedBy: make(map[string]struct{}),
		seq:     m.nextSeqLocked(),
	}
	m.postOrder = append(m.postOrder, post.ID)
	return clonePost(post), nil
}

func (m *Memory) GetPost(_ context.Context, id string) (social.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.posts[id]
	if !ok {
		return social.Post{}, ErrNotFound
	}
	return clonePost(rec.post), nil
}

func (m *Memory) ListPostsByAuthor(_ context.Context, authorID string) ([]social.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]social.Post, 0)
	for i := len(m.postOrder) - 1; i >= 0; i-- {
		rec := m.posts[m.postOrder[i]]
		if rec.post.AuthorID == authorID {
			result = append(result, clonePost(rec.post))
		}
	}
	return result, nil
}

// LikePost is an atomic check-and-set on the liked-by set: two concurrent
// likes by the same user record exactly one.
func (m *Memory) LikePost(_ context.Context, userID, postID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.posts[postID]
	if !ok {
		return 0, ErrNotFound
	}
	if _, liked := rec.likedBy[userID]; liked {
		return rec.post.LikeCount, ErrAlreadyActed
	}
	rec.likedBy[userID] = struct{}{}
	rec.post.LikeCount = len(rec.likedBy)
	return rec.post.LikeCount, nil
}

func (m *Memory) AddComment(_ context.Context, postID string, comment social.Comment) (social.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.posts[postID]
	if !ok {
		return social.Comment{}, ErrNotFound
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	rec.post.Comments = append(rec.post.Comments, comment)
	return comment, nil
}

// FollowStore implementation --------------------------------------------------

func (m *Memory) Follow(_ context.Context, followerID, followedID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.following[followerID]
	if !ok {
		set = make(map[string]struct{})
		m.following[followerID] = set
	}
	if _, exists := set[followedID]; exists {
		return false, nil
	}
	set[followedID] = struct{}{}
	return true, nil
}

func (m *Memory) Unfollow(_ context.Context, followerID, followedID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.following[followerID]
	if !ok {
		return false, nil
	}
	if _, exists := set[followedID]; !exists {
		return false, nil
	}
	delete(set, followedID)
	return true, nil
}

func (m *Memory) ListFollowing(_ context.Context, followerID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := m.following[followerID]
	result := make([]string, 0, len(set))
	for id := range set {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}

// FeedStore implementation ----------------------------------------------------

// FeedFor walks posts in reverse insertion order. CreatedAt is assigned by
// the store at insertion, so reverse insertion order is newest-first with a
// deterministic tiebreak when timestamps collide.
func (m *Memory) FeedFor(_ context.Context, userID string, limit int) ([]social.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	followed := m.following[userID]
	result := make([]social.Post, 0)
	for i := len(m.postOrder) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		rec := m.posts[m.postOrder[i]]
		if rec.post.AuthorID == userID {
			result = append(result, clonePost(rec.post))
			continue
		}
		if _, ok := followed[rec.post.AuthorID]; ok {
			result = append(result, clonePost(rec.post))
		}
	}
	return result, nil
}

// TopTraders ranks authors by post count descending. Equal counts are
// ordered by the author's first post (insertion sequence) so repeated calls
// over unchanged state return the same ranking.
func (m *Memory) TopTraders(_ context.Context, limit int) ([]TraderRank, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	firstSeq := make(map[string]int64)
	for _, id := range m.postOrder {
		rec := m.posts[id]
		counts[rec.post.AuthorID]++
		if _, seen := firstSeq[rec.post.AuthorID]; !seen {
			firstSeq[rec.post.AuthorID] = rec.seq
		}
	}

	ranks := make([]TraderRank, 0, len(counts))
	for userID, count := range counts {
		ranks = append(ranks, TraderRank{UserID: userID, PostCount: count})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].PostCount != ranks[j].PostCount {
			return ranks[i].PostCount > ranks[j].PostCount
		}
		return firstSeq[ranks[i].UserID] < firstSeq[ranks[j].UserID]
	})

	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks, nil
}

// IdeaStore implementation ----------------------------------------------------

func (m *Memory) CreateIdea(_ context.Context, idea social.TradeIdea) (social.TradeIdea, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = time.Now().UTC()
	}
	if idea.Status == "" {
		idea.Status = social.IdeaActive
	}
	idea.FollowerCount = 0

	m.ideas[idea.ID] = &ideaRecord{
		idea:       idea,
		followedBy: make(map[string]struct{}),
		seq:        m.nextSeqLocked(),
	}
	m.ideaOrder = append(m.ideaOrder, idea.ID)
	return idea, nil
}

func (m *Memory) GetIdea(_ context.Context, id string) (social.TradeIdea, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.ideas[id]
	if !ok {
		return social.TradeIdea{}, ErrNotFound
	}
	return rec.idea, nil
}

func (m *Memory) FollowIdea(_ context.Context, userID, ideaID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.ideas[ideaID]
	if !ok {
		return 0, ErrNotFound
	}
	if _, following := rec.followedBy[userID]; following {
		return rec.idea.FollowerCount, ErrAlreadyActed
	}
	rec.followedBy[userID] = struct{}{}
	rec.idea.FollowerCount = len(rec.followedBy)
	return rec.idea.FollowerCount, nil
}

func (m *Memory) PopularIdeas(_ context.Context, limit int) ([]social.TradeIdea, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]social.TradeIdea, 0, len(m.ideaOrder))
	for _, id := range m.ideaOrder {
		result = append(result, m.ideas[id].idea)
	}
	// Input is in creation order, so the stable sort keeps equal scores in
	// creation order.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score() > result[j].Score()
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// PortfolioShareStore implementation ------------------------------------------

func (m *Memory) SetPortfolioShare(_ context.Context, share social.PortfolioShare) (social.PortfolioShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if share.SharedAt.IsZero() {
		share.SharedAt = time.Now().UTC()
	}
	share.Payload = copyPayload(share.Payload)
	m.portfolios[share.UserID] = share
	return cloneShare(share), nil
}

func (m *Memory) GetPortfolioShare(_ context.Context, userID string) (social.PortfolioShare, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	share, ok := m.portfolios[userID]
	if !ok {
		return social.PortfolioShare{}, ErrNotFound
	}
	return cloneShare(share), nil
}

// Helpers ---------------------------------------------------------------------

func clonePost(post social.Post) social.Post {
	post.Comments = append([]social.Comment(nil), post.Comments...)
	if post.StopLoss != nil {
		v := *post.StopLoss
		post.StopLoss = &v
	}
	if post.TakeProfit != nil {
		v := *post.TakeProfit
		post.TakeProfit = &v
	}
	return post
}

func cloneShare(share social.PortfolioShare) social.PortfolioShare {
	share.Payload = copyPayload(share.Payload)
	return share
}

func copyPayload(src map[string]interface{}) map[string]interface{} {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
