package trading

import (
	"context"
	"testing"

	"github.com/blade-dance/gateway/internal/app/domain/identity"
	"github.com/blade-dance/gateway/internal/app/services/auth"
	"github.com/blade-dance/gateway/internal/app/storage"
	"github.com/blade-dance/gateway/internal/errors"
	"github.com/blade-dance/gateway/internal/market"
)

type stubPortfolios struct {
	err error
}

func (s stubPortfolios) AccountPortfolio(context.Context, string) (market.Portfolio, error) {
	if s.err != nil {
		return market.Portfolio{}, s.err
	}
	return market.Portfolio{}, nil
}

func newTestService(t *testing.T, portfolios PortfolioFetcher) (*Service, *auth.Service) {
	t.Helper()
	authSvc := auth.New(nil, nil, []byte("test-secret"), 0, nil)
	return New(storage.NewMemory(), authSvc, authSvc, portfolios, nil), authSvc
}

func validPost() PostInput {
	return PostInput{
		Content:      "Long INJ into the upgrade",
		MarketID:     "inj-usdt-spot",
		PositionType: "long",
		EntryPrice:   24.5,
	}
}

func TestCreatePost(t *testing.T) {
	svc, _ := newTestService(t, nil)

	post, err := svc.CreatePost(context.Background(), "inj1purpleholder", validPost())
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.ID == "" {
		t.Fatalf("expected generated post id")
	}
	if post.AuthorID != "inj1purpleholder" || post.LikeCount != 0 {
		t.Fatalf("unexpected post: %+v", post)
	}
}

func TestCreatePost_Validation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	cases := map[string]PostInput{
		"missing content":  {MarketID: "inj-usdt-spot", PositionType: "long", EntryPrice: 1},
		"missing market":   {Content: "x", PositionType: "long", EntryPrice: 1},
		"bad position":     {Content: "x", MarketID: "m", PositionType: "sideways", EntryPrice: 1},
		"zero entry price": {Content: "x", MarketID: "m", PositionType: "long"},
	}
	for name, input := range cases {
		if _, err := svc.CreatePost(ctx, "inj1purpleholder", input); !errors.IsCode(err, errors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestFollow_SelfFollowRejected(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.Follow(context.Background(), "inj1alice", "inj1alice"); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLikePost_Idempotent(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, "inj1alice", validPost())
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	count, err := svc.LikePost(ctx, "inj1bob", post.ID)
	if err != nil || count != 1 {
		t.Fatalf("first like: count=%d err=%v", count, err)
	}

	count, err = svc.LikePost(ctx, "inj1bob", post.ID)
	if !errors.IsCode(err, errors.CodeAlreadyActed) {
		t.Fatalf("expected AlreadyActed, got %v", err)
	}
	if count != 1 {
		t.Fatalf("repeat like changed count: %d", count)
	}

	if _, err := svc.LikePost(ctx, "inj1bob", "missing"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCreateIdea_GatedByExclusiveData(t *testing.T) {
	svc, authSvc := newTestService(t, nil)
	ctx := context.Background()

	input := IdeaInput{
		MarketID:     "inj-usdt-spot",
		Thesis:       "Supply shock after the burn",
		PositionType: "long",
		TargetPrice:  40,
		TimeFrame:    "3m",
	}

	// Purple holds social trading but not exclusive data.
	purple, err := authSvc.Resolve(ctx, "inj1purpleholder")
	if err != nil {
		t.Fatalf("resolve purple: %v", err)
	}
	if _, err := svc.CreateIdea(ctx, purple, input); !errors.IsCode(err, errors.CodeForbidden) {
		t.Fatalf("expected Forbidden for purple, got %v", err)
	}

	// But a trading post is within purple's reach.
	if _, err := svc.CreatePost(ctx, purple.WalletAddress, validPost()); err != nil {
		t.Fatalf("purple post: %v", err)
	}

	orange, err := authSvc.Resolve(ctx, "inj1orangeholder")
	if err != nil {
		t.Fatalf("resolve orange: %v", err)
	}
	idea, err := svc.CreateIdea(ctx, orange, input)
	if err != nil {
		t.Fatalf("orange idea: %v", err)
	}
	if idea.Status != "active" || idea.AuthorID != orange.WalletAddress {
		t.Fatalf("unexpected idea: %+v", idea)
	}
}

func TestCreateIdea_PermissionCheckedBeforeValidation(t *testing.T) {
	svc, authSvc := newTestService(t, nil)
	ctx := context.Background()

	purple, err := authSvc.Resolve(ctx, "inj1purpleholder")
	if err != nil {
		t.Fatalf("resolve purple: %v", err)
	}
	// Invalid input, but the permission denial must win.
	if _, err := svc.CreateIdea(ctx, purple, IdeaInput{}); !errors.IsCode(err, errors.CodeForbidden) {
		t.Fatalf("expected Forbidden before validation, got %v", err)
	}
}

func TestFollowIdea_Idempotent(t *testing.T) {
	svc, authSvc := newTestService(t, nil)
	ctx := context.Background()

	orange, err := authSvc.Resolve(ctx, "inj1orangeholder")
	if err != nil {
		t.Fatalf("resolve orange: %v", err)
	}
	idea, err := svc.CreateIdea(ctx, orange, IdeaInput{
		MarketID: "inj-usdt-spot", Thesis: "t", PositionType: "short", TargetPrice: 10,
	})
	if err != nil {
		t.Fatalf("create idea: %v", err)
	}

	count, err := svc.FollowIdea(ctx, "inj1bob", idea.ID)
	if err != nil || count != 1 {
		t.Fatalf("first follow: count=%d err=%v", count, err)
	}
	count, err = svc.FollowIdea(ctx, "inj1bob", idea.ID)
	if !errors.IsCode(err, errors.CodeAlreadyActed) || count != 1 {
		t.Fatalf("repeat follow: count=%d err=%v", count, err)
	}
}

func TestTopTraders_AnnotatesTier(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.CreatePost(ctx, "inj1purpleholder", validPost()); err != nil {
			t.Fatalf("purple post: %v", err)
		}
	}
	if _, err := svc.CreatePost(ctx, "inj1nobody", validPost()); err != nil {
		t.Fatalf("standard post: %v", err)
	}

	traders, err := svc.TopTraders(ctx, 0)
	if err != nil {
		t.Fatalf("top traders: %v", err)
	}
	if len(traders) != 2 {
		t.Fatalf("expected 2 traders, got %d", len(traders))
	}
	if traders[0].UserID != "inj1purpleholder" || traders[0].PostCount != 2 {
		t.Fatalf("unexpected leader: %+v", traders[0])
	}
	if traders[0].Tier != identity.TierPurple || traders[0].TierName != "N1NJ4 Purple" {
		t.Fatalf("leader not annotated with live tier: %+v", traders[0])
	}
	if traders[1].Tier != identity.TierStandard {
		t.Fatalf("non-holder must annotate as standard: %+v", traders[1])
	}
}

func TestSharePortfolio(t *testing.T) {
	svc, _ := newTestService(t, stubPortfolios{})
	ctx := context.Background()

	payload := map[string]interface{}{"inj": 120.5, "atom": 40.0}
	share, err := svc.SharePortfolio(ctx, "inj1purpleholder", payload)
	if err != nil {
		t.Fatalf("share portfolio: %v", err)
	}
	if share.SharedAt.IsZero() {
		t.Fatalf("expected SharedAt to be set")
	}

	got, err := svc.SharedPortfolio(ctx, "inj1purpleholder")
	if err != nil {
		t.Fatalf("get shared portfolio: %v", err)
	}
	if got.Payload["inj"] != 120.5 {
		t.Fatalf("unexpected payload: %v", got.Payload)
	}

	if _, err := svc.SharedPortfolio(ctx, "inj1nobody"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSharePortfolio_CorroborationFailure(t *testing.T) {
	ctx := context.Background()
	payload := map[string]interface{}{"inj": 1.0}

	// Upstream says the wallet has no portfolio at all.
	svc, _ := newTestService(t, stubPortfolios{err: errors.NotFound("portfolio", "inj1alice")})
	if _, err := svc.SharePortfolio(ctx, "inj1alice", payload); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NotFound to pass through, got %v", err)
	}

	// Upstream unreachable.
	svc, _ = newTestService(t, stubPortfolios{err: context.DeadlineExceeded})
	if _, err := svc.SharePortfolio(ctx, "inj1alice", payload); !errors.IsCode(err, errors.CodeUpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable, got %v", err)
	}

	// Empty payload never reaches the upstream.
	svc, _ = newTestService(t, stubPortfolios{err: context.DeadlineExceeded})
	if _, err := svc.SharePortfolio(ctx, "inj1alice", nil); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}
