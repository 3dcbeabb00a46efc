package auth

import "github.com/blade-dance/gateway/internal/app/domain/identity"

// FeedItem is one entry of a personalized feed.
type FeedItem map[string]interface{}

// FeedPayload is a tier-personalized data feed.
type FeedPayload struct {
	FeedType string     `json:"feed_type"`
	Tier     string     `json:"tier"`
	TierName string     `json:"tier_name"`
	Items    []FeedItem `json:"items"`
}

// PersonalizedFeed derives the feed for a resolved identity. It is a pure
// function of (tier, feedType). For "markets", each tier sees a superset of
// the tier below plus exclusive items; for "analytics", orange and purple
// receive the detailed variant and everyone else the reduced one. An
// unknown feed type returns an empty payload rather than an error.
func (s *Service) PersonalizedFeed(record identity.Record, feedType string) FeedPayload {
	payload := FeedPayload{
		FeedType: feedType,
		Tier:     record.Tier.String(),
		TierName: record.TierDetails.DisplayName,
		Items:    []FeedItem{},
	}

	switch feedType {
	case "markets":
		payload.Items = marketsFeed(record.Tier)
	case "analytics":
		payload.Items = analyticsFeed(record.Tier)
	}
	return payload
}

func marketsFeed(tier identity.Tier) []FeedItem {
	switch tier {
	case identity.TierOrange:
		return []FeedItem{
			{"market_id": "exclusive-market-1", "ticker": "EXCL.USDT", "status": "pre-launch", "access": "orange-only"},
			{"market_id": "inj-usdt-spot", "ticker": "INJ/USDT", "volume": "1.2M", "premium_insights": true},
			{"market_id": "atom-usdt-spot", "ticker": "ATOM/USDT", "volume": "800K", "premium_insights": true},
		}
	case identity.TierPurple:
		return []FeedItem{
			{"market_id": "inj-usdt-spot", "ticker": "INJ/USDT", "volume": "1.2M", "premium_insights": true},
			{"market_id": "atom-usdt-spot", "ticker": "ATOM/USDT", "volume": "800K", "premium_insights": true},
		}
	case identity.TierWhite:
		return []FeedItem{
			{"market_id": "inj-usdt-spot", "ticker": "INJ/USDT", "volume": "1.2M", "premium_insights": false},
			{"market_id": "atom-usdt-spot", "ticker": "ATOM/USDT", "volume": "800K", "premium_insights": false},
		}
	default:
		return []FeedItem{
			{"market_id": "inj-usdt-spot", "ticker": "INJ/USDT", "volume": "1.2M"},
		}
	}
}

func analyticsFeed(tier identity.Tier) []FeedItem {
	if tier == identity.TierOrange || tier == identity.TierPurple {
		return []FeedItem{
			{"type": "sentiment-analysis", "market_id": "inj-usdt", "score": 78, "detailed": true},
			{"type": "manipulation-risk", "market_id": "btc-usdt", "level": "low", "detailed": true},
			{"type": "liquidity-depth", "market_id": "eth-usdt", "score": 92, "detailed": true},
		}
	}
	return []FeedItem{
		{"type": "sentiment-analysis", "market_id": "inj-usdt", "score": 78},
		{"type": "manipulation-risk", "market_id": "btc-usdt", "level": "low"},
	}
}
