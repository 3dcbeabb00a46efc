// Package market is the client for the external market-data collaborator.
// The gateway treats it as an opaque upstream: summaries, orderbook
// liquidity, and account portfolios come back as JSON and failures surface
// as upstream conditions the caller can retry.
package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/blade-dance/gateway/internal/errors"
	"github.com/blade-dance/gateway/pkg/logger"
)

// Summary describes one tradable market.
type Summary struct {
	MarketID            string `json:"market_id"`
	Ticker              string `json:"ticker"`
	BaseDenom           string `json:"base_denom,omitempty"`
	QuoteDenom          string `json:"quote_denom,omitempty"`
	MakerFeeRate        string `json:"maker_fee_rate"`
	TakerFeeRate        string `json:"taker_fee_rate"`
	MinPriceTickSize    string `json:"min_price_tick_size,omitempty"`
	MinQuantityTickSize string `json:"min_quantity_tick_size,omitempty"`
}

// Level is one orderbook price level.
type Level struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Liquidity aggregates orderbook depth for a market.
type Liquidity struct {
	MarketID          string  `json:"market_id"`
	Bids              []Level `json:"bids"`
	Asks              []Level `json:"asks"`
	TotalBidLiquidity float64 `json:"total_bid_liquidity"`
	TotalAskLiquidity float64 `json:"total_ask_liquidity"`
}

// Balance is one denomination balance of an account.
type Balance struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Portfolio is an account's balances and open positions.
type Portfolio struct {
	Address   string    `json:"address"`
	Balances  []Balance `json:"balances"`
	Positions []string  `json:"positions"`
}

// Client talks to the market-data upstream over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// NewClient builds a client with a request timeout. The timeout bounds every
// call; callers may tighten it further via context.
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("market")
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log,
	}
}

// MarketSummaries fetches market summaries of the given type ("spot",
// "derivative", or empty for all).
func (c *Client) MarketSummaries(ctx context.Context, marketType string) ([]Summary, error) {
	path := "/markets"
	if marketType != "" {
		path += "?type=" + url.QueryEscape(marketType)
	}
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	entries := gjson.GetBytes(body, "markets")
	if !entries.Exists() {
		entries = gjson.ParseBytes(body)
	}
	summaries := make([]Summary, 0)
	entries.ForEach(func(_, m gjson.Result) bool {
		summaries = append(summaries, Summary{
			MarketID:            m.Get("marketId").String(),
			Ticker:              m.Get("ticker").String(),
			BaseDenom:           m.Get("baseDenom").String(),
			QuoteDenom:          m.Get("quoteDenom").String(),
			MakerFeeRate:        m.Get("makerFeeRate").String(),
			TakerFeeRate:        m.Get("takerFeeRate").String(),
			MinPriceTickSize:    m.Get("minPriceTickSize").String(),
			MinQuantityTickSize: m.Get("minQuantityTickSize").String(),
		})
		return true
	})
	return summaries, nil
}

// LiquidityAnalytics fetches orderbook depth for a market and aggregates
// notional liquidity per side.
func (c *Client) LiquidityAnalytics(ctx context.Context, marketID string) (Liquidity, error) {
	if strings.TrimSpace(marketID) == "" {
		return Liquidity{}, errors.Validation("market id is required")
	}
	body, err := c.get(ctx, "/markets/"+url.PathEscape(marketID)+"/orderbook")
	if err != nil {
		return Liquidity{}, err
	}

	liq := Liquidity{MarketID: marketID}
	gjson.GetBytes(body, "orderbook.buyOrders").ForEach(func(_, o gjson.Result) bool {
		lvl := Level{Price: o.Get("price").Float(), Quantity: o.Get("quantity").Float()}
		liq.Bids = append(liq.Bids, lvl)
		liq.TotalBidLiquidity += lvl.Price * lvl.Quantity
		return true
	})
	gjson.GetBytes(body, "orderbook.sellOrders").ForEach(func(_, o gjson.Result) bool {
		lvl := Level{Price: o.Get("price").Float(), Quantity: o.Get("quantity").Float()}
		liq.Asks = append(liq.Asks, lvl)
		liq.TotalAskLiquidity += lvl.Price * lvl.Quantity
		return true
	})
	return liq, nil
}

// AccountPortfolio fetches balances and positions for a wallet. An upstream
// 404 maps to NotFound; everything else that goes wrong is
// UpstreamUnavailable.
func (c *Client) AccountPortfolio(ctx context.Context, walletAddress string) (Portfolio, error) {
	if strings.TrimSpace(walletAddress) == "" {
		return Portfolio{}, errors.Validation("wallet address is required")
	}
	body, err := c.get(ctx, "/accounts/"+url.PathEscape(walletAddress)+"/portfolio")
	if err != nil {
		return Portfolio{}, err
	}

	portfolio := Portfolio{Address: walletAddress}
	gjson.GetBytes(body, "balances").ForEach(func(_, b gjson.Result) bool {
		portfolio.Balances = append(portfolio.Balances, Balance{
			Denom:  b.Get("denom").String(),
			Amount: b.Get("amount").String(),
		})
		return true
	})
	gjson.GetBytes(body, "positions").ForEach(func(_, p gjson.Result) bool {
		portfolio.Positions = append(portfolio.Positions, p.Get("marketId").String())
		return true
	})
	return portfolio, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Internal("build upstream request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Warn("upstream request failed")
		return nil, errors.UpstreamUnavailable("market-data upstream unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.UpstreamUnavailable("read upstream response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NotFound("upstream resource", path)
	case resp.StatusCode >= 400:
		return nil, errors.UpstreamUnavailable(
			fmt.Sprintf("market-data upstream returned %d", resp.StatusCode), nil)
	}
	return body, nil
}
