package api

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// CreateDeposit lists items for auction. Coin values must already be in coin
// cents (see CoinsToCents).
func (c *Client) CreateDeposit(ctx context.Context, req DepositRequest) (*ActionResponse, error) {
	var resp ActionResponse
	if err := c.post(ctx, "/trading/deposit", req, &resp); err != nil {
		return nil, fmt.Errorf("create deposit: %w", err)
	}
	return &resp, nil
}

// CancelDeposit cancels a deposit. The server refuses once a bid exists.
func (c *Client) CancelDeposit(ctx context.Context, depositID int64) (*ActionResponse, error) {
	var resp ActionResponse
	if err := c.post(ctx, depositPath(depositID, "cancel"), nil, &resp); err != nil {
		return nil, fmt.Errorf("cancel deposit %d: %w", depositID, err)
	}
	return &resp, nil
}

// SellNow sells a deposit to the current highest bidder.
func (c *Client) SellNow(ctx context.Context, depositID int64) (*ActionResponse, error) {
	var resp ActionResponse
	if err := c.post(ctx, depositPath(depositID, "sell"), nil, &resp); err != nil {
		return nil, fmt.Errorf("sell deposit %d: %w", depositID, err)
	}
	return &resp, nil
}

// GetListedItems fetches a page of the withdrawal listing.
func (c *Client) GetListedItems(ctx context.Context, page, perPage int, filters Filters) (*ListedItemsResponse, error) {
	var resp ListedItemsResponse
	if err := c.get(ctx, listedItemsPath(page, perPage, filters), &resp); err != nil {
		return nil, fmt.Errorf("get listed items: %w", err)
	}
	return &resp, nil
}

// GetDepositorStats fetches delivery statistics for the depositor of an item.
func (c *Client) GetDepositorStats(ctx context.Context, depositID int64) (*DepositorStatsResponse, error) {
	var resp DepositorStatsResponse
	if err := c.get(ctx, depositPath(depositID, "bidder-stats"), &resp); err != nil {
		return nil, fmt.Errorf("get depositor stats %d: %w", depositID, err)
	}
	return &resp, nil
}

// CreateWithdrawal withdraws an expired auction item nobody won.
func (c *Client) CreateWithdrawal(ctx context.Context, depositID, coinValue int64) (*ActionResponse, error) {
	var resp ActionResponse
	req := WithdrawRequest{CoinValue: coinValue}
	if err := c.post(ctx, depositPath(depositID, "withdraw"), req, &resp); err != nil {
		return nil, fmt.Errorf("create withdrawal %d: %w", depositID, err)
	}
	return &resp, nil
}

// PlaceBid bids bidValue coin cents on a deposit's auction.
func (c *Client) PlaceBid(ctx context.Context, depositID, bidValue int64) (*ActionResponse, error) {
	var resp ActionResponse
	req := BidRequest{BidValue: bidValue}
	if err := c.post(ctx, depositPath(depositID, "bid"), req, &resp); err != nil {
		return nil, fmt.Errorf("place bid %d: %w", depositID, err)
	}
	return &resp, nil
}

func depositPath(depositID int64, action string) string {
	return "/trading/deposit/" + strconv.FormatInt(depositID, 10) + "/" + action
}

// listedItemsPath keeps page and per_page first; filters follow in key order.
func listedItemsPath(page, perPage int, filters Filters) string {
	var b strings.Builder
	b.WriteString("/trading/items?page=")
	b.WriteString(strconv.Itoa(page))
	b.WriteString("&per_page=")
	b.WriteString(strconv.Itoa(perPage))

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range filterValues(filters[k]) {
			b.WriteByte('&')
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// filterValues formats one filter value. nil yields nothing and a string
// slice yields one value per element.
func filterValues(v any) []string {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case bool:
		return []string{strconv.FormatBool(v)}
	case int:
		return []string{strconv.Itoa(v)}
	case int8, int16, int32, int64:
		return []string{fmt.Sprint(v)}
	case uint, uint8, uint16, uint32, uint64:
		return []string{fmt.Sprint(v)}
	case float32:
		return []string{strconv.FormatFloat(float64(v), 'f', -1, 32)}
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	case fmt.Stringer:
		return []string{v.String()}
	default:
		return []string{fmt.Sprint(v)}
	}
}
