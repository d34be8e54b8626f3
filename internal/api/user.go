package api

import (
	"context"
	"fmt"
)

// GetMetadata fetches the current user and the socket credentials used by
// the realtime identify handshake.
func (c *Client) GetMetadata(ctx context.Context) (*MetadataResponse, error) {
	var resp MetadataResponse
	if err := c.get(ctx, "/metadata/socket", &resp); err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	return &resp, nil
}

// GetActiveTrades fetches items currently being deposited or withdrawn.
func (c *Client) GetActiveTrades(ctx context.Context) (*ActiveTradesResponse, error) {
	var resp ActiveTradesResponse
	if err := c.get(ctx, "/trading/user/trades", &resp); err != nil {
		return nil, fmt.Errorf("get active trades: %w", err)
	}
	return &resp, nil
}

// GetActiveAuctions fetches auctions this account is bidding on.
func (c *Client) GetActiveAuctions(ctx context.Context) (*ActiveAuctionsResponse, error) {
	var resp ActiveAuctionsResponse
	if err := c.get(ctx, "/trading/user/auctions", &resp); err != nil {
		return nil, fmt.Errorf("get active auctions: %w", err)
	}
	return &resp, nil
}

// UpdateSettings updates the trade link and/or Steam API key.
func (c *Client) UpdateSettings(ctx context.Context, req SettingsRequest) (*ActionResponse, error) {
	var resp ActionResponse
	if err := c.post(ctx, "/trading/user/settings", req, &resp); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return &resp, nil
}

// GetInventory fetches the Steam inventory. When invalid is true, items the
// platform cannot accept are included.
func (c *Client) GetInventory(ctx context.Context, invalid bool) (*InventoryResponse, error) {
	flag := "no"
	if invalid {
		flag = "yes"
	}

	var resp InventoryResponse
	if err := c.get(ctx, "/trading/user/inventory?invalid="+flag, &resp); err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return &resp, nil
}

// GetUniqueInfo fetches float and sticker details for inventory items.
func (c *Client) GetUniqueInfo(ctx context.Context) (*UniqueInfoResponse, error) {
	var resp UniqueInfoResponse
	if err := c.get(ctx, "/trading/user/inventory/unique-info", &resp); err != nil {
		return nil, fmt.Errorf("get unique info: %w", err)
	}
	return &resp, nil
}
