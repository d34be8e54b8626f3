package api

import (
	"encoding/json"
	"errors"
)

// User is the account object returned by the metadata endpoint.
// Only the id is decoded; the full object is kept verbatim and marshals back
// unmodified.
type User struct {
	ID  int64
	raw json.RawMessage
}

// UnmarshalJSON keeps the raw object alongside the decoded id.
func (u *User) UnmarshalJSON(data []byte) error {
	var head struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	u.ID = head.ID
	u.raw = append(u.raw[:0], data...)
	return nil
}

// MarshalJSON returns the object exactly as received.
func (u User) MarshalJSON() ([]byte, error) {
	if len(u.raw) > 0 {
		return u.raw, nil
	}
	return json.Marshal(struct {
		ID int64 `json:"id"`
	}{u.ID})
}

// Raw returns the user object as received from the server.
func (u User) Raw() json.RawMessage {
	return u.raw
}

// Decode unmarshals the raw user object into v.
func (u User) Decode(v any) error {
	if len(u.raw) == 0 {
		return errors.New("user: no raw object")
	}
	return json.Unmarshal(u.raw, v)
}

// MetadataResponse from GET /metadata/socket
type MetadataResponse struct {
	User            User   `json:"user"`
	SocketToken     string `json:"socket_token"`
	SocketSignature string `json:"socket_signature"`
}

// ActionResponse is the common envelope of state-changing endpoints.
type ActionResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Trade is a deposit or withdrawal in progress.
// Status values are server-defined and passed through as-is.
type Trade struct {
	ID            int64           `json:"id"`
	ItemID        int64           `json:"item_id"`
	TotalValue    int64           `json:"total_value"`
	Status        int             `json:"status"`
	StatusMessage string          `json:"status_message"`
	Item          json.RawMessage `json:"item,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// ActiveTradesResponse from GET /trading/user/trades
type ActiveTradesResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Deposits    []Trade `json:"deposits"`
		Withdrawals []Trade `json:"withdrawals"`
	} `json:"data"`
}

// Auction is an item this account is currently bidding on.
type Auction struct {
	ID                   int64  `json:"id"`
	MarketName           string `json:"market_name"`
	MarketValue          int64  `json:"market_value"`
	AuctionEndsAt        int64  `json:"auction_ends_at"`
	AuctionHighestBid    int64  `json:"auction_highest_bid"`
	AuctionHighestBidder int64  `json:"auction_highest_bidder"`
	AuctionNumberOfBids  int    `json:"auction_number_of_bids"`
}

// ActiveAuctionsResponse from GET /trading/user/auctions
type ActiveAuctionsResponse struct {
	Success        bool      `json:"success"`
	ActiveAuctions []Auction `json:"active_auctions"`
}

// SettingsRequest is the body of POST /trading/user/settings.
type SettingsRequest struct {
	TradeURL    string `json:"trade_url,omitempty"`
	SteamAPIKey string `json:"steam_api_key,omitempty"`
}

// InventoryItem is one Steam inventory item as seen by the platform.
type InventoryItem struct {
	ID          int64           `json:"id"`
	AssetID     int64           `json:"asset_id"`
	MarketName  string          `json:"market_name"`
	MarketValue int64           `json:"market_value"`
	Tradable    bool            `json:"tradable"`
	TradeLock   int             `json:"tradelock"`
	Invalid     string          `json:"invalid,omitempty"`
	Icon        string          `json:"icon_url,omitempty"`
	Stickers    json.RawMessage `json:"stickers,omitempty"`
}

// InventoryResponse from GET /trading/user/inventory
type InventoryResponse struct {
	Success     bool            `json:"success"`
	UpdatedAt   int64           `json:"updatedAt"`
	AllowUpdate bool            `json:"allowUpdate"`
	Data        []InventoryItem `json:"data"`
}

// UniqueInfoResponse from GET /trading/user/inventory/unique-info
// Entries carry float and sticker metadata in a server-defined shape.
type UniqueInfoResponse struct {
	Success bool              `json:"success"`
	Data    []json.RawMessage `json:"data"`
}

// DepositItem is one item in a deposit request. CoinValue is in coin cents.
type DepositItem struct {
	ID        int64 `json:"id"`
	CoinValue int64 `json:"coin_value"`
}

// DepositRequest is the body of POST /trading/deposit.
type DepositRequest struct {
	Items []DepositItem `json:"items"`
}

// ListedItem is an item on the withdrawal page.
type ListedItem struct {
	ID                   int64           `json:"id"`
	MarketName           string          `json:"market_name"`
	MarketValue          int64           `json:"market_value"`
	SuggestedPrice       int64           `json:"suggested_price"`
	AboveRecommended     bool            `json:"above_recommended_price"`
	AuctionEndsAt        *int64          `json:"auction_ends_at"`
	AuctionHighestBid    *int64          `json:"auction_highest_bid"`
	AuctionHighestBidder *int64          `json:"auction_highest_bidder"`
	AuctionNumberOfBids  int             `json:"auction_number_of_bids"`
	PublishedAt          string          `json:"published_at"`
	Wear                 *float64        `json:"wear"`
	Stickers             json.RawMessage `json:"stickers,omitempty"`
}

// ListedItemsResponse from GET /trading/items
type ListedItemsResponse struct {
	CurrentPage int          `json:"current_page"`
	LastPage    int          `json:"last_page"`
	PerPage     int          `json:"per_page"`
	Total       int          `json:"total"`
	From        int          `json:"from"`
	To          int          `json:"to"`
	Data        []ListedItem `json:"data"`
}

// Filters are extra query parameters for GetListedItems. Keys are forwarded
// without validation. Values should be strings, bools or numbers; nil values
// are dropped and a []string repeats the key once per element.
type Filters map[string]any

// DepositorStatsResponse from GET /trading/deposit/{id}/bidder-stats
type DepositorStatsResponse struct {
	DeliveryRateRecent        float64  `json:"delivery_rate_recent"`
	DeliveryRateLong          float64  `json:"delivery_rate_long"`
	DeliveryTimeMinutesRecent *float64 `json:"delivery_time_minutes_recent"`
	DeliveryTimeMinutesLong   *float64 `json:"delivery_time_minutes_long"`
	SteamLevelMin             *int     `json:"steam_level_min_range"`
	SteamLevelMax             *int     `json:"steam_level_max_range"`
	TradeNotifications        bool     `json:"user_has_trade_notifications_enabled"`
	UserOnline                *bool    `json:"user_online_status"`
}

// WithdrawRequest is the body of POST /trading/deposit/{id}/withdraw.
type WithdrawRequest struct {
	CoinValue int64 `json:"coin_value"`
}

// BidRequest is the body of POST /trading/deposit/{id}/bid.
type BidRequest struct {
	BidValue int64 `json:"bid_value"`
}
