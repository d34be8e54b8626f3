package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type endpointCase struct {
	name     string
	method   string
	path     string
	query    string
	reqBody  string
	response string
	call     func(ctx context.Context, c *Client) (any, error)
	check    func(t *testing.T, got any)
}

func endpointCases() []endpointCase {
	return []endpointCase{
		{
			name:     "GetMetadata",
			method:   http.MethodGet,
			path:     "/metadata/socket",
			response: `{"user":{"id":42,"steam_name":"bob"},"socket_token":"tok","socket_signature":"sig"}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetMetadata(ctx)
			},
			check: func(t *testing.T, got any) {
				m := got.(*MetadataResponse)
				assert.Equal(t, int64(42), m.User.ID)
				assert.Equal(t, "tok", m.SocketToken)
				assert.Equal(t, "sig", m.SocketSignature)
			},
		},
		{
			name:     "GetActiveTrades",
			method:   http.MethodGet,
			path:     "/trading/user/trades",
			response: `{"success":true,"data":{"deposits":[{"id":7,"item_id":9,"total_value":1250,"status":2}],"withdrawals":[]}}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetActiveTrades(ctx)
			},
			check: func(t *testing.T, got any) {
				r := got.(*ActiveTradesResponse)
				require.Len(t, r.Data.Deposits, 1)
				assert.Equal(t, int64(1250), r.Data.Deposits[0].TotalValue)
			},
		},
		{
			name:     "GetActiveAuctions",
			method:   http.MethodGet,
			path:     "/trading/user/auctions",
			response: `{"success":true,"active_auctions":[{"id":3,"auction_highest_bid":500}]}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetActiveAuctions(ctx)
			},
			check: func(t *testing.T, got any) {
				r := got.(*ActiveAuctionsResponse)
				require.Len(t, r.ActiveAuctions, 1)
				assert.Equal(t, int64(500), r.ActiveAuctions[0].AuctionHighestBid)
			},
		},
		{
			name:     "UpdateSettings",
			method:   http.MethodPost,
			path:     "/trading/user/settings",
			reqBody:  `{"trade_url":"https://steamcommunity.com/tradeoffer/new/?partner=1","steam_api_key":"k"}`,
			response: `{"success":true}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.UpdateSettings(ctx, SettingsRequest{
					TradeURL:    "https://steamcommunity.com/tradeoffer/new/?partner=1",
					SteamAPIKey: "k",
				})
			},
			check: func(t *testing.T, got any) {
				assert.True(t, got.(*ActionResponse).Success)
			},
		},
		{
			name:     "GetInventory",
			method:   http.MethodGet,
			path:     "/trading/user/inventory",
			query:    "invalid=no",
			response: `{"success":true,"data":[{"id":11,"market_name":"AK-47 | Redline","market_value":2500}]}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetInventory(ctx, false)
			},
			check: func(t *testing.T, got any) {
				r := got.(*InventoryResponse)
				require.Len(t, r.Data, 1)
				assert.Equal(t, "AK-47 | Redline", r.Data[0].MarketName)
			},
		},
		{
			name:     "GetUniqueInfo",
			method:   http.MethodGet,
			path:     "/trading/user/inventory/unique-info",
			response: `{"success":true,"data":[{"assetid":1,"float":0.12}]}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetUniqueInfo(ctx)
			},
			check: func(t *testing.T, got any) {
				assert.Len(t, got.(*UniqueInfoResponse).Data, 1)
			},
		},
		{
			name:     "CreateDeposit",
			method:   http.MethodPost,
			path:     "/trading/deposit",
			reqBody:  `{"items":[{"id":11,"coin_value":10001}]}`,
			response: `{"success":true}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.CreateDeposit(ctx, DepositRequest{Items: []DepositItem{{ID: 11, CoinValue: 10001}}})
			},
			check: func(t *testing.T, got any) {
				assert.True(t, got.(*ActionResponse).Success)
			},
		},
		{
			name:     "CancelDeposit",
			method:   http.MethodPost,
			path:     "/trading/deposit/123/cancel",
			response: `{"success":true}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.CancelDeposit(ctx, 123)
			},
			check: func(t *testing.T, got any) {
				assert.True(t, got.(*ActionResponse).Success)
			},
		},
		{
			name:     "SellNow",
			method:   http.MethodPost,
			path:     "/trading/deposit/123/sell",
			response: `{"success":true}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.SellNow(ctx, 123)
			},
			check: func(t *testing.T, got any) {
				assert.True(t, got.(*ActionResponse).Success)
			},
		},
		{
			name:     "GetListedItems",
			method:   http.MethodGet,
			path:     "/trading/items",
			query:    "page=2&per_page=50&sort=price",
			response: `{"current_page":2,"per_page":50,"data":[{"id":5,"market_name":"AWP | Asiimov"}]}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetListedItems(ctx, 2, 50, Filters{"sort": "price"})
			},
			check: func(t *testing.T, got any) {
				r := got.(*ListedItemsResponse)
				assert.Equal(t, 2, r.CurrentPage)
				require.Len(t, r.Data, 1)
				assert.Equal(t, int64(5), r.Data[0].ID)
			},
		},
		{
			name:     "GetDepositorStats",
			method:   http.MethodGet,
			path:     "/trading/deposit/123/bidder-stats",
			response: `{"delivery_rate_recent":0.9,"delivery_rate_long":0.95}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetDepositorStats(ctx, 123)
			},
			check: func(t *testing.T, got any) {
				assert.InDelta(t, 0.9, got.(*DepositorStatsResponse).DeliveryRateRecent, 1e-9)
			},
		},
		{
			name:     "CreateWithdrawal",
			method:   http.MethodPost,
			path:     "/trading/deposit/123/withdraw",
			reqBody:  `{"coin_value":2500}`,
			response: `{"success":true}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.CreateWithdrawal(ctx, 123, 2500)
			},
			check: func(t *testing.T, got any) {
				assert.True(t, got.(*ActionResponse).Success)
			},
		},
		{
			name:     "PlaceBid",
			method:   http.MethodPost,
			path:     "/trading/deposit/123/bid",
			reqBody:  `{"bid_value":2600}`,
			response: `{"success":true}`,
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.PlaceBid(ctx, 123, 2600)
			},
			check: func(t *testing.T, got any) {
				assert.True(t, got.(*ActionResponse).Success)
			},
		},
	}
}

// TestEndpoints_StringEncodedBody checks every endpoint returns a parsed
// object when the server answers with a JSON-encoded string.
func TestEndpoints_StringEncodedBody(t *testing.T) {
	for _, tc := range endpointCases() {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.method, r.Method)
				assert.Equal(t, tc.path, r.URL.Path)
				assert.Equal(t, tc.query, r.URL.RawQuery)
				assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

				body, _ := io.ReadAll(r.Body)
				if tc.reqBody != "" {
					assert.JSONEq(t, tc.reqBody, string(body))
				} else {
					assert.Empty(t, body)
				}

				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(http.StatusOK)
				w.Write(stringEncoded(t, tc.response))
			}))
			defer server.Close()

			c := NewClient(server.URL, "key")
			got, err := tc.call(context.Background(), c)
			require.NoError(t, err)
			require.NotNil(t, got)
			tc.check(t, got)
		})
	}
}

// TestEndpoints_ErrorStatus checks every endpoint fails on a non-2xx status.
func TestEndpoints_ErrorStatus(t *testing.T) {
	for _, tc := range endpointCases() {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"success":false,"message":"nope"}`))
			}))
			defer server.Close()

			c := NewClient(server.URL, "key")
			_, err := tc.call(context.Background(), c)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "expected *APIError, got %T", err)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, "nope", apiErr.Message)
		})
	}
}

// TestEndpoints_EmptySuccessBody checks an empty 2xx body is a success with a
// zero-value response, not a decode error.
func TestEndpoints_EmptySuccessBody(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNoContent} {
		for _, tc := range endpointCases() {
			t.Run(fmt.Sprintf("%d/%s", status, tc.name), func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(status)
				}))
				defer server.Close()

				got, err := tc.call(context.Background(), NewClient(server.URL, "key"))
				require.NoError(t, err)
				assert.NotNil(t, got)
			})
		}
	}
}

func TestGetInventory_InvalidFlag(t *testing.T) {
	tests := []struct {
		invalid bool
		want    string
	}{
		{true, "invalid=yes"},
		{false, "invalid=no"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.want, r.URL.RawQuery)
				w.Write([]byte(`{"success":true,"data":[]}`))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, "").GetInventory(context.Background(), tt.invalid)
			require.NoError(t, err)
		})
	}
}

func TestListedItemsPath(t *testing.T) {
	tests := []struct {
		name    string
		page    int
		perPage int
		filters Filters
		want    string
	}{
		{"no filters", 1, 100, nil, "/trading/items?page=1&per_page=100"},
		{"single filter", 2, 50, Filters{"sort": "price"}, "/trading/items?page=2&per_page=50&sort=price"},
		{
			"filters in key order",
			1, 10,
			Filters{"price_min": 100, "auction": "yes", "search": "ak 47"},
			"/trading/items?page=1&per_page=10&auction=yes&price_min=100&search=ak+47",
		},
		{"unknown keys forwarded", 3, 5, Filters{"anything": true}, "/trading/items?page=3&per_page=5&anything=true"},
		{"nil values skipped", 1, 10, Filters{"a": nil, "sort": "price"}, "/trading/items?page=1&per_page=10&sort=price"},
		{"string slice repeats key", 1, 10, Filters{"b": []string{"x", "y"}}, "/trading/items?page=1&per_page=10&b=x&b=y"},
		{"floats without exponent", 1, 10, Filters{"price_max": 1000000.0, "price_min": 0.5}, "/trading/items?page=1&per_page=10&price_max=1000000&price_min=0.5"},
		{"typed integers", 1, 10, Filters{"delivery_time_long_max": int64(12), "x": uint8(3)}, "/trading/items?page=1&per_page=10&delivery_time_long_max=12&x=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, listedItemsPath(tt.page, tt.perPage, tt.filters))
		})
	}
}

func TestUser_PassThrough(t *testing.T) {
	var m MetadataResponse
	raw := `{"user":{"id":7,"steam_id":"765","balance":1234,"badges":[1,2]},"socket_token":"t","socket_signature":"s"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	assert.Equal(t, int64(7), m.User.ID)

	out, err := m.User.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"steam_id":"765","balance":1234,"badges":[1,2]}`, string(out))

	var partial struct {
		SteamID string `json:"steam_id"`
	}
	require.NoError(t, m.User.Decode(&partial))
	assert.Equal(t, "765", partial.SteamID)
}

func TestUser_ZeroValueMarshal(t *testing.T) {
	out, err := User{ID: 9}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9}`, string(out))
	assert.Error(t, User{}.Decode(&struct{}{}))
}
