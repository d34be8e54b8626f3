package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickgao/empire-trade/internal/api"
)

func newListedCmd(a *app) *cobra.Command {
	var (
		page    int
		perPage int
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "listed",
		Short: "List items on the withdrawal page",
		Long: `List items on the withdrawal page.

Every --filter key=value pair is appended to the query string as given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilters(filters)
			if err != nil {
				return err
			}
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.GetListedItems(cmd.Context(), page, perPage, f)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", 100, "Items per page")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Extra query parameter as key=value (repeatable)")
	return cmd
}

func newDepositCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Create and manage deposits",
	}
	cmd.AddCommand(
		newDepositCreateCmd(a),
		newDepositActionCmd(a, "cancel", "Cancel a deposit (refused once a bid exists)", (*api.Client).CancelDeposit),
		newDepositActionCmd(a, "sell", "Sell a deposit to the highest bidder now", (*api.Client).SellNow),
		newDepositStatsCmd(a),
	)
	return cmd
}

func newDepositCreateCmd(a *app) *cobra.Command {
	var items []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Deposit inventory items for auction",
		Long: `Deposit inventory items for auction.

Each --item is id=coins, with coins in display units: --item 123=100.01
deposits item 123 at 10001 coin cents.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseDepositItems(items)
			if err != nil {
				return err
			}
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.CreateDeposit(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringArrayVar(&items, "item", nil, "Item to deposit as id=coins (repeatable)")
	return cmd
}

type depositAction func(c *api.Client, ctx context.Context, depositID int64) (*api.ActionResponse, error)

func newDepositActionCmd(a *app, use, short string, action depositAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <deposit-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := action(c, cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newDepositStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <deposit-id>",
		Short: "Show delivery statistics of a deposit's depositor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.GetDepositorStats(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newWithdrawCmd(a *app) *cobra.Command {
	var coins string

	cmd := &cobra.Command{
		Use:   "withdraw <deposit-id>",
		Short: "Withdraw an expired auction item nobody won",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cents, err := api.ParseCoins(coins)
			if err != nil {
				return err
			}
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.CreateWithdrawal(cmd.Context(), id, cents)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&coins, "coins", "", "Item value in coins, e.g. 12.50")
	_ = cmd.MarkFlagRequired("coins")
	return cmd
}

func newBidCmd(a *app) *cobra.Command {
	var coins string

	cmd := &cobra.Command{
		Use:   "bid <deposit-id>",
		Short: "Bid on a deposit's auction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cents, err := api.ParseCoins(coins)
			if err != nil {
				return err
			}
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.PlaceBid(cmd.Context(), id, cents)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&coins, "coins", "", "Bid in coins, e.g. 12.50")
	_ = cmd.MarkFlagRequired("coins")
	return cmd
}

// parseFilters turns key=value pairs into listing filters. Values are kept
// as strings; keys are not checked.
func parseFilters(pairs []string) (api.Filters, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	f := make(api.Filters, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid filter %q, want key=value", p)
		}
		f[k] = v
	}
	return f, nil
}

// parseDepositItems turns id=coins pairs into a deposit request.
func parseDepositItems(pairs []string) (api.DepositRequest, error) {
	if len(pairs) == 0 {
		return api.DepositRequest{}, errors.New("at least one --item is required")
	}
	req := api.DepositRequest{Items: make([]api.DepositItem, 0, len(pairs))}
	for _, p := range pairs {
		idStr, coins, ok := strings.Cut(p, "=")
		if !ok {
			return api.DepositRequest{}, fmt.Errorf("invalid item %q, want id=coins", p)
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return api.DepositRequest{}, fmt.Errorf("invalid item id %q: %w", idStr, err)
		}
		cents, err := api.ParseCoins(coins)
		if err != nil {
			return api.DepositRequest{}, err
		}
		req.Items = append(req.Items, api.DepositItem{ID: id, CoinValue: cents})
	}
	return req, nil
}
