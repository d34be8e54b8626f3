package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rickgao/empire-trade/internal/api"
)

func newMetadataCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Show the current user and socket credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.GetMetadata(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newTradesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trades",
		Short: "List active deposits and withdrawals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.GetActiveTrades(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newAuctionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auctions",
		Short: "List auctions this account is bidding on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.GetActiveAuctions(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newInventoryCmd(a *app) *cobra.Command {
	var invalid bool

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "List the Steam inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.GetInventory(cmd.Context(), invalid)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().BoolVar(&invalid, "invalid", false, "Include items that cannot be deposited")
	return cmd
}

func newUniqueInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unique-info",
		Short: "Show float and sticker data for inventory items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.GetUniqueInfo(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newSettingsCmd(a *app) *cobra.Command {
	var req api.SettingsRequest

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Update the Steam trade URL and/or Steam API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.TradeURL == "" && req.SteamAPIKey == "" {
				return errors.New("nothing to update: set --trade-url and/or --steam-api-key")
			}
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.UpdateSettings(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&req.TradeURL, "trade-url", "", "Steam trade offer URL")
	cmd.Flags().StringVar(&req.SteamAPIKey, "steam-api-key", "", "Steam web API key")
	return cmd
}
