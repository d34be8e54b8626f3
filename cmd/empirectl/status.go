package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/empire-trade/internal/api"
)

// accountStatus combines the account endpoints fetched by status.
type accountStatus struct {
	Metadata *api.MetadataResponse       `json:"metadata"`
	Trades   *api.ActiveTradesResponse   `json:"trades"`
	Auctions *api.ActiveAuctionsResponse `json:"auctions"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show metadata, active trades and active auctions in one call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.api(cmd.Context())
			if err != nil {
				return err
			}

			var st accountStatus
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() (err error) {
				st.Metadata, err = c.GetMetadata(ctx)
				return err
			})
			g.Go(func() (err error) {
				st.Trades, err = c.GetActiveTrades(ctx)
				return err
			})
			g.Go(func() (err error) {
				st.Auctions, err = c.GetActiveAuctions(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
}
