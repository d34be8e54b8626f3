package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	empire "github.com/rickgao/empire-trade"
	"github.com/rickgao/empire-trade/internal/connection"
	"github.com/rickgao/empire-trade/internal/router"
)

// watchLine is one event printed by watch.
type watchLine struct {
	Event      string            `json:"event"`
	ReceivedAt time.Time         `json:"received_at"`
	Args       []json.RawMessage `json:"args,omitempty"`
}

func newWatchCmd(a *app) *cobra.Command {
	var events []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect to the trade socket and print events as JSON lines",
		Long: `Connect to the trade socket, identify, and print every received event
as one JSON object per line until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.API.APIKey == "" {
				return errors.New("watch requires an API key")
			}
			if len(events) == 0 {
				events = append([]string{connection.EventInit}, router.DefaultEvents...)
			}

			c, err := a.newClient(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				c.Close(ctx)
			}()

			sock, err := c.Socket()
			if err != nil {
				return err
			}

			// Handlers run on the socket's single dispatch goroutine.
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, name := range events {
				sock.On(name, func(ev empire.Event) {
					if err := enc.Encode(watchLine{Event: ev.Name, ReceivedAt: ev.ReceivedAt, Args: ev.Args}); err != nil {
						a.logger.Warn("write event", "error", err)
					}
				})
			}
			sock.On(connection.EventDisconnect, func(ev empire.Event) {
				a.logger.Warn("trade socket disconnected", "reason", ev.Reason())
			})
			sock.On(connection.EventConnectError, func(ev empire.Event) {
				a.logger.Warn("trade socket connect failed", "reason", ev.Reason())
			})

			<-cmd.Context().Done()

			st := c.Stats()
			a.logger.Info("watch stopped",
				"connects", st.Connects,
				"identifies", st.Identifies,
				"identify_failures", st.IdentifyFailures,
			)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&events, "event", nil, "Event to print (repeatable; default: init and the item feed)")
	return cmd
}
