package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"parley/internal/domain"
)

// presence: ask the relay whether users are connected (default --peer).
func presenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presence [user...]",
		Short: "Ask the relay whether a user is connected",
		RunE: func(cmd *cobra.Command, args []string) error {
			users := args
			if len(users) == 0 {
				if cfg.Peer == "" {
					return fmt.Errorf("no user given and no --peer configured")
				}
				users = []string{cfg.Peer}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := wire.Relay.Health(ctx); err != nil {
				return fmt.Errorf("relay unreachable: %w", err)
			}
			for _, u := range users {
				p, err := wire.Relay.Presence(ctx, domain.Username(u))
				if err != nil {
					return err
				}
				state := "offline"
				if p.Online {
					state = "online"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.User, state)
			}
			return nil
		},
	}
}
