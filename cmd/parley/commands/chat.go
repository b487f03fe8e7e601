package commands

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"parley/internal/app"
	"parley/internal/status"
)

// chat: read lines from stdin and exchange them with --peer.
func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open an encrypted chat with --peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			console := status.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr(), wire.Log)
			return app.New(wire, console).Chat(ctx, readLines(ctx, cmd.InOrStdin()))
		},
	}
}

func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
