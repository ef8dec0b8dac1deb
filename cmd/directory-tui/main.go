package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/yungbote/employee-directory/internal/client"
	"github.com/yungbote/employee-directory/internal/platform/shutdown"
	"github.com/yungbote/employee-directory/internal/tui"
)

func main() {
	var (
		server    string
		threshold int64
	)
	root := &cobra.Command{
		Use:          "directory-tui",
		Short:        "Interactive terminal front end for the employee directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := shutdown.NotifyContext(cmd.Context())
			defer stop()
			api := client.New(server)
			events := make(chan struct{}, 1)
			go watch(ctx, api, events)

			model := tui.New(ctx, api, events, tui.Config{Threshold: threshold})
			_, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
			return err
		},
	}
	envServer := os.Getenv("DIRECTORY_SERVER")
	if envServer == "" {
		envServer = "http://localhost:8080"
	}
	root.Flags().StringVar(&server, "server", envServer, "directory API base URL")
	root.Flags().Int64Var(&threshold, "threshold", tui.DefaultThreshold, "show the aggregate once it reaches this value")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// watch turns server change events into invalidations, reconnecting after
// the stream drops. Signals coalesce: one pending invalidation is enough.
func watch(ctx context.Context, api *client.Client, events chan<- struct{}) {
	signal := func() {
		select {
		case events <- struct{}{}:
		default:
		}
	}
	for ctx.Err() == nil {
		_ = api.Watch(ctx, func(client.ChangeEvent) { signal() })
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
			// changes may have been missed while disconnected
			signal()
		}
	}
}
