package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yungbote/employee-directory/internal/client"
	"github.com/yungbote/employee-directory/internal/client/form"
	types "github.com/yungbote/employee-directory/internal/domain"
)

const defaultServer = "http://localhost:8080"

func newRootCmd(out io.Writer) *cobra.Command {
	var server string
	api := func() *client.Client { return client.New(server) }

	root := &cobra.Command{
		Use:           "directoryctl",
		Short:         "Manage the employee directory from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	envServer := os.Getenv("DIRECTORY_SERVER")
	if envServer == "" {
		envServer = defaultServer
	}
	root.PersistentFlags().StringVar(&server, "server", envServer, "directory API base URL")

	root.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every employee",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				recs, err := api().List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tVALUE")
				for _, r := range recs {
					fmt.Fprintf(tw, "%s\t%d\n", r.Name, r.Value)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "sum",
			Short: "Print the sum of values for names starting with A, B or C",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				sum, err := api().Sum(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, sum)
				return nil
			},
		},
		&cobra.Command{
			Use:   "add NAME VALUE",
			Short: "Add an employee",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return submit(args[0], args[1], func(rec types.Employee) error {
					added, err := api().Add(cmd.Context(), rec)
					if err == nil {
						fmt.Fprintf(out, "added %s (%d)\n", added.Name, added.Value)
					}
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "update KEY NAME VALUE",
			Short: "Replace the employee currently named KEY",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := types.ParseEmployeeKey(args[0])
				if err != nil {
					return err
				}
				return submit(args[1], args[2], func(rec types.Employee) error {
					err := api().Update(cmd.Context(), key, rec)
					if err == nil {
						fmt.Fprintf(out, "updated %s\n", key)
					}
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "delete KEY",
			Short: "Delete the employee named KEY",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := types.ParseEmployeeKey(args[0])
				if err != nil {
					return err
				}
				if err := api().Delete(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted %s\n", key)
				return nil
			},
		},
		&cobra.Command{
			Use:   "increment",
			Short: "Increase every value: +1 for E names, +10 for G names, +100 otherwise",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := api().IncrementAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "incremented")
				return nil
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Print change events until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return api().Watch(ctx, func(ev client.ChangeEvent) {
					if ev.Name != "" {
						fmt.Fprintf(out, "%s %s\n", ev.Op, ev.Name)
					} else {
						fmt.Fprintln(out, ev.Op)
					}
				})
			},
		},
	)
	root.SetContext(context.Background())
	return root
}

// submit runs the form validator and reports violations without calling
// the server.
func submit(name, value string, send func(types.Employee) error) error {
	var sendErr error
	res := form.Submit(form.Input{Name: name, Value: value}, func(rec types.Employee) string {
		sendErr = send(rec)
		return form.ErrorString(sendErr)
	})
	if len(res.Violations) > 0 {
		msgs := make([]string, 0, len(res.Violations))
		for _, v := range res.Violations {
			msgs = append(msgs, v.Message)
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return sendErr
}
