package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/target/notifyd/internal/cachekey"
	"github.com/target/notifyd/internal/domain/model"
	"github.com/target/notifyd/internal/migrate"
)

func newMigrateCmd(load depsLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if list, _ := cmd.Flags().GetBool("list"); list {
				versions, err := migrate.Versions()
				if err != nil {
					return err
				}
				for _, v := range versions {
					fmt.Fprintln(out, v)
				}
				return nil
			}
			status, _ := cmd.Flags().GetBool("status")
			return withDeps(cmd, load, false, func(ctx context.Context, deps *adminDeps) error {
				if status {
					if deps.Pending == nil {
						return errors.New("pending migrations unavailable")
					}
					pending, err := deps.Pending(ctx)
					if err != nil {
						return err
					}
					if len(pending) == 0 {
						fmt.Fprintln(out, "up to date")
						return nil
					}
					for _, v := range pending {
						fmt.Fprintf(out, "pending %s\n", v)
					}
					return nil
				}
				if err := deps.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintln(out, "migrations applied")
				return nil
			})
		},
	}
	cmd.Flags().Bool("list", false, "List embedded migration versions without connecting")
	cmd.Flags().Bool("status", false, "Show migrations not yet applied")
	return cmd
}

func newRedispatchCmd(load depsLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redispatch [job-id]",
		Short: "Re-enqueue a stored job, or sweep stale pending jobs with --sweep",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sweep, _ := cmd.Flags().GetBool("sweep")
			if sweep == (len(args) == 1) {
				return errors.New("provide exactly one of <job-id> or --sweep")
			}
			out := cmd.OutOrStdout()
			return withDeps(cmd, load, true, func(ctx context.Context, deps *adminDeps) error {
				if sweep {
					res, err := deps.Sweeper.SweepOnce(ctx)
					if err != nil {
						return fmt.Errorf("sweep: %w", err)
					}
					fmt.Fprintf(out, "found=%d redispatched=%d failed=%d\n", res.Found, res.Redispatched, res.Failed)
					return nil
				}
				job, err := deps.Redispatcher.Redispatch(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "redispatched job %s (%s, status=%s)\n", job.ID, job.Type, job.Status)
				return nil
			})
		},
	}
	cmd.Flags().Bool("sweep", false, "Redispatch every stale pending job once")
	return cmd
}

func newInvalidateFeedCmd(load depsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate-feed <environment-id> <subscriber-id>",
		Short: "Evict cached feed and count entries for a subscriber",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := cachekey.Dimensions{EnvironmentID: args[0], SubscriberID: args[1]}
			return withDeps(cmd, load, true, func(ctx context.Context, deps *adminDeps) error {
				if deps.Invalidator == nil {
					return errNoCache
				}
				if err := deps.Invalidator.InvalidateSubscriber(ctx, d); err != nil {
					return fmt.Errorf("invalidate: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s/%s\n", d.EnvironmentID, d.SubscriberID)
				return nil
			})
		},
	}
}

func newCountCmd(load depsLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count <environment-id> <subscriber-id>",
		Short: "Print the bounded feed count for a subscriber",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := model.FeedCountRequest{EnvironmentID: args[0], SubscriberID: args[1]}
			var err error
			seenRaw, _ := cmd.Flags().GetString("seen")
			if req.Seen, err = model.ParseOptionalBool("seen", seenRaw); err != nil {
				return err
			}
			readRaw, _ := cmd.Flags().GetString("read")
			if req.Read, err = model.ParseOptionalBool("read", readRaw); err != nil {
				return err
			}
			req.Limit, _ = cmd.Flags().GetString("limit")

			return withDeps(cmd, load, true, func(ctx context.Context, deps *adminDeps) error {
				res, err := deps.FeedCount.GetCount(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Count)
				return nil
			})
		},
	}
	cmd.Flags().String("seen", "", "Filter by seen state (true|false)")
	cmd.Flags().String("read", "", "Filter by read state (true|false)")
	cmd.Flags().String("limit", "", "Count ceiling (1-1000)")
	return cmd
}

func newExecutionDetailsCmd(load depsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "execution-details <job-id>",
		Short: "List the audit trail recorded for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, load, true, func(ctx context.Context, deps *adminDeps) error {
				details, err := deps.Details.ListByJob(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(details) == 0 {
					fmt.Fprintln(out, "no execution details")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "CREATED\tCHANNEL\tDETAIL\tSOURCE\tSTATUS\tFLAGS")
				for _, d := range details {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						d.CreatedAt.UTC().Format(time.RFC3339), d.Channel, d.Detail, d.Source, d.Status, detailFlags(d))
				}
				return tw.Flush()
			})
		},
	}
}

func detailFlags(d *model.ExecutionDetail) string {
	var flags []string
	if d.IsTest {
		flags = append(flags, "test")
	}
	if d.IsRetry {
		flags = append(flags, "retry")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
